package splitter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestMetersToDegrees(t *testing.T) {
	t.Run("equator", func(t *testing.T) {
		latDeg, lonDeg := MetersToDegrees(4, 0)
		// One degree of latitude at the equator is ~110574 m, longitude ~111320 m.
		assert.InDelta(t, 4.0/110574, latDeg, 1e-7)
		assert.InDelta(t, 4.0/111320, lonDeg, 1e-7)
	})

	t.Run("longitude degrees grow with latitude", func(t *testing.T) {
		_, lonEquator := MetersToDegrees(100, 0)
		_, lonOslo := MetersToDegrees(100, 60)
		assert.Greater(t, lonOslo, 2*lonEquator*0.9)
		assert.Greater(t, lonOslo, lonEquator)
	})

	t.Run("scales linearly", func(t *testing.T) {
		lat1, lon1 := MetersToDegrees(1, 27.7)
		lat10, lon10 := MetersToDegrees(10, 27.7)
		assert.InDelta(t, lat1*10, lat10, 1e-12)
		assert.InDelta(t, lon1*10, lon10, 1e-12)
	})
}

func TestDegreesAt(t *testing.T) {
	deg := DegreesAt(4, orb.Point{85.3, 0})
	// At the equator 4 m is roughly 0.000036 degrees.
	assert.InDelta(t, 0.000036, deg, 0.000002)
}

func TestGeodesicArea(t *testing.T) {
	// ~111m x ~111m square at the equator: roughly 111 m × 111 m ≈ 12300 m².
	small := orb.Polygon{{{0, 0}, {0.001, 0}, {0.001, 0.001}, {0, 0.001}, {0, 0}}}
	area := GeodesicArea(small)
	assert.InDelta(t, 12300, area, 500)

	// Orientation must not matter.
	reversed := orb.Polygon{{{0, 0}, {0, 0.001}, {0.001, 0.001}, {0.001, 0}, {0, 0}}}
	assert.InDelta(t, area, GeodesicArea(reversed), 1)
}
