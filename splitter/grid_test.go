package splitter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aoi220m is a ~220m square at the equator as raw GeoJSON.
const aoi220m = `{"type":"Polygon","coordinates":[[[85.3,0],[85.302,0],[85.302,0.002],[85.3,0.002],[85.3,0]]]}`

func TestSplitBySquare(t *testing.T) {
	t.Run("even grid", func(t *testing.T) {
		fc, err := SplitBySquare([]byte(aoi220m), 100, nil)
		require.NoError(t, err)
		// ~220m AOI with 100m cells: 3x3 columns/rows of clipped cells.
		assert.Len(t, fc.Features, 9)
	})

	t.Run("cells clipped to the AOI", func(t *testing.T) {
		fc, err := SplitBySquare([]byte(aoi220m), 100, nil)
		require.NoError(t, err)
		var total float64
		for _, f := range fc.Features {
			total += planar.Area(f.Geometry)
		}
		aoiArea := planar.Area(orb.Polygon{{
			{85.3, 0}, {85.302, 0}, {85.302, 0.002}, {85.3, 0.002}, {85.3, 0},
		}})
		assert.InDelta(t, aoiArea, total, aoiArea*0.001)
	})

	t.Run("extract filters empty cells", func(t *testing.T) {
		// One building in the south-west corner: only the cell holding its
		// centroid stays.
		extract := `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{"building":"yes"},
			 "geometry":{"type":"Polygon","coordinates":[[[85.3002,0.0002],[85.30025,0.0002],[85.30025,0.00025],[85.3002,0.00025],[85.3002,0.0002]]]}}]}`
		fc, err := SplitBySquare([]byte(aoi220m), 100, []byte(extract))
		require.NoError(t, err)
		assert.Len(t, fc.Features, 1)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := SplitBySquare([]byte(aoi220m), 0, nil)
		assert.Error(t, err)
	})

	t.Run("multiple AOI members concatenated", func(t *testing.T) {
		multi := `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":` + aoi220m + `},
			{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[85.31,0],[85.312,0],[85.312,0.002],[85.31,0.002],[85.31,0]]]}}]}`
		fc, err := SplitBySquare([]byte(multi), 100, nil)
		require.NoError(t, err)
		assert.Len(t, fc.Features, 18)
	})
}

func TestSplitByFeatures(t *testing.T) {
	t.Run("bisecting line", func(t *testing.T) {
		features := `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},
			 "geometry":{"type":"LineString","coordinates":[[85.301,-0.001],[85.301,0.003]]}}]}`
		fc, err := SplitByFeatures([]byte(aoi220m), []byte(features))
		require.NoError(t, err)
		assert.Len(t, fc.Features, 2)
	})

	t.Run("no intersecting features keeps the AOI whole", func(t *testing.T) {
		features := `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},
			 "geometry":{"type":"LineString","coordinates":[[90,0],[90,1]]}}]}`
		fc, err := SplitByFeatures([]byte(aoi220m), []byte(features))
		require.NoError(t, err)
		assert.Len(t, fc.Features, 1)
	})
}
