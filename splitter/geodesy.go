package splitter

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// WGS84 ellipsoid parameters.
const (
	wgs84SemiMajor  = 6378137.0
	wgs84Flattening = 1 / 298.257223563
)

// MetersToDegrees converts a distance in meters to degree changes in
// latitude and longitude at the given reference latitude, using the WGS84
// radii of curvature. The thresholds in Config are meters; the pipeline
// works in WGS 84 degrees, so they are converted at the AOI centroid.
func MetersToDegrees(meters, referenceLat float64) (latDeg, lonDeg float64) {
	latRad := referenceLat * math.Pi / 180

	e2 := 2*wgs84Flattening - wgs84Flattening*wgs84Flattening
	sin2 := math.Sin(latRad) * math.Sin(latRad)

	// Radii of curvature: prime vertical (n) and meridian (m).
	n := wgs84SemiMajor / math.Sqrt(1-e2*sin2)
	m := wgs84SemiMajor * (1 - e2) / math.Pow(1-e2*sin2, 1.5)

	latDeg = (meters / m) * 180 / math.Pi
	lonDeg = (meters / (n * math.Cos(latRad))) * 180 / math.Pi
	return latDeg, lonDeg
}

// DegreesAt converts a meter threshold to a single degree tolerance at the
// reference point, averaging the latitude and longitude conversions.
func DegreesAt(meters float64, at orb.Point) float64 {
	latDeg, lonDeg := MetersToDegrees(meters, at[1])
	return (latDeg + lonDeg) / 2
}

// GeodesicArea returns the unsigned geodesic area of a geometry in m².
func GeodesicArea(g orb.Geometry) float64 {
	return math.Abs(geo.Area(g))
}
