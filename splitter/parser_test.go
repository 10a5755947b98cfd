package splitter

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unitSquareJSON = `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`

func TestParseFeatureCollection(t *testing.T) {
	t.Run("bare geometry", func(t *testing.T) {
		fc, err := ParseFeatureCollection([]byte(unitSquareJSON))
		require.NoError(t, err)
		require.Len(t, fc.Features, 1)
		assert.Equal(t, "Polygon", fc.Features[0].Geometry.GeoJSONType())
	})

	t.Run("feature", func(t *testing.T) {
		data := `{"type":"Feature","properties":{"name":"x"},"geometry":` + unitSquareJSON + `}`
		fc, err := ParseFeatureCollection([]byte(data))
		require.NoError(t, err)
		require.Len(t, fc.Features, 1)
	})

	t.Run("feature collection", func(t *testing.T) {
		data := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":` + unitSquareJSON + `}]}`
		fc, err := ParseFeatureCollection([]byte(data))
		require.NoError(t, err)
		require.Len(t, fc.Features, 1)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseFeatureCollection([]byte("{nope"))
		assert.Error(t, err)
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, err := ParseFeatureCollection([]byte(`{"type":"Topology"}`))
		assert.ErrorContains(t, err, "unsupported GeoJSON type")
	})
}

func TestParseAOI(t *testing.T) {
	t.Run("polygon", func(t *testing.T) {
		aoi, err := ParseAOI([]byte(unitSquareJSON))
		require.NoError(t, err)
		assert.False(t, aoi.ConvexHullApplied)
		assert.InDelta(t, 1.0, planar.Area(aoi.Polygon), 1e-9)
	})

	t.Run("multiple geometries rejected", func(t *testing.T) {
		data := `{"type":"FeatureCollection","features":[
			{"type":"Feature","properties":{},"geometry":` + unitSquareJSON + `},
			{"type":"Feature","properties":{},"geometry":` + unitSquareJSON + `}]}`
		_, err := ParseAOI([]byte(data))
		assert.ErrorIs(t, err, ErrInvalidAOI)
	})

	t.Run("empty collection rejected", func(t *testing.T) {
		_, err := ParseAOI([]byte(`{"type":"FeatureCollection","features":[]}`))
		assert.ErrorIs(t, err, ErrInvalidAOI)
	})

	t.Run("multipolygon reduced to convex hull", func(t *testing.T) {
		data := `{"type":"MultiPolygon","coordinates":[
			[[[0,0],[1,0],[1,1],[0,1],[0,0]]],
			[[[2,0],[3,0],[3,1],[2,1],[2,0]]]]}`
		aoi, err := ParseAOI([]byte(data))
		require.NoError(t, err)
		assert.True(t, aoi.ConvexHullApplied)
		// The hull spans both squares: a 3x1 rectangle.
		assert.InDelta(t, 3.0, planar.Area(aoi.Polygon), 1e-9)
	})

	t.Run("linestring rejected", func(t *testing.T) {
		_, err := ParseAOI([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`))
		assert.ErrorIs(t, err, ErrInvalidAOI)
	})
}

func TestExtractInputs(t *testing.T) {
	cfg := DefaultConfig()
	fc := geojson.NewFeatureCollection()

	road := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	road.Properties = geojson.Properties{"highway": "primary", "osm_id": "10"}
	fc.Append(road)

	footpath := geojson.NewFeature(orb.LineString{{0, 1}, {1, 0}})
	footpath.Properties = geojson.Properties{"highway": "pedestrian"}
	fc.Append(footpath)

	house := geojson.NewFeature(orb.Polygon{{{0, 0}, {0.1, 0}, {0.1, 0.1}, {0, 0.1}, {0, 0}}})
	house.Properties = geojson.Properties{"building": "yes", "osm_id": "20"}
	fc.Append(house)

	shed := geojson.NewFeature(orb.Polygon{{{1, 1}, {1.1, 1}, {1.1, 1.1}, {1, 1.1}, {1, 1}}})
	shed.Properties = geojson.Properties{"amenity": "parking"}
	fc.Append(shed)

	lines, buildings := ExtractInputs(fc, &cfg)

	require.Len(t, lines, 1)
	assert.Equal(t, "10", lines[0].ID)
	require.Len(t, buildings, 1)
	assert.Equal(t, "20", buildings[0].ID)
	assert.InDelta(t, 0.05, buildings[0].Centroid[0], 1e-9)
}

func TestConvexHull(t *testing.T) {
	pts := []orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}, {0.2, 0.8}}
	hull := convexHull(pts)
	require.NotNil(t, hull)
	assert.Equal(t, hull[0], hull[len(hull)-1])
	// Interior points must be discarded: 4 corners + closing vertex.
	assert.Len(t, hull, 5)
	assert.InDelta(t, 1.0, planar.Area(orb.Polygon{hull}), 1e-9)
}
