package splitter

import (
	"os"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore connects to the PostGIS instance named by TASKSPLIT_TEST_DB_URL,
// skipping when none is configured.
func testStore(t *testing.T) *Store {
	t.Helper()
	dburl := os.Getenv("TASKSPLIT_TEST_DB_URL")
	if dburl == "" {
		t.Skip("TASKSPLIT_TEST_DB_URL not set")
	}
	store, err := OpenStore(dburl)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.DropTables()
		_ = store.Close()
	})
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.CreateTables())

	aoi := &AOI{Polygon: square(85.3, 0.0, 0.002)}
	require.NoError(t, store.InsertAOI(aoi))

	fc := geojson.NewFeatureCollection()

	road := geojson.NewFeature(orb.LineString{{85.301, -0.001}, {85.301, 0.003}})
	road.Properties = geojson.Properties{"highway": "primary", "osm_id": "1"}
	fc.Append(road)

	house := geojson.NewFeature(square(85.3005, 0.0005, 0.00005))
	house.Properties = geojson.Properties{"building": "yes", "osm_id": "2"}
	fc.Append(house)

	// Outside the AOI: loaded table row, filtered by the intersect query.
	farHouse := geojson.NewFeature(square(90, 45, 0.00005))
	farHouse.Properties = geojson.Properties{"building": "yes", "osm_id": "3"}
	fc.Append(farHouse)

	// Neither a building nor a line tag: not inserted at all.
	park := geojson.NewFeature(square(85.3008, 0.0008, 0.0002))
	park.Properties = geojson.Properties{"leisure": "park", "osm_id": "4"}
	fc.Append(park)

	require.NoError(t, store.InsertExtract(fc))

	cfg := DefaultConfig()
	lines, buildings, err := store.LoadSplitInputs(aoi, &cfg)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, "1", lines[0].ID)
	assert.Equal(t, "primary", lines[0].Tags["highway"])

	require.Len(t, buildings, 1)
	assert.Equal(t, "2", buildings[0].ID)
}

func TestStore_CreateTablesIdempotent(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.CreateTables())
	require.NoError(t, store.CreateTables())
}
