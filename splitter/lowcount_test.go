package splitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStripSubs() []SubPolygon {
	// Three unit squares in a row: 1 | 2 | 3.
	return []SubPolygon{
		{PolyID: 1, Geom: square(0, 0, 1), Count: 0, Area: 100},
		{PolyID: 2, Geom: square(1, 0, 1), Count: 1, Area: 100},
		{PolyID: 3, Geom: square(2, 0, 1), Count: 30, Area: 100},
	}
}

func TestBuildArena_Adjacency(t *testing.T) {
	b := NewBackend()
	arena, err := buildArena(b, threeStripSubs())
	require.NoError(t, err)

	assert.Equal(t, map[int]struct{}{2: {}}, arena.records[1].neighbors)
	assert.Equal(t, map[int]struct{}{1: {}, 3: {}}, arena.records[2].neighbors)
	assert.Equal(t, map[int]struct{}{2: {}}, arena.records[3].neighbors)
}

func TestLowCountMerge_ChainsIntoLargest(t *testing.T) {
	b := NewBackend()
	cfg := DefaultConfig() // MinFeatures = 5
	subs := threeStripSubs()

	arena, err := buildArena(b, subs)
	require.NoError(t, err)

	// Buildings 0 in poly 2, the rest in poly 3.
	assignment := map[int]int{0: 2}
	for i := 1; i <= 30; i++ {
		assignment[i] = 3
	}

	merged, remapped, err := lowCountMerge(b, arena, &cfg, assignment)
	require.NoError(t, err)

	// Poly 1 folds into its only neighbour 2; 2 is still low-count and
	// folds into 3. Everything ends up in one region with all buildings.
	require.Len(t, merged, 1)
	assert.Equal(t, 3, merged[0].PolyID)
	assert.Equal(t, 31, merged[0].Count)
	assert.Equal(t, 300.0, merged[0].Area)

	for idx, polyID := range remapped {
		assert.Equal(t, 3, polyID, "building %d", idx)
	}
}

func TestLowCountMerge_IsolatedIslandRetained(t *testing.T) {
	b := NewBackend()
	cfg := DefaultConfig()

	subs := []SubPolygon{
		{PolyID: 1, Geom: square(0, 0, 1), Count: 2, Area: 100},
		{PolyID: 2, Geom: square(5, 5, 1), Count: 20, Area: 100},
	}
	arena, err := buildArena(b, subs)
	require.NoError(t, err)

	merged, _, err := lowCountMerge(b, arena, &cfg, map[int]int{})
	require.NoError(t, err)
	// No shared boundary anywhere: both regions survive.
	assert.Len(t, merged, 2)
}

func TestLowCountMerge_TargetPreference(t *testing.T) {
	b := NewBackend()
	cfg := DefaultConfig()

	// Low-count square 2 sits between 1 (n=8) and 3 (n=20): the canonical
	// rule picks the neighbour with the greatest count.
	subs := []SubPolygon{
		{PolyID: 1, Geom: square(0, 0, 1), Count: 8, Area: 50},
		{PolyID: 2, Geom: square(1, 0, 1), Count: 1, Area: 10},
		{PolyID: 3, Geom: square(2, 0, 1), Count: 20, Area: 50},
	}
	arena, err := buildArena(b, subs)
	require.NoError(t, err)

	merged, _, err := lowCountMerge(b, arena, &cfg, map[int]int{})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	var got *SubPolygon
	for i := range merged {
		if merged[i].PolyID == 3 {
			got = &merged[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 21, got.Count)
}

func TestLowCountMerge_ZeroCountSmallestSwitch(t *testing.T) {
	b := NewBackend()
	cfg := DefaultConfig()
	cfg.ZeroCountMergeSmallest = true

	subs := []SubPolygon{
		{PolyID: 1, Geom: square(0, 0, 1), Count: 8, Area: 50},
		{PolyID: 2, Geom: square(1, 0, 1), Count: 0, Area: 10},
		{PolyID: 3, Geom: square(2, 0, 1), Count: 20, Area: 50},
	}
	arena, err := buildArena(b, subs)
	require.NoError(t, err)

	merged, _, err := lowCountMerge(b, arena, &cfg, map[int]int{})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	// With the switch on, the zero-building region goes to the neighbour
	// with the fewest buildings.
	var got *SubPolygon
	for i := range merged {
		if merged[i].PolyID == 1 {
			got = &merged[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, 8, got.Count)
	assert.Equal(t, 60.0, got.Area)
}

func TestResolveAlias(t *testing.T) {
	alias := map[int]int{1: 2, 2: 5}
	assert.Equal(t, 5, resolveAlias(alias, 1))
	assert.Equal(t, 5, resolveAlias(alias, 2))
	assert.Equal(t, 7, resolveAlias(alias, 7))
}
