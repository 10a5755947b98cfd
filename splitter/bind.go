package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// featureBind assigns every building to exactly one SubPolygon by centroid
// containment and aggregates per-subpolygon counts. Containment excludes the
// boundary, so a centroid sitting exactly on shared linework falls through
// to an intersects test against subpolygons in ascending polyid order, which
// makes the tiebreak deterministic (lowest polyid wins).
//
// The returned map is building index → polyid. Buildings whose centroid is
// outside every subpolygon (outside the AOI) are absent from the map.
func featureBind(b *Backend, subs []SubPolygon, buildings []Building) (map[int]int, error) {
	assignment := make(map[int]int, len(buildings))
	counts := make(map[int]int, len(subs))

	for i, bld := range buildings {
		polyID, ok, err := containingSubPolygon(b, subs, bld.Centroid)
		if err != nil {
			return nil, fmt.Errorf("binding feature %s: %w", bld.ID, err)
		}
		if !ok {
			// On-boundary centroid: assign by intersects, lowest polyid.
			polyID, ok, err = intersectingSubPolygon(b, subs, bld.Centroid)
			if err != nil {
				return nil, fmt.Errorf("binding feature %s: %w", bld.ID, err)
			}
			if !ok {
				continue
			}
		}
		assignment[i] = polyID
		counts[polyID]++
	}

	for i := range subs {
		subs[i].Count = counts[subs[i].PolyID]
	}
	return assignment, nil
}

// containingSubPolygon uses the backend contains predicate, which excludes
// the boundary, so the result is unique when it exists.
func containingSubPolygon(b *Backend, subs []SubPolygon, pt orb.Point) (int, bool, error) {
	for _, sub := range subs {
		hit, err := b.Contains(sub.Geom, pt)
		if err != nil {
			return 0, false, err
		}
		if hit {
			return sub.PolyID, true, nil
		}
	}
	return 0, false, nil
}

func intersectingSubPolygon(b *Backend, subs []SubPolygon, pt orb.Point) (int, bool, error) {
	for _, sub := range subs {
		hit, err := b.Intersects(sub.Geom, pt)
		if err != nil {
			return 0, false, err
		}
		if hit {
			return sub.PolyID, true, nil
		}
	}
	return 0, false, nil
}

// geometryContains is planar point-in-polygon over polygons and
// multipolygons.
func geometryContains(g orb.Geometry, pt orb.Point) bool {
	switch t := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(t, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(t, pt)
	case orb.Collection:
		for _, member := range t {
			if geometryContains(member, pt) {
				return true
			}
		}
	}
	return false
}
