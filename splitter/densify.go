package splitter

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// densifySites converts every clustered building boundary into perimeter
// points no further than tolerance (degrees) apart, each tagged with the
// cluster identity of its building. These are the Voronoi generator sites.
//
// Buildings are processed in ascending index order so the site list is
// stable for identical input.
func densifySites(b *Backend, buildings []Building, assignment map[int]int, cids map[int]int, tolerance float64) ([]SitePoint, error) {
	indices := make([]int, 0, len(assignment))
	for idx := range assignment {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var sites []SitePoint
	for _, idx := range indices {
		polyID := assignment[idx]
		cid := cids[idx]
		uid := clusterUID(polyID, cid)

		dense, err := b.Densify(buildings[idx].Polygon, tolerance)
		if err != nil {
			return nil, fmt.Errorf("densifying building %s: %w", buildings[idx].ID, err)
		}

		for _, pt := range dumpVertices(dense) {
			sites = append(sites, SitePoint{Pt: pt, PolyID: polyID, CID: cid, ClusterUID: uid})
		}
	}
	return sites, nil
}

// dumpVertices walks every ring and line of g and returns its vertices,
// dropping the closing vertex of rings.
func dumpVertices(g orb.Geometry) []orb.Point {
	var pts []orb.Point
	for _, member := range Flatten(g) {
		switch t := member.(type) {
		case orb.Polygon:
			for _, ring := range t {
				pts = append(pts, openRing(ring)...)
			}
		case orb.LineString:
			pts = append(pts, t...)
		case orb.Point:
			pts = append(pts, t)
		}
	}
	return pts
}

func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}
