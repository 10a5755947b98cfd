package splitter

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

// prelimPolygon is a preliminary task region: the dissolved Voronoi
// territory of one cluster, clipped to its subpolygon.
type prelimPolygon struct {
	ClusterUID string
	PolyID     int
	CID        int
	Geom       orb.Geometry
}

// voronoiDissolve computes the global Voronoi tessellation of the densified
// sites, clips each cell to the subpolygon of its generator, and dissolves
// cells by cluster id. Generator lookup uses a quadtree nearest-neighbour
// query on the cell centroid: Voronoi cells are convex, so the centroid lies
// inside the cell and its nearest site is the generator.
//
// Subpolygons with no buildings produce no sites; their whole territory is
// emitted as one preliminary polygon so the result still tiles the AOI.
func voronoiDissolve(b *Backend, aoi *AOI, subs []SubPolygon, sites []SitePoint) ([]prelimPolygon, error) {
	subByID := make(map[int]SubPolygon, len(subs))
	for _, sub := range subs {
		subByID[sub.PolyID] = sub
	}

	dissolved := make(map[string][]orb.Geometry)
	uidOwner := make(map[string]*SitePoint)

	if len(sites) > 0 {
		points := make([]orb.Point, len(sites))
		bound := sites[0].Pt.Bound()
		for i := range sites {
			points[i] = sites[i].Pt
			bound = bound.Extend(sites[i].Pt)
		}
		bound = bound.Union(aoi.Polygon.Bound())

		qt := quadtree.New(bound.Pad(0.001))
		for i := range sites {
			if err := qt.Add(&sites[i]); err != nil {
				return nil, fmt.Errorf("indexing site: %w", err)
			}
		}

		cells, err := b.Voronoi(points, aoi.Polygon)
		if err != nil {
			return nil, fmt.Errorf("voronoi: %w", err)
		}

		for _, cell := range cells {
			centroid, _ := planar.CentroidArea(cell)
			nearest := qt.Find(centroid)
			if nearest == nil {
				continue
			}
			site := nearest.(*SitePoint)

			sub, ok := subByID[site.PolyID]
			if !ok {
				continue
			}
			clipped, err := b.Intersection(cell, sub.Geom)
			if err != nil {
				return nil, fmt.Errorf("clipping cell: %w", err)
			}
			for _, part := range FlattenPolygons(clipped) {
				if len(part) == 0 {
					continue
				}
				dissolved[site.ClusterUID] = append(dissolved[site.ClusterUID], part)
				uidOwner[site.ClusterUID] = site
			}
		}
	}

	var prelims []prelimPolygon
	uids := make([]string, 0, len(dissolved))
	for uid := range dissolved {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	for _, uid := range uids {
		geom, err := b.UnaryUnion(dissolved[uid])
		if err != nil {
			return nil, fmt.Errorf("dissolving cluster %s: %w", uid, err)
		}
		owner := uidOwner[uid]
		prelims = append(prelims, prelimPolygon{
			ClusterUID: uid,
			PolyID:     owner.PolyID,
			CID:        owner.CID,
			Geom:       geom,
		})
	}

	// Building-free subpolygons keep their whole territory.
	for _, sub := range subs {
		if sub.Count == 0 {
			prelims = append(prelims, prelimPolygon{
				ClusterUID: clusterUID(sub.PolyID, 0),
				PolyID:     sub.PolyID,
				Geom:       sub.Geom,
			})
		}
	}

	sort.Slice(prelims, func(i, j int) bool {
		if prelims[i].PolyID != prelims[j].PolyID {
			return prelims[i].PolyID < prelims[j].PolyID
		}
		return prelims[i].CID < prelims[j].CID
	})
	return prelims, nil
}
