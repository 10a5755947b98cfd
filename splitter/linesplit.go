package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// lineSplit polygonizes the AOI using the splitter linework. Each clipped
// line is node-merged with the AOI boundary into a closed planar graph,
// whose faces become SubPolygons. polyids follow polygonization order, which
// is stable for identical input because lines are fed in input order.
//
// If no line intersects the AOI, the result is a single SubPolygon equal to
// the AOI.
func lineSplit(b *Backend, aoi *AOI, lines []SplitLine) ([]SubPolygon, error) {
	var clipped []orb.Geometry
	for _, l := range lines {
		inter, err := b.Intersection(l.Line, aoi.Polygon)
		if err != nil {
			return nil, fmt.Errorf("clipping line %s: %w", l.ID, err)
		}
		for _, part := range FlattenLines(inter) {
			if len(part) >= 2 {
				clipped = append(clipped, part)
			}
		}
	}

	if len(clipped) == 0 {
		return []SubPolygon{{
			PolyID: 1,
			Geom:   aoi.Polygon,
			Area:   GeodesicArea(aoi.Polygon),
		}}, nil
	}

	boundary, err := b.Boundary(aoi.Polygon)
	if err != nil {
		return nil, fmt.Errorf("AOI boundary: %w", err)
	}
	linework := append(clipped, boundary)

	// Union node-merges the linework so polygonize sees a noded graph.
	noded, err := b.UnaryUnion(linework)
	if err != nil {
		return nil, fmt.Errorf("noding linework: %w", err)
	}

	faces, err := b.Polygonize(Flatten(noded))
	if err != nil {
		return nil, fmt.Errorf("polygonizing: %w", err)
	}

	subs := make([]SubPolygon, 0, len(faces))
	nextID := 1
	for _, face := range faces {
		inside, err := faceInsideAOI(b, face, aoi.Polygon)
		if err != nil {
			return nil, err
		}
		if !inside {
			continue
		}
		subs = append(subs, SubPolygon{
			PolyID: nextID,
			Geom:   face,
			Area:   GeodesicArea(face),
		})
		nextID++
	}

	if len(subs) == 0 {
		// Clipped linework ran entirely along the boundary.
		return []SubPolygon{{
			PolyID: 1,
			Geom:   aoi.Polygon,
			Area:   GeodesicArea(aoi.Polygon),
		}}, nil
	}
	return subs, nil
}

// faceInsideAOI keeps faces whose interior lies in the AOI. Polygonization
// of boundary-touching linework can emit slivers outside the AOI; comparing
// overlap area against half the face area rejects them without depending on
// a representative-point predicate.
func faceInsideAOI(b *Backend, face orb.Polygon, aoi orb.Polygon) (bool, error) {
	faceArea := planar.Area(face)
	if faceArea <= 0 {
		return false, nil
	}
	overlap, err := b.OverlapArea(face, aoi)
	if err != nil {
		return false, fmt.Errorf("filtering face: %w", err)
	}
	return overlap > faceArea/2, nil
}
