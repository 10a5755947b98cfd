package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// SplitBySquare divides the AOI into an even meter-grid clipped to the AOI
// boundary. When an extract is supplied, grid cells containing none of the
// extract geometries are dropped so empty countryside does not become tasks.
//
// A FeatureCollection AOI with multiple polygon members is split per member
// and the results concatenated.
func SplitBySquare(aoiData []byte, meters float64, extractData []byte) (*geojson.FeatureCollection, error) {
	if meters <= 0 {
		return nil, fmt.Errorf("square size must be positive, got %g", meters)
	}
	fc, err := ParseFeatureCollection(aoiData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
	}

	var extract *geojson.FeatureCollection
	if len(extractData) > 0 {
		extract, err = ParseFeatureCollection(extractData)
		if err != nil {
			return nil, fmt.Errorf("parsing extract: %w", err)
		}
	}

	out := geojson.NewFeatureCollection()
	for i, f := range fc.Features {
		poly, ok := polygonOf(f.Geometry)
		if !ok {
			return nil, invalidAOIError(fmt.Sprintf("aoi[%d]", i), "grid splitting requires polygon members")
		}
		for _, cell := range gridCells(poly, meters, extract) {
			out.Append(geojson.NewFeature(cell))
		}
	}
	return out, nil
}

func polygonOf(g orb.Geometry) (orb.Polygon, bool) {
	switch t := g.(type) {
	case orb.Polygon:
		return t, true
	case orb.MultiPolygon:
		if len(t) == 1 {
			return t[0], true
		}
	}
	return nil, false
}

func gridCells(aoi orb.Polygon, meters float64, extract *geojson.FeatureCollection) []orb.Geometry {
	bound := aoi.Bound()
	centroid, _ := planar.CentroidArea(aoi)
	latStep, lonStep := MetersToDegrees(meters, centroid[1])

	var cells []orb.Geometry
	for x := bound.Min[0]; x < bound.Max[0]; x += lonStep {
		for y := bound.Min[1]; y < bound.Max[1]; y += latStep {
			cellBound := orb.Bound{
				Min: orb.Point{x, y},
				Max: orb.Point{x + lonStep, y + latStep},
			}
			clipped := clip.Geometry(cellBound, orb.Geometry(aoi))
			if clipped == nil || planar.Area(clipped) == 0 {
				continue
			}
			if extract != nil && !cellHasFeature(clipped, extract) {
				continue
			}
			cells = append(cells, clipped)
		}
	}
	return cells
}

// cellHasFeature reports whether any extract geometry's centroid falls
// inside the clipped cell.
func cellHasFeature(cell orb.Geometry, extract *geojson.FeatureCollection) bool {
	for _, f := range extract.Features {
		if f.Geometry == nil {
			continue
		}
		centroid, _ := planar.CentroidArea(f.Geometry)
		if geometryContains(cell, centroid) {
			return true
		}
	}
	return false
}
