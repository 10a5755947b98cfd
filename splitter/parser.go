package splitter

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ParseFeatureCollection standardises any GeoJSON input to a
// FeatureCollection. Accepted shapes: FeatureCollection, Feature, or a bare
// geometry object.
func ParseFeatureCollection(data []byte) (*geojson.FeatureCollection, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing GeoJSON: %w", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parsing FeatureCollection: %w", err)
		}
		return fc, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parsing Feature: %w", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	case "Point", "MultiPoint", "LineString", "MultiLineString",
		"Polygon", "MultiPolygon", "GeometryCollection":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parsing geometry: %w", err)
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(g.Geometry()))
		return fc, nil
	default:
		return nil, fmt.Errorf("unsupported GeoJSON type %q", probe.Type)
	}
}

// ParseFeatureCollectionFile reads a GeoJSON file and standardises it.
func ParseFeatureCollectionFile(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseFeatureCollection(data)
}

// ParseAOI parses GeoJSON input into a single AOI polygon. The input may be
// a Polygon, a Feature or single-member FeatureCollection wrapping one, or a
// MultiPolygon, which is reduced to its convex hull.
func ParseAOI(data []byte) (*AOI, error) {
	fc, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAOI, err)
	}
	return AOIFromCollection(fc)
}

// AOIFromCollection extracts the AOI polygon from a standardised collection.
func AOIFromCollection(fc *geojson.FeatureCollection) (*AOI, error) {
	if len(fc.Features) == 0 {
		return nil, invalidAOIError("aoi", "the input contains no geometries")
	}
	if len(fc.Features) > 1 {
		return nil, invalidAOIError("aoi", "the input cannot contain multiple geometries")
	}

	f := fc.Features[0]
	switch g := f.Geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 4 {
			return nil, invalidAOIError("aoi", "polygon is empty or degenerate")
		}
		return &AOI{Polygon: g}, nil
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, invalidAOIError("aoi", "multipolygon is empty")
		}
		if len(g) == 1 {
			return &AOI{Polygon: g[0]}, nil
		}
		hull := convexHull(collectPoints(g))
		if len(hull) < 4 {
			return nil, invalidAOIError("aoi", "multipolygon collapses to a degenerate hull")
		}
		return &AOI{Polygon: orb.Polygon{hull}, ConvexHullApplied: true}, nil
	default:
		return nil, invalidAOIError("aoi", fmt.Sprintf("unsupported AOI geometry type %q", f.Geometry.GeoJSONType()))
	}
}

// ExtractInputs filters a data-extract collection into split lines and
// building features. Buildings are polygons with a non-null building tag;
// lines are linestrings matching the configured splitter predicate. IDs
// come from the osm_id property when present, otherwise the feature's id,
// otherwise the feature index.
func ExtractInputs(fc *geojson.FeatureCollection, cfg *Config) (lines []SplitLine, buildings []Building) {
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		tags := FlattenTags(f.Properties)
		id := featureID(f, i)

		switch g := f.Geometry.(type) {
		case orb.LineString:
			if cfg.MatchesSplitLine(tags) {
				lines = append(lines, SplitLine{ID: id, Line: g, Tags: tags})
			}
		case orb.MultiLineString:
			if cfg.MatchesSplitLine(tags) {
				for j, part := range g {
					lines = append(lines, SplitLine{
						ID:   fmt.Sprintf("%s/%d", id, j),
						Line: part,
						Tags: tags,
					})
				}
			}
		case orb.Polygon:
			if tags["building"] != "" {
				buildings = append(buildings, NewBuilding(id, g, tags))
			}
		case orb.MultiPolygon:
			if tags["building"] != "" {
				for j, part := range g {
					buildings = append(buildings, NewBuilding(fmt.Sprintf("%s/%d", id, j), part, tags))
				}
			}
		}
	}
	return lines, buildings
}

func featureID(f *geojson.Feature, index int) string {
	if f.Properties != nil {
		if v, ok := f.Properties["osm_id"]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	if f.ID != nil {
		return fmt.Sprintf("%v", f.ID)
	}
	return fmt.Sprintf("%d", index)
}

func collectPoints(mp orb.MultiPolygon) []orb.Point {
	var pts []orb.Point
	for _, poly := range mp {
		for _, ring := range poly {
			pts = append(pts, ring...)
		}
	}
	return pts
}

// convexHull computes the convex hull of a point set with the monotone
// chain algorithm, returned as a closed ring in counter-clockwise order.
func convexHull(pts []orb.Point) orb.Ring {
	if len(pts) < 3 {
		return nil
	}
	sorted := make([]orb.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower []orb.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []orb.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	ring := orb.Ring(hull)
	ring = append(ring, ring[0])
	return ring
}
