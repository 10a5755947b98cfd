package splitter

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// AOI is the area of interest to be split. The polygon is always a single
// simple polygon in WGS 84; MultiPolygon input is reduced to its convex hull
// during parsing, recorded by ConvexHullApplied.
type AOI struct {
	Polygon           orb.Polygon
	ConvexHullApplied bool
}

// SplitLine is a linear feature used to bisect the AOI: a highway, waterway
// or railway that passed the configured tag predicate.
type SplitLine struct {
	ID   string
	Line orb.LineString
	Tags map[string]string
}

// Building is a mappable feature polygon with a non-null building tag.
// The centroid is precomputed for containment tests.
type Building struct {
	ID       string
	Polygon  orb.Polygon
	Centroid orb.Point
	Tags     map[string]string
}

// NewBuilding computes the centroid and wraps the polygon.
func NewBuilding(id string, poly orb.Polygon, tags map[string]string) Building {
	centroid, _ := planar.CentroidArea(poly)
	return Building{ID: id, Polygon: poly, Centroid: centroid, Tags: tags}
}

// SubPolygon is a connected region of the AOI bounded by split lines and the
// AOI boundary. PolyID is stable across a run; Count is the number of
// buildings whose centroid falls inside; Area is geodesic (m²).
type SubPolygon struct {
	PolyID int
	Geom   orb.Geometry
	Count  int
	Area   float64
}

// clusterUID composes the run-unique cluster identifier from the subpolygon
// id and the cluster index local to it.
func clusterUID(polyID, cid int) string {
	return fmt.Sprintf("%d-%d", polyID, cid)
}

// SitePoint is a densified perimeter vertex carrying its cluster identity.
// These are the Voronoi generator sites.
type SitePoint struct {
	Pt         orb.Point
	PolyID     int
	CID        int
	ClusterUID string
}

// Point implements orb.Pointer so sites can be indexed in a quadtree.
func (s *SitePoint) Point() orb.Point { return s.Pt }

// TaskPolygon is a final output region with a stable TaskID and the count of
// buildings whose centroid it contains.
type TaskPolygon struct {
	TaskID        int
	Geom          orb.Geometry
	BuildingCount int
	Area          float64
}

// RunMetadata records per-run provenance returned alongside the output.
type RunMetadata struct {
	RunID             string
	ConvexHullApplied bool
	SubPolygons       int
	Clusters          int
	Tasks             int
}

// FlattenTags normalizes a heterogeneous GeoJSON property map to a flat
// string-to-string mapping. Scalar values are stringified; any nested value
// is JSON-encoded into its string. A nested "tags" member is unwrapped first,
// since extracts place tags either directly in properties or under that key.
func FlattenTags(props map[string]interface{}) map[string]string {
	if props == nil {
		return map[string]string{}
	}
	if nested, ok := props["tags"]; ok {
		switch v := nested.(type) {
		case map[string]interface{}:
			return FlattenTags(v)
		case string:
			var m map[string]interface{}
			if err := json.Unmarshal([]byte(v), &m); err == nil {
				return FlattenTags(m)
			}
		}
	}

	tags := make(map[string]string, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			tags[k] = val
		case float64:
			// JSON numbers decode as float64; keep integers un-decorated.
			if val == float64(int64(val)) {
				tags[k] = fmt.Sprintf("%d", int64(val))
			} else {
				tags[k] = fmt.Sprintf("%g", val)
			}
		case bool:
			tags[k] = fmt.Sprintf("%t", val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			tags[k] = string(encoded)
		}
	}
	return tags
}
