package splitter

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// SplitByFeatures polygonises the AOI directly along a user-supplied set of
// features. Linestrings contribute their geometry, polygons their boundary;
// other geometry types are ignored. No tag filtering or clustering happens:
// the caller decides what splits.
func SplitByFeatures(aoiData []byte, featureData []byte) (*geojson.FeatureCollection, error) {
	aoi, err := ParseAOI(aoiData)
	if err != nil {
		return nil, err
	}
	fc, err := ParseFeatureCollection(featureData)
	if err != nil {
		return nil, fmt.Errorf("parsing split features: %w", err)
	}

	var lines []SplitLine
	for i, f := range fc.Features {
		id := featureID(f, i)
		switch g := f.Geometry.(type) {
		case orb.LineString:
			lines = append(lines, SplitLine{ID: id, Line: g})
		case orb.MultiLineString:
			for j, part := range g {
				lines = append(lines, SplitLine{ID: fmt.Sprintf("%s/%d", id, j), Line: part})
			}
		case orb.Polygon:
			for j, ring := range g {
				lines = append(lines, SplitLine{ID: fmt.Sprintf("%s/%d", id, j), Line: orb.LineString(ring)})
			}
		case orb.MultiPolygon:
			for j, poly := range g {
				for k, ring := range poly {
					lines = append(lines, SplitLine{ID: fmt.Sprintf("%s/%d/%d", id, j, k), Line: orb.LineString(ring)})
				}
			}
		}
	}

	subs, err := lineSplit(NewBackend(), aoi, lines)
	if err != nil {
		return nil, err
	}

	out := geojson.NewFeatureCollection()
	for _, sub := range subs {
		out.Append(geojson.NewFeature(sub.Geom))
	}
	return out, nil
}
