package splitter

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
)

// ExtractFromOSMFile converts a local .osm XML extract into the
// FeatureCollection shape the splitter consumes: closed building ways become
// polygons, highway/waterway/railway ways become linestrings, with tags
// placed directly in the feature properties. Fetching extracts from remote
// services is out of scope; this reads files produced by any extract tool.
func ExtractFromOSMFile(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OSM file: %w", err)
	}
	defer f.Close()

	// First pass collects everything in one scan; node locations are needed
	// to assemble way geometries.
	nodes := make(map[osm.NodeID]orb.Point)
	var ways []*osm.Way

	scanner := osmxml.New(ctx, f)
	defer scanner.Close()
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = orb.Point{o.Lon, o.Lat}
		case *osm.Way:
			ways = append(ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning OSM file: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	skipped := 0
	for _, w := range ways {
		tags := w.Tags.Map()
		isBuilding := tags["building"] != ""
		isLine := tags["highway"] != "" || tags["waterway"] != "" || tags["railway"] != ""
		if !isBuilding && !isLine {
			continue
		}

		line := make(orb.LineString, 0, len(w.Nodes))
		complete := true
		for _, wn := range w.Nodes {
			pt, ok := nodes[wn.ID]
			if !ok {
				complete = false
				break
			}
			line = append(line, pt)
		}
		if !complete || len(line) < 2 {
			skipped++
			continue
		}

		var feature *geojson.Feature
		if isBuilding && len(line) >= 4 && line[0] == line[len(line)-1] {
			feature = geojson.NewFeature(orb.Polygon{orb.Ring(line)})
		} else if isLine {
			feature = geojson.NewFeature(line)
		} else {
			skipped++
			continue
		}

		feature.Properties = geojson.Properties{"osm_id": fmt.Sprintf("%d", w.ID)}
		for k, v := range tags {
			feature.Properties[k] = v
		}
		fc.Append(feature)
	}

	if skipped > 0 {
		log.Printf("[osm] skipped %d ways with missing nodes or open building rings", skipped)
	}
	return fc, nil
}
