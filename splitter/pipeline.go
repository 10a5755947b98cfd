package splitter

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// voronoiRetries bounds the doubling retries after a Voronoi numeric
// failure before the run is abandoned.
const voronoiRetries = 3

// Result is the output of one pipeline run.
type Result struct {
	Tasks      []TaskPolygon
	Collection *geojson.FeatureCollection
	Metadata   RunMetadata
}

// Pipeline runs the nine-stage feature-aware split. A pipeline is single
// threaded; each stage consumes the previous stage's snapshot and produces a
// new one. Construct one per run.
type Pipeline struct {
	cfg     *Config
	backend *Backend
	runID   string
}

// NewPipeline wires a pipeline with its own backend session.
func NewPipeline(cfg *Config) *Pipeline {
	c := *cfg
	c.ApplyDefaults()
	return &Pipeline{
		cfg:     &c,
		backend: NewBackend(),
		runID:   uuid.NewString(),
	}
}

// Run splits the AOI into task polygons.
//
// Degraded inputs are handled rather than rejected: with no qualifying split
// lines the whole AOI is one subpolygon; with no buildings the subpolygons
// themselves become the tasks.
func (p *Pipeline) Run(aoi *AOI, lines []SplitLine, buildings []Building) (*Result, error) {
	if aoi == nil || len(aoi.Polygon) == 0 {
		return nil, invalidAOIError("aoi", "missing AOI")
	}
	if ok, err := p.backend.IsValidSimple(aoi.Polygon); err != nil {
		return nil, err
	} else if !ok {
		return nil, invalidAOIError("aoi", "AOI is not a simple valid polygon")
	}

	centroid, _ := planar.CentroidArea(aoi.Polygon)
	segTol := DegreesAt(p.cfg.SegmentizeMeters, centroid)
	simplifyTol := DegreesAt(p.cfg.SimplifyMeters, centroid)

	// Polygonize the AOI along the splitter linework.
	subs, err := lineSplit(p.backend, aoi, lines)
	if err != nil {
		return nil, err
	}
	log.Printf("[split] run %s: %d subpolygons from %d lines", p.runID, len(subs), len(lines))

	// Bind each building to the subpolygon containing its centroid.
	assignment, err := featureBind(p.backend, subs, buildings)
	if err != nil {
		return nil, err
	}
	p.dump("splitpolygons", subPolygonCollection(subs))

	// Merge low-count subpolygons into neighbours. With no buildings at
	// all the count criterion is meaningless and the subpolygon tiling is
	// the result, so the stage is skipped.
	if len(assignment) > 0 && len(subs) > 1 {
		arena, err := buildArena(p.backend, subs)
		if err != nil {
			return nil, err
		}
		subs, assignment, err = lowCountMerge(p.backend, arena, p.cfg, assignment)
		if err != nil {
			return nil, err
		}
		p.dump("lowfeaturecountpolygons", subPolygonCollection(subs))
	}

	// Cluster buildings within each subpolygon.
	cids := clusterBuildings(subs, buildings, assignment, p.cfg)
	clusters := countClusters(assignment, cids)
	if len(assignment) == 0 {
		log.Printf("[split] run %s: no buildings inside AOI, subpolygons become tasks", p.runID)
	}

	// Densify, tessellate, dissolve. A Voronoi numeric failure is
	// retried with a doubled segmentize length a bounded number of times.
	var prelims []prelimPolygon
	tol := segTol
	for attempt := 0; ; attempt++ {
		sites, err := densifySites(p.backend, buildings, assignment, cids, tol)
		if err != nil {
			return nil, err
		}
		if attempt == 0 {
			p.dump("dumpedpoints", siteCollection(sites))
		}

		prelims, err = voronoiDissolve(p.backend, aoi, subs, sites)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrBackend) || attempt >= voronoiRetries {
			return nil, fmt.Errorf("%w: %w", ErrVoronoiNumeric, err)
		}
		tol *= 2
		log.Printf("[split] run %s: voronoi retry %d with segment length %g°", p.runID, attempt+1, tol)
	}
	p.dump("unsimplifiedtaskpolygons", prelimCollection(prelims))

	// Simplify the shared linework and re-polygonize.
	tasks, err := simplifyTasks(p.backend, aoi, prelims, simplifyTol)
	if err != nil {
		return nil, err
	}
	if err := countBuildings(p.backend, tasks, buildings); err != nil {
		return nil, err
	}

	// Merge undersized tasks into neighbours.
	tasks, err = smallMerge(p.backend, tasks, p.cfg)
	if err != nil {
		return nil, err
	}

	collection := TaskCollection(tasks)
	p.dump("taskpolygons", collection)
	log.Printf("[split] run %s: %d tasks", p.runID, len(tasks))

	return &Result{
		Tasks:      tasks,
		Collection: collection,
		Metadata: RunMetadata{
			RunID:             p.runID,
			ConvexHullApplied: aoi.ConvexHullApplied,
			SubPolygons:       len(subs),
			Clusters:          clusters,
			Tasks:             len(tasks),
		},
	}, nil
}

// SplitByBuildings is the one-call entry point: parse the AOI and extract
// collections, run the pipeline, return the task FeatureCollection.
func SplitByBuildings(aoiData, extractData []byte, cfg *Config) (*Result, error) {
	aoi, err := ParseAOI(aoiData)
	if err != nil {
		return nil, err
	}
	extract, err := ParseFeatureCollection(extractData)
	if err != nil {
		return nil, fmt.Errorf("parsing extract: %w", err)
	}
	lines, buildings := ExtractInputs(extract, cfg)
	return NewPipeline(cfg).Run(aoi, lines, buildings)
}

func countClusters(assignment map[int]int, cids map[int]int) int {
	seen := make(map[string]struct{})
	for idx, polyID := range assignment {
		seen[clusterUID(polyID, cids[idx])] = struct{}{}
	}
	return len(seen)
}

// dump persists an intermediate collection for inspection when configured.
// Dumps are best-effort; failures are logged, never fatal.
func (p *Pipeline) dump(name string, fc *geojson.FeatureCollection) {
	if !p.cfg.DumpIntermediate || fc == nil {
		return
	}
	path := filepath.Join(p.cfg.DumpDir, fmt.Sprintf("%s-%s.geojson", p.runID, name))
	data, err := fc.MarshalJSON()
	if err != nil {
		log.Printf("[split] marshaling %s: %v", name, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("[split] writing %s: %v", path, err)
	}
}

// TaskCollection renders tasks as the output FeatureCollection, ordered by
// ascending taskid, each feature carrying only the building_count property.
func TaskCollection(tasks []TaskPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range tasks {
		f := geojson.NewFeature(t.Geom)
		f.Properties = geojson.Properties{"building_count": t.BuildingCount}
		fc.Append(f)
	}
	return fc
}

func subPolygonCollection(subs []SubPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, sub := range subs {
		f := geojson.NewFeature(sub.Geom)
		f.Properties = geojson.Properties{
			"polyid":      sub.PolyID,
			"numfeatures": sub.Count,
			"area":        sub.Area,
		}
		fc.Append(f)
	}
	return fc
}

func siteCollection(sites []SitePoint) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range sites {
		f := geojson.NewFeature(s.Pt)
		f.Properties = geojson.Properties{
			"polyid":     s.PolyID,
			"cid":        s.CID,
			"clusteruid": s.ClusterUID,
		}
		fc.Append(f)
	}
	return fc
}

func prelimCollection(prelims []prelimPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range prelims {
		f := geojson.NewFeature(p.Geom)
		f.Properties = geojson.Properties{"clusteruid": p.ClusterUID}
		fc.Append(f)
	}
	return fc
}

// WriteGeoJSON writes a FeatureCollection to a file.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON: %w", err)
	}
	return nil
}
