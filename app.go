package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/geofield/tasksplit/splitter"
)

// App encapsulates the application state and dependencies
type App struct {
	Config *splitter.Config

	// CLI Flags (effectively dependencies)
	ConfigFile       string
	Boundary         string
	Extract          string
	OSMFile          string
	Source           string
	Number           int
	Meters           float64
	OutFile          string
	Seed             int64
	DumpIntermediate bool
	HTTPPort         int
	DatabaseURL      string
}

// AppOptions carries parsed CLI options into the App.
type AppOptions struct {
	ConfigFile       string
	Boundary         string
	Extract          string
	OSMFile          string
	Source           string
	Number           int
	Meters           float64
	OutFile          string
	Seed             int64
	DumpIntermediate bool
	HTTPPort         int
	DatabaseURL      string
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.Boundary = opts.Boundary
	a.Extract = opts.Extract
	a.OSMFile = opts.OSMFile
	a.Source = opts.Source
	a.Number = opts.Number
	a.Meters = opts.Meters
	a.OutFile = opts.OutFile
	a.Seed = opts.Seed
	a.DumpIntermediate = opts.DumpIntermediate
	a.HTTPPort = opts.HTTPPort
	a.DatabaseURL = opts.DatabaseURL
}

// LoadConfig loads the YAML config when given, otherwise defaults, then
// applies CLI overrides on top.
func (a *App) LoadConfig() error {
	if a.ConfigFile != "" {
		cfg, err := splitter.LoadConfig(a.ConfigFile)
		if err != nil {
			return err
		}
		a.Config = cfg
	} else {
		cfg := splitter.DefaultConfig()
		a.Config = &cfg
	}

	if a.Number > 0 {
		a.Config.TargetClusterSize = a.Number
		a.Config.MinFeatures = a.Number / 2
	}
	if a.Seed != 0 {
		a.Config.KMeansSeed = a.Seed
	}
	if a.DumpIntermediate {
		a.Config.DumpIntermediate = true
	}
	return nil
}

// RunSplit executes the feature-aware splitting pipeline.
func (a *App) RunSplit() error {
	aoiData, err := os.ReadFile(a.Boundary)
	if err != nil {
		return fmt.Errorf("reading AOI: %w", err)
	}
	aoi, err := splitter.ParseAOI(aoiData)
	if err != nil {
		return err
	}

	extract, err := a.loadExtract()
	if err != nil {
		return err
	}

	var lines []splitter.SplitLine
	var buildings []splitter.Building
	if a.DatabaseURL != "" {
		// Round-trip through PostGIS, which selects the inputs that
		// intersect the AOI; the tables are dropped again afterwards.
		lines, buildings, err = a.loadViaStore(aoi, extract)
		if err != nil {
			return err
		}
	} else {
		lines, buildings = splitter.ExtractInputs(extract, a.Config)
	}

	result, err := splitter.NewPipeline(a.Config).Run(aoi, lines, buildings)
	if err != nil {
		return err
	}
	if result.Metadata.ConvexHullApplied {
		log.Printf("MultiPolygon AOI reduced to its convex hull")
	}
	log.Printf("Split into %d tasks (%d subpolygons, %d clusters)",
		result.Metadata.Tasks, result.Metadata.SubPolygons, result.Metadata.Clusters)

	return splitter.WriteGeoJSON(a.OutFile, result.Collection)
}

// RunGrid executes the square-grid splitting mode.
func (a *App) RunGrid() error {
	aoiData, err := os.ReadFile(a.Boundary)
	if err != nil {
		return fmt.Errorf("reading AOI: %w", err)
	}
	var extractData []byte
	if a.Extract != "" {
		extractData, err = os.ReadFile(a.Extract)
		if err != nil {
			return fmt.Errorf("reading extract: %w", err)
		}
	}
	fc, err := splitter.SplitBySquare(aoiData, a.Meters, extractData)
	if err != nil {
		return err
	}
	log.Printf("Split into %d grid tasks", len(fc.Features))
	return splitter.WriteGeoJSON(a.OutFile, fc)
}

// RunFeatures splits along a user-supplied feature collection.
func (a *App) RunFeatures() error {
	aoiData, err := os.ReadFile(a.Boundary)
	if err != nil {
		return fmt.Errorf("reading AOI: %w", err)
	}
	featureData, err := os.ReadFile(a.Source)
	if err != nil {
		return fmt.Errorf("reading split features: %w", err)
	}
	fc, err := splitter.SplitByFeatures(aoiData, featureData)
	if err != nil {
		return err
	}
	log.Printf("Split into %d tasks along %s", len(fc.Features), a.Source)
	return splitter.WriteGeoJSON(a.OutFile, fc)
}

// loadExtract reads the data extract from the GeoJSON file or a local .osm
// XML file.
func (a *App) loadExtract() (*geojson.FeatureCollection, error) {
	switch {
	case a.Extract != "":
		return splitter.ParseFeatureCollectionFile(a.Extract)
	case a.OSMFile != "":
		return splitter.ExtractFromOSMFile(context.Background(), a.OSMFile)
	default:
		return nil, fmt.Errorf("feature-aware splitting needs a data extract: pass -extract or -osm")
	}
}

// loadViaStore inserts the AOI and extract into PostGIS, reads the split
// inputs back, and tears the tables down again.
func (a *App) loadViaStore(aoi *splitter.AOI, extract *geojson.FeatureCollection) ([]splitter.SplitLine, []splitter.Building, error) {
	store, err := splitter.OpenStore(a.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	defer store.Close()

	if err := store.CreateTables(); err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := store.DropTables(); err != nil {
			log.Printf("Warning: dropping split tables: %v", err)
		}
	}()

	if err := store.InsertAOI(aoi); err != nil {
		return nil, nil, err
	}
	if err := store.InsertExtract(extract); err != nil {
		return nil, nil, err
	}
	return store.LoadSplitInputs(aoi, a.Config)
}
