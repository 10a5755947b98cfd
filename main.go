package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

var (
	configFile = flag.String("config", "", "Path to YAML configuration file (optional)")
	boundary   = flag.String("boundary", "", "Polygon AOI GeoJSON file (required)")
	extract    = flag.String("extract", "", "Data extract GeoJSON file with buildings and lines")
	osmFile    = flag.String("osm", "", "Local .osm XML extract to use instead of a GeoJSON extract")
	source     = flag.String("source", "", "Split features GeoJSON file for feature splitting mode")
	number     = flag.Int("number", 0, "Average number of buildings per task (feature-aware splitting mode)")
	meters     = flag.Float64("meters", 0, "Square size in meters (grid splitting mode)")
	outFile    = flag.String("outfile", "tasks.geojson", "Output GeoJSON file")
	seed       = flag.Int64("seed", 0, "Seed for deterministic clustering")
	dumpFlag   = flag.Bool("dump-intermediate", false, "Write intermediate collections as GeoJSON for inspection")
	httpMode   = flag.Bool("http", false, "Run the HTTP splitting service")
	httpPort   = flag.Int("http-port", 8080, "HTTP server port")
)

func main() {
	flag.Parse()
	fmt.Printf("tasksplit version: %s\n", Version)

	// A .env file may supply TASKSPLIT_DB_URL for the PostGIS round-trip;
	// absence of the file is fine.
	_ = godotenv.Load()

	app := NewApp()
	app.ApplyOptions(AppOptions{
		ConfigFile:       *configFile,
		Boundary:         *boundary,
		Extract:          *extract,
		OSMFile:          *osmFile,
		Source:           *source,
		Number:           *number,
		Meters:           *meters,
		OutFile:          *outFile,
		Seed:             *seed,
		DumpIntermediate: *dumpFlag,
		HTTPPort:         *httpPort,
		DatabaseURL:      os.Getenv("TASKSPLIT_DB_URL"),
	})

	if err := app.LoadConfig(); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	if *httpMode {
		if err := app.RunServe(); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	}

	if *boundary == "" {
		fmt.Println("tasksplit splits a polygon AOI into surveyor task polygons")
		fmt.Println()
		fmt.Println("Use -boundary AOI.geojson with one of:")
		fmt.Println("  -number N    feature-aware splitting, ~N buildings per task")
		fmt.Println("  -meters M    grid splitting with M-meter squares")
		fmt.Println("  -source F    split along the features in F")
		fmt.Println("Use -extract or -osm to supply the data extract")
		fmt.Println("Use -http to run the splitting service instead")
		os.Exit(1)
	}

	var err error
	switch {
	case *number > 0:
		err = app.RunSplit()
	case *meters > 0:
		err = app.RunGrid()
	case *source != "":
		err = app.RunFeatures()
	default:
		err = fmt.Errorf("one of -number, -meters or -source is required")
	}
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}
