package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/geofield/tasksplit/splitter"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(app *App) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding health status: %v", err)
		}
	})

	// Feature-aware splitting endpoint
	mux.HandleFunc("/split/average-building", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			AOI          json.RawMessage `json:"aoi"`
			OSMExtract   json.RawMessage `json:"osm_extract"`
			NumBuildings int             `json:"num_buildings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if len(req.AOI) == 0 || len(req.OSMExtract) == 0 {
			http.Error(w, "aoi and osm_extract are required", http.StatusUnprocessableEntity)
			return
		}

		cfg := *app.Config
		if req.NumBuildings > 0 {
			cfg.TargetClusterSize = req.NumBuildings
			cfg.MinFeatures = req.NumBuildings / 2
		}

		log.Printf("[HTTP] /split/average-building from %s (T=%d)", r.RemoteAddr, cfg.TargetClusterSize)
		result, err := splitter.SplitByBuildings(req.AOI, req.OSMExtract, &cfg)
		if err != nil {
			writeSplitError(w, err)
			return
		}
		writeCollection(w, result.Collection)
	})

	// Grid splitting endpoint
	mux.HandleFunc("/split/squares", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			AOI        json.RawMessage `json:"aoi"`
			OSMExtract json.RawMessage `json:"osm_extract"`
			Dimension  float64         `json:"dimension"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
			return
		}
		if len(req.AOI) == 0 {
			http.Error(w, "aoi is required", http.StatusUnprocessableEntity)
			return
		}
		if req.Dimension <= 0 {
			req.Dimension = 100
		}

		log.Printf("[HTTP] /split/squares from %s (%gm)", r.RemoteAddr, req.Dimension)
		fc, err := splitter.SplitBySquare(req.AOI, req.Dimension, req.OSMExtract)
		if err != nil {
			writeSplitError(w, err)
			return
		}
		writeCollection(w, fc)
	})

	return mux
}

func writeCollection(w http.ResponseWriter, fc interface{ MarshalJSON() ([]byte, error) }) {
	data, err := fc.MarshalJSON()
	if err != nil {
		http.Error(w, fmt.Sprintf("encoding result: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeSplitError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if splitterInputError(err) {
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func splitterInputError(err error) bool {
	return errors.Is(err, splitter.ErrInvalidAOI)
}

// RunServe starts the HTTP splitting service.
func (a *App) RunServe() error {
	addr := fmt.Sprintf(":%d", a.HTTPPort)
	log.Printf("Starting HTTP splitting service on %s", addr)
	return http.ListenAndServe(addr, newHTTPServer(a))
}
