// Package api exposes the operational HTTP surface of each service: health,
// Prometheus metrics and a read-only debug view of in-process state.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Makar-FP/plus-smart-home-tech/internal/aggregator"
	"github.com/Makar-FP/plus-smart-home-tech/internal/registry"
)

// NewAggregatorRouter serves the aggregator's snapshots alongside the common
// endpoints.
func NewAggregatorRouter(store *aggregator.SnapshotStore, metricsHandler http.Handler) *mux.Router {
	r := newBaseRouter(metricsHandler)

	r.HandleFunc("/snapshots", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, store.Snapshots())
	}).Methods(http.MethodGet)

	r.HandleFunc("/snapshots/{hubId}", func(w http.ResponseWriter, req *http.Request) {
		hubID := mux.Vars(req)["hubId"]
		snapshot, ok := store.Snapshot(hubID)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for hub " + hubID})
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}).Methods(http.MethodGet)

	return r
}

// NewAnalyzerRouter serves the analyzer's registry view alongside the common
// endpoints.
func NewAnalyzerRouter(sensors registry.SensorRepository, scenarios registry.ScenarioRepository, metricsHandler http.Handler) *mux.Router {
	r := newBaseRouter(metricsHandler)

	r.HandleFunc("/hubs/{hubId}/sensors", func(w http.ResponseWriter, req *http.Request) {
		hubID := mux.Vars(req)["hubId"]
		list, err := sensors.SensorsByHub(req.Context(), hubID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}).Methods(http.MethodGet)

	r.HandleFunc("/hubs/{hubId}/scenarios", func(w http.ResponseWriter, req *http.Request) {
		hubID := mux.Vars(req)["hubId"]
		list, err := scenarios.ScenariosByHub(req.Context(), hubID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, list)
	}).Methods(http.MethodGet)

	return r
}

func newBaseRouter(metricsHandler http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
