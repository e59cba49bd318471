// Package admin exposes operator endpoints for inspecting and clearing the
// interned query components.
package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ata-marzban/tsdb-query-keys/internal/aggregator"
	"github.com/ata-marzban/tsdb-query-keys/internal/store"
)

// NewHandler returns an HTTP handler for the admin API. reg is reported by
// GET /admin/aggregators.
func NewHandler(s store.Store, reg *aggregator.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /admin/reset", handleReset(s, logger))
	mux.HandleFunc("GET /admin/state", handleState(s))
	mux.HandleFunc("GET /admin/aggregators", handleAggregators(reg))
	return mux
}

func handleReset(s store.Store, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Reset()
		logger.Info("store reset", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleState(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.State())
	}
}

func handleAggregators(reg *aggregator.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"aggregators": reg.Names()})
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
