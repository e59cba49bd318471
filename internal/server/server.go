// Package server exposes the query component store and PromQL translation
// over HTTP. Routes are registered on a grpc-gateway ServeMux so that errors
// carrying a gRPC status are rendered the same way as gateway errors.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/common/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ata-marzban/tsdb-query-keys/internal/promql"
	"github.com/ata-marzban/tsdb-query-keys/internal/query"
	"github.com/ata-marzban/tsdb-query-keys/internal/store"
	"github.com/ata-marzban/tsdb-query-keys/internal/wire"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server serves the /v1 REST API.
type Server struct {
	store  store.Store
	logger *slog.Logger
	mux    *runtime.ServeMux
}

// New returns a Server backed by s.
func New(s store.Store, logger *slog.Logger) (*Server, error) {
	srv := &Server{store: s, logger: logger, mux: runtime.NewServeMux()}
	routes := []struct {
		method, pattern string
		h               runtime.HandlerFunc
	}{
		{"POST", "/v1/filters", srv.putFilter},
		{"GET", "/v1/filters", srv.listFilters},
		{"GET", "/v1/filters/{fingerprint}", srv.getFilter},
		{"DELETE", "/v1/filters/{fingerprint}", srv.deleteFilter},
		{"POST", "/v1/downsamplers", srv.putDownsampler},
		{"GET", "/v1/downsamplers", srv.listDownsamplers},
		{"GET", "/v1/downsamplers/{fingerprint}", srv.getDownsampler},
		{"DELETE", "/v1/downsamplers/{fingerprint}", srv.deleteDownsampler},
		{"POST", "/v1/promql", srv.translate},
	}
	for _, rt := range routes {
		if err := srv.mux.HandlePath(rt.method, rt.pattern, rt.h); err != nil {
			return nil, err
		}
	}
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type filterEntry struct {
	Fingerprint string       `json:"fingerprint"`
	Existed     bool         `json:"existed,omitempty"`
	Filter      *wire.Filter `json:"filter"`
}

type downsamplerEntry struct {
	Fingerprint string            `json:"fingerprint"`
	Existed     bool              `json:"existed,omitempty"`
	Downsampler *wire.Downsampler `json:"downsampler"`
}

func (s *Server) putFilter(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := wire.DecodeFilter(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fp, existed, err := s.store.PutFilter(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("filter interned", "id", f.ID(), "fingerprint", fp, "existed", existed)
	writeJSON(w, http.StatusOK, filterEntry{Fingerprint: fp.String(), Existed: existed, Filter: wire.FromFilter(f)})
}

func (s *Server) getFilter(w http.ResponseWriter, r *http.Request, params map[string]string) {
	fp, err := parseFingerprint(params["fingerprint"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f, err := s.store.GetFilter(r.Context(), fp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, filterEntry{Fingerprint: fp.String(), Filter: wire.FromFilter(f)})
}

func (s *Server) listFilters(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	pageSize, err := parsePageSize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	all, err := s.store.ListFilters(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, next, err := paginate(len(all), pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries := make([]filterEntry, len(page))
	for i, idx := range page {
		entries[i] = filterEntry{Fingerprint: all[idx].Fingerprint().String(), Filter: wire.FromFilter(all[idx])}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filters":       entries,
		"nextPageToken": next,
	})
}

func (s *Server) deleteFilter(w http.ResponseWriter, r *http.Request, params map[string]string) {
	fp, err := parseFingerprint(params["fingerprint"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteFilter(r.Context(), fp); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) putDownsampler(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := wire.DecodeDownsampler(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	fp, existed, err := s.store.PutDownsampler(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("downsampler interned", "interval", d.Interval(), "aggregator", d.Aggregator(), "fingerprint", fp, "existed", existed)
	writeJSON(w, http.StatusOK, downsamplerEntry{Fingerprint: fp.String(), Existed: existed, Downsampler: wire.FromDownsampler(d)})
}

func (s *Server) getDownsampler(w http.ResponseWriter, r *http.Request, params map[string]string) {
	fp, err := parseFingerprint(params["fingerprint"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.store.GetDownsampler(r.Context(), fp)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, downsamplerEntry{Fingerprint: fp.String(), Downsampler: wire.FromDownsampler(d)})
}

func (s *Server) listDownsamplers(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	pageSize, err := parsePageSize(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	all, err := s.store.ListDownsamplers(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, next, err := paginate(len(all), pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries := make([]downsamplerEntry, len(page))
	for i, idx := range page {
		entries[i] = downsamplerEntry{Fingerprint: all[idx].Fingerprint().String(), Downsampler: wire.FromDownsampler(all[idx])}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"downsamplers":  entries,
		"nextPageToken": next,
	})
}

func (s *Server) deleteDownsampler(w http.ResponseWriter, r *http.Request, params map[string]string) {
	fp, err := parseFingerprint(params["fingerprint"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteDownsampler(r.Context(), fp); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type translateRequest struct {
	Metric      string            `json:"metric"`
	Filter      *wire.Filter      `json:"filter"`
	Downsampler *wire.Downsampler `json:"downsampler"`
	Aggregate   string            `json:"aggregate"`
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req translateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, r, status.Errorf(codes.InvalidArgument, "decode request: %v", err))
		return
	}
	if req.Metric == "" {
		s.writeError(w, r, status.Error(codes.InvalidArgument, "metric is required"))
		return
	}

	var f *query.Filter
	if req.Filter != nil {
		if f, err = req.Filter.Build(); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := f.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	var d *query.Downsampler
	if req.Downsampler != nil {
		d = req.Downsampler.Build()
	}

	expr, err := promql.Translate(req.Metric, f, d, req.Aggregate)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"query": expr.String()})
}

// writeError renders err through the gateway error handler. Errors that do
// not carry a gRPC status are client input errors.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if _, ok := status.FromError(err); !ok {
		err = status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Debug("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	_, outbound := runtime.MarshalerForRequest(s.mux, r)
	runtime.HTTPError(r.Context(), s.mux, outbound, w, r, err)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "read body: %v", err)
	}
	return body, nil
}

func parseFingerprint(s string) (model.Fingerprint, error) {
	fp, err := model.ParseFingerprint(s)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid fingerprint %q", s)
	}
	return fp, nil
}

func parsePageSize(r *http.Request) (int32, error) {
	v := r.URL.Query().Get("page_size")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return 0, status.Errorf(codes.InvalidArgument, "invalid page_size %q", v)
	}
	return int32(n), nil
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
