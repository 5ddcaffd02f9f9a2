// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/semstat/internal/app"
	"github.com/okian/semstat/internal/domain/classify"
	"github.com/okian/semstat/internal/domain/engine"
	"github.com/okian/semstat/internal/domain/registry"
	"github.com/okian/semstat/internal/domain/stat"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Normalize(ctx context.Context, defID string, values map[string]float64, packageIDs []string) (classify.Result, error)
	ComputeDerivations(ctx context.Context, req engine.Request) (engine.Result, error)
	ComputeBatch(ctx context.Context, reqs []engine.Request) ([]engine.Result, error)
	Packages() []PackageInfo
}

// PackageInfo mirrors the read shape returned by package listings.
type PackageInfo = service.PackageInfo

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	packagesHandler *PackagesHandler
	previewHandler  *PreviewHandler
	batchHandler    *BatchHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		packagesHandler: NewPackagesHandler(deps),
		previewHandler:  NewPreviewHandler(deps),
		batchHandler:    NewBatchHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/packages", MetricsMiddleware(s.packagesHandler.HandleList, "packages"))
	mux.HandleFunc("/preview/normalize", MetricsMiddleware(s.previewHandler.HandleNormalize, "preview_normalize"))
	mux.HandleFunc("/preview/derive", MetricsMiddleware(s.previewHandler.HandleDerive, "preview_derive"))
	mux.HandleFunc("/compute/batch", MetricsMiddleware(s.batchHandler.HandleBatch, "compute_batch"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain and service errors onto HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	var ve *stat.ValidationError
	switch {
	case errors.Is(err, engine.ErrUnknownDefinition), errors.Is(err, registry.ErrPackageNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrBatchTooLarge), errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

// decodeBody reads a single JSON document, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
		fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, r.Method, r.URL.Path))
	return false
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
