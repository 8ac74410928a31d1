// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/eras/internal/adapters/repository"
	"github.com/okian/eras/internal/domain/join"
	"github.com/okian/eras/internal/domain/model"
)

// maxBodyBytes bounds request bodies of the batch endpoints.
const maxBodyBytes = 64 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ExtractPeriods(ctx context.Context, records []model.ParticipationRecord) (model.Extraction, error)
	Annotate(ctx context.Context, records []model.ParticipationRecord) ([]model.AnnotatedRecord, join.Summary, error)
	Label(ctx context.Context, code string, year int) join.Match
	PeriodsFor(code string) []model.LabeledPeriod
	Reload(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	periodsHandler  *PeriodsHandler
	annotateHandler *AnnotateHandler
	labelHandler    *LabelHandler
	reloadHandler   *ReloadHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		periodsHandler:  NewPeriodsHandler(deps),
		annotateHandler: NewAnnotateHandler(deps),
		labelHandler:    NewLabelHandler(deps),
		reloadHandler:   NewReloadHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/periods/extract", MetricsMiddleware(s.periodsHandler.HandleExtract, "periods_extract"))
	mux.HandleFunc("/periods/", MetricsMiddleware(s.periodsHandler.HandleGetPeriods, "periods"))
	mux.HandleFunc("/annotate", MetricsMiddleware(s.annotateHandler.HandleAnnotate, "annotate"))
	mux.HandleFunc("/label", MetricsMiddleware(s.labelHandler.HandleLabel, "label"))
	mux.HandleFunc("/reload", MetricsMiddleware(s.reloadHandler.HandleReload, "reload"))
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

// writeServiceError maps errors returned by Dependencies to responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrMalformedRecord):
		writeError(w, http.StatusBadRequest, "malformed_record", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "not_configured", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "cancelled", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, op, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", NewKind(op, ErrMethodNotAllowed))
	return false
}
