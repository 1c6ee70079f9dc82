// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/cohort/internal/adapters/repository"
	service "github.com/okian/cohort/internal/app"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/report"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// SubmitRun queues a run for a semester.
	SubmitRun(ctx context.Context, semesterID string) (model.Run, error)

	// Read operations expose run progress and results.
	Run(ctx context.Context, runID string) (model.Run, error)
	Runs(ctx context.Context, limit int) ([]model.Run, error)
	Report(ctx context.Context, runID string) ([]report.Row, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	runsHandler   *RunsHandler
	reportHandler *ReportHandler
}

// NewServer creates a new API server with all handlers. maxList bounds
// GET /runs?limit=N.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxList int) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		runsHandler:   NewRunsHandler(deps, maxList),
		reportHandler: NewReportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /semesters/{id}/runs", MetricsMiddleware(s.runsHandler.HandlePostRun, "submit_run"))
	mux.HandleFunc("GET /runs", MetricsMiddleware(s.runsHandler.HandleListRuns, "list_runs"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(s.runsHandler.HandleGetRun, "get_run"))
	mux.HandleFunc("GET /runs/{id}/assignments", MetricsMiddleware(s.runsHandler.HandleGetAssignments, "get_assignments"))
	mux.HandleFunc("GET /runs/{id}/report.csv", MetricsMiddleware(s.reportHandler.HandleCSV, "report_csv"))
	mux.HandleFunc("GET /runs/{id}/report.xlsx", MetricsMiddleware(s.reportHandler.HandleXLSX, "report_xlsx"))
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

// writeServiceError maps service and store errors to a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrRunInProgress):
		writeError(w, http.StatusConflict, "run_in_progress", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrRunNotReady):
		writeError(w, http.StatusConflict, "run_not_ready", WrapKind(op, ErrConflict, err))
	case errors.Is(err, service.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
