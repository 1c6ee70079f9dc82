package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/types"
)

const defaultListLimit = 20

// RunsDependencies defines the run operations the handler needs.
type RunsDependencies interface {
	SubmitRun(ctx context.Context, semesterID string) (model.Run, error)
	Run(ctx context.Context, runID string) (model.Run, error)
	Runs(ctx context.Context, limit int) ([]model.Run, error)
}

// RunsHandler handles run submission and status requests.
type RunsHandler struct {
	deps     RunsDependencies
	maxLimit int
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunsDependencies, maxLimit int) *RunsHandler {
	if maxLimit < 1 {
		maxLimit = defaultListLimit
	}
	return &RunsHandler{deps: deps, maxLimit: maxLimit}
}

// HandlePostRun handles POST /semesters/{id}/runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"
	run, err := h.deps.SubmitRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	w.Header().Set("Location", "/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, types.Accepted{RunID: run.ID})
}

// HandleGetRun handles GET /runs/{id} requests.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"
	run, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromRun(run))
}

// HandleListRuns handles GET /runs?limit=N requests.
func (h *RunsHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_runs"
	n := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	runs, err := h.deps.Runs(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	out := make([]types.Run, len(runs))
	for i, run := range runs {
		out[i] = types.FromRun(run)
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetAssignments handles GET /runs/{id}/assignments requests.
func (h *RunsHandler) HandleGetAssignments(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_assignments"
	run, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if run.State != model.RunSucceeded {
		writeError(w, http.StatusConflict, "run_not_ready", NewKind(op, ErrConflict))
		return
	}
	writeJSON(w, http.StatusOK, types.Placements(run.Assignment))
}
