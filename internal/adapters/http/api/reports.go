package api

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/okian/cohort/internal/domain/report"
)

// ReportDependencies defines the interface for report reads.
type ReportDependencies interface {
	Report(ctx context.Context, runID string) ([]report.Row, error)
}

// ReportHandler renders run reports.
type ReportHandler struct {
	deps ReportDependencies
}

// NewReportHandler creates a new report handler.
func NewReportHandler(deps ReportDependencies) *ReportHandler {
	return &ReportHandler{deps: deps}
}

// HandleCSV handles GET /runs/{id}/report.csv requests.
func (h *ReportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "api.report_csv", "text/csv; charset=utf-8", "csv", report.WriteCSV)
}

// HandleXLSX handles GET /runs/{id}/report.xlsx requests.
func (h *ReportHandler) HandleXLSX(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "api.report_xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", report.WriteXLSX)
}

// render buffers the whole document so a failed write still yields a
// clean error response.
func (h *ReportHandler) render(w http.ResponseWriter, r *http.Request, op, contentType, ext string,
	write func(io.Writer, []report.Row) error,
) {
	id := r.PathValue("id")
	rows, err := h.deps.Report(r.Context(), id)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, rows); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="assignments-`+id+`.`+ext+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
