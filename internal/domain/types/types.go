// Package types contains the JSON views returned by the HTTP API.
package types

import (
	"sort"
	"time"

	"github.com/okian/cohort/internal/domain/model"
)

// Run is the API view of a run record.
type Run struct {
	ID           string           `json:"run_id"`
	SemesterID   string           `json:"semester_id"`
	State        model.RunState   `json:"state"`
	SolverStatus string           `json:"solver_status,omitempty"`
	Objective    int64            `json:"objective"`
	Seed         int64            `json:"seed"`
	Reason       string           `json:"reason,omitempty"`
	Summary      model.RunSummary `json:"summary"`
	Assigned     int              `json:"assigned"`
	CreatedAt    time.Time        `json:"created_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	FinishedAt   *time.Time       `json:"finished_at,omitempty"`
}

// Placement is one participant to project pair.
type Placement struct {
	ParticipantID string `json:"participant_id"`
	ProjectID     string `json:"project_id"`
}

// Accepted is returned when a run is queued.
type Accepted struct {
	RunID string `json:"run_id"`
}

// FromRun converts a run record to its view.
func FromRun(r model.Run) Run {
	return Run{
		ID:           r.ID,
		SemesterID:   r.SemesterID,
		State:        r.State,
		SolverStatus: r.SolverStatus,
		Objective:    r.Objective,
		Seed:         r.Seed,
		Reason:       r.Reason,
		Summary:      r.Summary,
		Assigned:     len(r.Assignment),
		CreatedAt:    r.CreatedAt,
		StartedAt:    optionalTime(r.StartedAt),
		FinishedAt:   optionalTime(r.FinishedAt),
	}
}

// Placements lists an assignment ordered by participant id.
func Placements(a model.Assignment) []Placement {
	out := make([]Placement, 0, len(a))
	for participant, project := range a {
		out = append(out, Placement{ParticipantID: participant, ProjectID: project})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
