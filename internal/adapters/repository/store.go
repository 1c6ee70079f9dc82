// Package repository reads registrations and projects and tracks runs.
package repository

import (
	"context"

	"github.com/okian/cohort/internal/domain/model"
)

// Source reads the input of an assignment run for one semester.
type Source interface {
	// Participants returns every manager and engineer registration of the
	// semester. Other roles are filtered out by the store.
	Participants(ctx context.Context, semesterID string) ([]model.Participant, error)
	// Projects returns the projects of the semester in store order.
	Projects(ctx context.Context, semesterID string) ([]model.Project, error)
}

// Sink persists a successful assignment.
type Sink interface {
	SaveAssignment(ctx context.Context, semesterID string, a model.Assignment) error
}

// RunStore tracks run progress.
type RunStore interface {
	// Create stores a new run. Returns ErrDuplicateRun if the id exists.
	Create(ctx context.Context, run model.Run) error
	// Update applies fn to the stored run and returns the result.
	// Returns ErrNotFound if the run is unknown.
	Update(ctx context.Context, id string, fn func(*model.Run)) (model.Run, error)
	// Get returns a run by id. Returns ErrNotFound if the run is unknown.
	Get(ctx context.Context, id string) (model.Run, error)
	// List returns runs newest first, at most limit of them.
	List(ctx context.Context, limit int) ([]model.Run, error)
	// Count returns the number of stored runs.
	Count(ctx context.Context) int
}
