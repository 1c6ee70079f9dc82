package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/okian/cohort/internal/domain/model"
)

// MemorySource is an in-process Source and Sink, used by the CLI and tests.
type MemorySource struct {
	mu           sync.RWMutex
	participants map[string][]model.Participant
	projects     map[string][]model.Project
	assignments  map[string]model.Assignment
}

// NewMemorySource creates an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		participants: make(map[string][]model.Participant),
		projects:     make(map[string][]model.Project),
		assignments:  make(map[string]model.Assignment),
	}
}

// AddParticipants appends registrations to a semester.
func (s *MemorySource) AddParticipants(semesterID string, ps ...model.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[semesterID] = append(s.participants[semesterID], ps...)
}

// AddProjects appends projects to a semester.
func (s *MemorySource) AddProjects(semesterID string, ps ...model.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		p.SemesterID = semesterID
		s.projects[semesterID] = append(s.projects[semesterID], p)
	}
}

// Participants implements Source.
func (s *MemorySource) Participants(_ context.Context, semesterID string) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Participant
	for _, p := range s.participants[semesterID] {
		if p.Role.Assignable() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Projects implements Source.
func (s *MemorySource) Projects(_ context.Context, semesterID string) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Project(nil), s.projects[semesterID]...), nil
}

// SaveAssignment implements Sink.
func (s *MemorySource) SaveAssignment(_ context.Context, semesterID string, a model.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(model.Assignment, len(a))
	for k, v := range a {
		cp[k] = v
	}
	s.assignments[semesterID] = cp
	return nil
}

// Assignment returns the last saved assignment of a semester.
func (s *MemorySource) Assignment(semesterID string) (model.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[semesterID]
	return a, ok
}

// RunMemoryStore keeps runs in memory.
type RunMemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*model.Run
	order   []string // creation order, oldest first
	maxRuns int
}

// NewRunMemoryStore creates an empty run store.
func NewRunMemoryStore(opts ...Option) *RunMemoryStore {
	s := &RunMemoryStore{runs: make(map[string]*model.Run)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create implements RunStore.
func (s *RunMemoryStore) Create(_ context.Context, run model.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, run.ID)
	}
	if s.maxRuns > 0 && len(s.runs) >= s.maxRuns {
		s.evictOldestFinished()
	}
	s.runs[run.ID] = &run
	s.order = append(s.order, run.ID)
	return nil
}

// evictOldestFinished must be called with s.mu held.
func (s *RunMemoryStore) evictOldestFinished() {
	for i, id := range s.order {
		if s.runs[id].State.Terminal() {
			delete(s.runs, id)
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Update implements RunStore.
func (s *RunMemoryStore) Update(_ context.Context, id string, fn func(*model.Run)) (model.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	fn(run)
	return *run, nil
}

// Get implements RunStore.
func (s *RunMemoryStore) Get(_ context.Context, id string) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return *run, nil
}

// List implements RunStore.
func (s *RunMemoryStore) List(_ context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Run, 0, min(limit, len(s.runs)))
	for _, id := range s.order {
		out = append(out, *s.runs[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count implements RunStore.
func (s *RunMemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
