// Package service wires the run queue, worker pool, registration source and
// assignment engine into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cohort/internal/adapters/cpsat"
	runqueue "github.com/okian/cohort/internal/adapters/mq/queue"
	workerpool "github.com/okian/cohort/internal/adapters/mq/worker"
	"github.com/okian/cohort/internal/adapters/repository"
	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/inflight"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/report"
	"github.com/okian/cohort/pkg/logger"
	"github.com/okian/cohort/pkg/metrics"
)

// Run failure reasons recorded on the run.
const (
	ReasonNoSolution = "no_solution"
	ReasonNoProjects = "no_projects"
	ReasonInvalid    = "invalid_input"
)

const defaultMaxReports = 100

// Service implements the API dependencies for the assignment system.
type Service struct {
	mu sync.RWMutex

	// Core components
	source repository.Source
	sink   repository.Sink
	runs   repository.RunStore
	guard  inflight.Guard
	engine *assignment.Engine
	queue  runqueue.Queue
	pool   *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	shuffleSeed int64
	maxReports  int

	// Reports of succeeded runs, oldest first in reportOrder.
	reportMu    sync.RWMutex
	reports     map[string][]report.Row
	reportOrder []string

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		source:      repository.NewMemorySource(),
		runs:        repository.NewRunMemoryStore(),
		guard:       inflight.NewMemoryGuard(),
		workerCount: runtime.NumCPU(),
		queueSize:   64,
		maxReports:  defaultMaxReports,
		reports:     make(map[string][]report.Row),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = assignment.New(assignment.WithLogger(s.logger.Named("engine")))
	}

	s.logger.Info(ctx, "starting assignment service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "assignment service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("timeLimit", s.engine.TimeLimit()),
	)
	return nil
}

// Stop closes the queue and waits for running solves to finish.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping assignment service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "assignment service stopped")
}

// SubmitRun queues an assignment run for a semester. A second run for a
// semester whose run is still queued or running is refused.
func (s *Service) SubmitRun(ctx context.Context, semesterID string) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Run{}, ErrNotStarted
	}
	semesterID = strings.TrimSpace(semesterID)
	if semesterID == "" {
		return model.Run{}, fmt.Errorf("%w: empty semester id", ErrInvalidRequest)
	}

	runID := uuid.NewString()
	ok, err := s.guard.Acquire(ctx, semesterID, runID)
	if err != nil {
		return model.Run{}, fmt.Errorf("acquire semester %s: %w", semesterID, err)
	}
	if !ok {
		metrics.RecordRun(metrics.OutcomeRejected)
		return model.Run{}, fmt.Errorf("%w: %s", ErrRunInProgress, semesterID)
	}

	now := time.Now()
	run := model.Run{
		ID:         runID,
		SemesterID: semesterID,
		State:      model.RunQueued,
		Seed:       s.seed(now),
		CreatedAt:  now,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.release(ctx, semesterID, runID)
		return model.Run{}, fmt.Errorf("create run: %w", err)
	}

	req := model.RunRequest{RunID: runID, SemesterID: semesterID, Seed: run.Seed, RequestedAt: now}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.finish(ctx, req, func(r *model.Run) {
			r.State = model.RunFailed
			r.Reason = err.Error()
		})
		metrics.RecordRun(metrics.OutcomeRejected)
		if errors.Is(err, runqueue.ErrFull) {
			return model.Run{}, fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return model.Run{}, fmt.Errorf("enqueue run: %w", err)
	}

	s.logger.Info(ctx, "run queued",
		logger.String("run_id", runID),
		logger.String("semester_id", semesterID),
		logger.Int64("seed", run.Seed),
	)
	return run, nil
}

func (s *Service) seed(now time.Time) int64 {
	if s.shuffleSeed != 0 {
		return s.shuffleSeed
	}
	return now.UnixNano()
}

// Execute runs one queued request. It implements worker.Runner. Expected
// outcomes, including no solution, are recorded on the run and return nil.
func (s *Service) Execute(ctx context.Context, req model.RunRequest) error {
	defer s.release(ctx, req.SemesterID, req.RunID)

	if _, err := s.runs.Update(ctx, req.RunID, func(r *model.Run) {
		r.State = model.RunRunning
		r.StartedAt = time.Now()
	}); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	if err := s.guard.Refresh(ctx, req.SemesterID, req.RunID); err != nil {
		s.logger.Warn(ctx, "refresh semester", logger.String("semester_id", req.SemesterID), logger.Error(err))
	}

	participants, err := s.source.Participants(ctx, req.SemesterID)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	projects, err := s.source.Projects(ctx, req.SemesterID)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}

	pb, err := s.engine.Prepare(participants, projects, req.Seed)
	if err != nil {
		return s.reject(ctx, req, err)
	}
	metrics.UpdateProblemSize(len(pb.Managers), len(pb.Engineers), len(pb.Projects))

	res, err := s.engine.Solve(ctx, pb)
	if err != nil {
		return fmt.Errorf("solve: %w", err)
	}
	metrics.UpdateModelSize(res.Variables, res.Constraints)
	metrics.RecordSolveDuration(res.WallTime.Seconds())

	if !res.Succeeded() {
		outcome := metrics.OutcomeInfeasible
		if res.Status == cpsat.StatusUnknown {
			outcome = metrics.OutcomeTimeout
		}
		metrics.RecordRun(outcome)
		s.finish(ctx, req, func(r *model.Run) {
			r.State = model.RunFailed
			r.SolverStatus = res.Status.String()
			r.Reason = ReasonNoSolution
		})
		return nil
	}

	if s.sink != nil {
		if err := s.sink.SaveAssignment(ctx, req.SemesterID, res.Assignment); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
	}

	s.storeReport(req.RunID, report.Build(pb, res.Assignment))
	metrics.RecordRun(metrics.OutcomeSucceeded)
	metrics.UpdateObjectiveValue(res.Objective)
	metrics.RecordPreferenceHits("1", res.Summary.FirstChoice)
	metrics.RecordPreferenceHits("2", res.Summary.SecondChoice)
	metrics.RecordPreferenceHits("3", res.Summary.ThirdChoice)
	metrics.RecordPreferenceHits("none", res.Summary.NoChoice)
	metrics.RecordPartnerMatches(res.Summary.PartnerMatches)

	s.finish(ctx, req, func(r *model.Run) {
		r.State = model.RunSucceeded
		r.SolverStatus = res.Status.String()
		r.Objective = res.Objective
		r.Summary = res.Summary
		r.Assignment = res.Assignment
	})
	s.logger.Info(ctx, "run succeeded",
		logger.String("run_id", req.RunID),
		logger.String("status", res.Status.String()),
		logger.Int64("objective", res.Objective),
		logger.Int("first_choice", res.Summary.FirstChoice),
	)
	return nil
}

// reject records a precondition failure.
func (s *Service) reject(ctx context.Context, req model.RunRequest, err error) error {
	reason := ReasonInvalid
	if errors.Is(err, assignment.ErrNoProjects) {
		reason = ReasonNoProjects
	}
	metrics.RecordRun(metrics.OutcomeInvalid)
	s.finish(ctx, req, func(r *model.Run) {
		r.State = model.RunFailed
		r.SolverStatus = cpsat.StatusModelInvalid.String()
		r.Reason = reason + ": " + err.Error()
	})
	s.logger.Warn(ctx, "run rejected",
		logger.String("run_id", req.RunID),
		logger.Error(err),
	)
	return nil
}

// Abort records an unexpected failure. It implements worker.Runner.
func (s *Service) Abort(ctx context.Context, req model.RunRequest, err error) {
	metrics.RecordRun(metrics.OutcomeFailed)
	s.finish(ctx, req, func(r *model.Run) {
		r.State = model.RunFailed
		r.Reason = err.Error()
	})
}

// finish frees the semester and then records the terminal state, so a
// caller that observes a finished run can submit the next one.
func (s *Service) finish(ctx context.Context, req model.RunRequest, fn func(*model.Run)) {
	s.release(ctx, req.SemesterID, req.RunID)
	_, err := s.runs.Update(ctx, req.RunID, func(r *model.Run) {
		fn(r)
		r.FinishedAt = time.Now()
	})
	if err != nil {
		s.logger.Error(ctx, "record run result", logger.String("run_id", req.RunID), logger.Error(err))
	}
}

func (s *Service) release(ctx context.Context, semesterID, runID string) {
	if err := s.guard.Release(ctx, semesterID, runID); err != nil && !errors.Is(err, inflight.ErrNotHolder) {
		s.logger.Warn(ctx, "release semester", logger.String("semester_id", semesterID), logger.Error(err))
	}
}

func (s *Service) storeReport(runID string, rows []report.Row) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	if len(s.reportOrder) >= s.maxReports {
		delete(s.reports, s.reportOrder[0])
		s.reportOrder = s.reportOrder[1:]
	}
	s.reports[runID] = rows
	s.reportOrder = append(s.reportOrder, runID)
}

// Run returns a run record.
func (s *Service) Run(ctx context.Context, runID string) (model.Run, error) {
	return s.runs.Get(ctx, runID)
}

// Runs returns the most recent runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]model.Run, error) {
	return s.runs.List(ctx, limit)
}

// Report returns the report table of a succeeded run.
func (s *Service) Report(ctx context.Context, runID string) ([]report.Row, error) {
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.State != model.RunSucceeded {
		return nil, fmt.Errorf("%w: run %s is %s", ErrRunNotReady, runID, run.State)
	}
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	rows, ok := s.reports[runID]
	if !ok {
		return nil, fmt.Errorf("%w: report for run %s", repository.ErrNotFound, runID)
	}
	return rows, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["runs"] = s.runs.Count(ctx)
		stats["inFlight"] = s.guard.Size()
		stats["timeLimitSeconds"] = s.engine.TimeLimit().Seconds()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.workerCount)
	}
	return stats
}
