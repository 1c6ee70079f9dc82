// Package assignment places semester participants into projects.
//
// A run reads a snapshot of registrations, deals exact per-project quotas
// over a shuffled project list, and hands a 0-1 model to the solver: every
// participant in exactly one project, every project filled to its quota,
// and at least one non-international manager per project when the pool has
// enough of them. The maximised objective is a weighted sum of project
// preference satisfaction, partner cohesion and engineer experience balance.
package assignment

import (
	"context"
	"time"

	"github.com/okian/cohort/internal/adapters/cpsat"
	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/pkg/logger"
)

// Result is the outcome of a solve. Assignment is empty unless Status has a
// solution.
type Result struct {
	Status      cpsat.Status
	Objective   int64
	Assignment  model.Assignment
	Summary     model.RunSummary
	Variables   int
	Constraints int
	Diversity   bool
	WallTime    time.Duration
}

// Succeeded reports whether the result carries an assignment.
func (r Result) Succeeded() bool { return r.Status.HasSolution() }

// Solver computes assignments.
type Solver interface {
	// Solve runs one bounded-time optimisation over a prepared problem.
	Solve(ctx context.Context, pb *Problem) (Result, error)
}

// Engine is the default Solver. It holds configuration only; every solve
// builds a fresh model.
type Engine struct {
	weights   Weights
	timeLimit time.Duration
	resolver  matching.Resolver
	logger    logger.Logger
}

// New creates an engine with options applied.
func New(opts ...Option) *Engine {
	e := &Engine{
		weights:   DefaultWeights(),
		timeLimit: DefaultTimeLimit,
		resolver:  matching.NewFuzzyResolver(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the configured objective weights.
func (e *Engine) Weights() Weights { return e.weights }

// TimeLimit returns the configured solve budget.
func (e *Engine) TimeLimit() time.Duration { return e.timeLimit }

// Prepare turns stored records into a Problem using the engine's resolver.
func (e *Engine) Prepare(participants []model.Participant, projects []model.Project, seed int64) (*Problem, error) {
	return NewProblem(participants, projects, seed, e.resolver)
}

// Assign prepares and solves in one call. Precondition failures return a
// Result with StatusModelInvalid and the error.
func (e *Engine) Assign(ctx context.Context, participants []model.Participant, projects []model.Project, seed int64) (Result, error) {
	pb, err := e.Prepare(participants, projects, seed)
	if err != nil {
		return Result{Status: cpsat.StatusModelInvalid, Assignment: model.Assignment{}}, err
	}
	return e.Solve(ctx, pb)
}

// Solve builds the model for pb and optimises it within the time limit.
// Infeasibility and timeouts without a solution are reported through
// Result.Status with an empty assignment, not as errors.
func (e *Engine) Solve(ctx context.Context, pb *Problem) (Result, error) {
	b := newBuilder(pb, e.weights)
	b.addConstraints()
	b.addPreferenceObjective()
	b.addCohesionObjective()
	b.addExperienceObjective()

	res := Result{
		Assignment:  model.Assignment{},
		Variables:   b.model.NumVars(),
		Constraints: b.model.NumConstraints(),
		Diversity:   b.diversityGuarded(),
	}

	e.logger.Debug(ctx, "model built",
		logger.Int("managers", len(pb.Managers)),
		logger.Int("engineers", len(pb.Engineers)),
		logger.Int("projects", len(pb.Projects)),
		logger.Int("variables", res.Variables),
		logger.Int("constraints", res.Constraints),
		logger.Bool("diversity", res.Diversity),
	)

	sol := b.model.Solve(ctx, e.timeLimit)
	res.Status = sol.Status
	res.WallTime = sol.WallTime
	if !sol.Status.HasSolution() {
		e.logger.Warn(ctx, "no assignment found",
			logger.String("status", sol.Status.String()),
			logger.Duration("wall_time", sol.WallTime),
		)
		if sol.Status == cpsat.StatusModelInvalid {
			return res, sol.Err
		}
		return res, nil
	}

	assignment, err := b.project(sol)
	if err != nil {
		res.Status = cpsat.StatusUnknown
		return res, err
	}
	res.Objective = sol.Objective
	res.Assignment = assignment
	res.Summary = Summarize(pb, assignment)

	e.logger.Info(ctx, "assignment solved",
		logger.String("status", sol.Status.String()),
		logger.Int64("objective", sol.Objective),
		logger.Duration("wall_time", sol.WallTime),
	)
	return res, nil
}
