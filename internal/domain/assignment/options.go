package assignment

import (
	"time"

	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/pkg/logger"
)

// Default engine configuration.
const (
	DefaultTimeLimit        = 60 * time.Second
	defaultPreferenceWeight = 1
	defaultCohesionWeight   = 1
	defaultExperienceWeight = 10
)

// Weights scales the three sub-objectives. Zero disables a component.
type Weights struct {
	Preference int64
	Cohesion   int64
	Experience int64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Preference: defaultPreferenceWeight,
		Cohesion:   defaultCohesionWeight,
		Experience: defaultExperienceWeight,
	}
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the objective weights. Negative weights are ignored.
func WithWeights(w Weights) Option {
	return func(e *Engine) {
		if w.Preference >= 0 && w.Cohesion >= 0 && w.Experience >= 0 {
			e.weights = w
		}
	}
}

// WithTimeLimit caps the wall-clock time of a single solve.
func WithTimeLimit(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeLimit = d
		}
	}
}

// WithResolver sets the partner name resolver.
func WithResolver(r matching.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
