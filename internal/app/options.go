package service

import (
	"github.com/okian/cohort/internal/adapters/repository"
	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/inflight"
	"github.com/okian/cohort/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of concurrent solves.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued runs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets where registrations and projects are read from.
func WithSource(src repository.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithSink persists successful assignments.
func WithSink(sink repository.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithRunStore sets the run progress store.
func WithRunStore(store repository.RunStore) Option {
	return func(s *Service) {
		if store != nil {
			s.runs = store
		}
	}
}

// WithGuard sets the per-semester in-flight guard.
func WithGuard(g inflight.Guard) Option {
	return func(s *Service) {
		if g != nil {
			s.guard = g
		}
	}
}

// WithEngine sets the assignment engine.
func WithEngine(e *assignment.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithShuffleSeed fixes the project shuffle seed for every run. Zero picks
// a seed per run.
func WithShuffleSeed(seed int64) Option {
	return func(s *Service) {
		s.shuffleSeed = seed
	}
}

// WithMaxReports bounds how many report tables are kept in memory.
func WithMaxReports(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxReports = n
		}
	}
}
