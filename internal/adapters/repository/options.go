package repository

// Option applies a configuration option to the RunMemoryStore.
type Option func(*RunMemoryStore)

// WithMaxRuns bounds how many runs are retained. When the bound is reached
// the oldest finished run is evicted. Values <= 0 keep every run.
func WithMaxRuns(n int) Option {
	return func(s *RunMemoryStore) {
		s.maxRuns = n
	}
}
