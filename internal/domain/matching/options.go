package matching

// Option applies a configuration option to the FuzzyResolver.
type Option func(*FuzzyResolver)

// WithThreshold sets the minimum similarity (exclusive, 0..1) for a match.
func WithThreshold(threshold float64) Option {
	return func(r *FuzzyResolver) {
		if threshold >= 0 && threshold < 1 {
			r.threshold = threshold
		}
	}
}

// WithNgramSize sets the n-gram size of the candidate prefilter.
func WithNgramSize(n int) Option {
	return func(r *FuzzyResolver) {
		if n > 0 {
			r.dice.NgramSize = n
		}
	}
}
