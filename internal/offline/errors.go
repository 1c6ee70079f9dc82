package offline

import "errors"

// Sentinel kinds for offline runs.
var (
	ErrUsage      = errors.New("usage")
	ErrFixture    = errors.New("invalid fixture")
	ErrNoSolution = errors.New("no solution found")
)
