package assignment

import "errors"

var (
	// ErrNoProjects is returned when participants exist but the semester has
	// no projects to place them in.
	ErrNoProjects = errors.New("no projects for participants")
	// ErrInvalidInput is returned for malformed registration data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInconsistentSolution is returned when a solved model does not place
	// every participant exactly once.
	ErrInconsistentSolution = errors.New("inconsistent solution")
)
