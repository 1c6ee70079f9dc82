// Package quota computes per-project headcounts for an assignment run.
//
// Headcounts are exact, not upper bounds. The pool is dealt round-robin over
// the project list, so when the pool does not divide evenly the first
// (n mod p) projects receive one extra member. Because the project list is
// shuffled once per run before dealing, the remainder lands on an arbitrary
// subset of projects rather than always on the same ones.
package quota

import (
	"math/rand"

	"github.com/okian/cohort/internal/domain/model"
)

// Quotas holds the exact manager and engineer headcount of every project,
// indexed like the project slice they were computed for.
type Quotas struct {
	Managers  []int
	Engineers []int
}

// RoundRobin returns, for each of p slots, how many of n items land in it
// when item j goes to slot j mod p. It returns nil when p <= 0.
func RoundRobin(n, p int) []int {
	if p <= 0 {
		return nil
	}
	out := make([]int, p)
	for j := 0; j < n; j++ {
		out[j%p]++
	}
	return out
}

// Compute deals managers and engineers over projects.
func Compute(managers, engineers, projects int) Quotas {
	return Quotas{
		Managers:  RoundRobin(managers, projects),
		Engineers: RoundRobin(engineers, projects),
	}
}

// Shuffle returns a shuffled copy of projects. The input is not modified.
func Shuffle(projects []model.Project, rng *rand.Rand) []model.Project {
	out := make([]model.Project, len(projects))
	copy(out, projects)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
