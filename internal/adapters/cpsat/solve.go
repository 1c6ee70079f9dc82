package cpsat

import (
	"context"
	"time"

	"github.com/crillab/gophersat/solver"

	"github.com/okian/cohort/pkg/metrics"
)

// Solution is the result of Model.Solve.
type Solution struct {
	Status    Status
	Objective int64
	WallTime  time.Duration
	Err       error
	values    []bool
}

// Value returns the value of v in the solution.
func (s Solution) Value(v Var) bool {
	if v <= 0 || int(v) > len(s.values) {
		return false
	}
	return s.values[v-1]
}

// Solve maximises the objective within limit. A non-positive limit means no
// limit beyond ctx. Reaching the limit with an incumbent yields
// StatusFeasible, without one StatusUnknown.
func (m *Model) Solve(ctx context.Context, limit time.Duration) Solution {
	start := time.Now()
	sol := m.solve(ctx, limit)
	sol.WallTime = time.Since(start)
	return sol
}

func (m *Model) solve(ctx context.Context, limit time.Duration) Solution {
	switch {
	case m.err != nil:
		return Solution{Status: StatusModelInvalid, Err: m.err}
	case m.infeasible:
		return Solution{Status: StatusInfeasible}
	}

	referenced := make([]bool, len(m.names)+1)
	constrs := make([]solver.PBConstr, 0, len(m.constraints))
	for _, c := range m.constraints {
		for _, lit := range c.lits {
			referenced[abs(lit)] = true
		}
		constrs = append(constrs, solver.GtEq(c.lits, c.weights, c.atLeast))
	}

	// Free variables take their best objective value directly.
	values := make([]bool, len(m.names))
	var costLits []solver.Lit
	var costWeights []int
	for i := range m.names {
		v := i + 1
		w := m.objective[Var(v)]
		switch {
		case w == 0:
		case !referenced[v]:
			values[v-1] = w > 0
		case w > 0:
			costLits = append(costLits, solver.IntToLit(int32(-v)))
			costWeights = append(costWeights, int(w))
		default:
			costLits = append(costLits, solver.IntToLit(int32(v)))
			costWeights = append(costWeights, int(-w))
		}
	}

	if len(constrs) == 0 {
		return Solution{Status: StatusOptimal, Objective: m.Objective(values), values: values}
	}

	pb := solver.ParsePBConstrs(constrs)
	if len(costLits) > 0 {
		pb.SetCostFunc(costLits, costWeights)
	}
	s := solver.New(pb)

	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}

	// Optimal cannot be interrupted. Past the deadline its goroutine keeps
	// running until the search ends on its own and its results are drained.
	results := make(chan solver.Result, 1)
	go s.Optimal(results, nil)

	var incumbent []bool
	for {
		select {
		case res, ok := <-results:
			if !ok {
				if incumbent == nil {
					return Solution{Status: StatusUnknown, Err: ErrInvalidModel}
				}
				return m.finish(StatusOptimal, values, referenced, incumbent)
			}
			switch res.Status {
			case solver.Unsat:
				return Solution{Status: StatusInfeasible}
			case solver.Sat:
				incumbent = res.Model
			}
		case <-ctx.Done():
			metrics.SolverDetached(1)
			go func() {
				defer metrics.SolverDetached(-1)
				for range results {
				}
			}()
			if incumbent == nil {
				return Solution{Status: StatusUnknown, Err: ctx.Err()}
			}
			return m.finish(StatusFeasible, values, referenced, incumbent)
		}
	}
}

// finish merges a solver model into values and re-checks it against every
// constraint before reporting it with status.
func (m *Model) finish(status Status, values, referenced, found []bool) Solution {
	for i, b := range found {
		if i < len(values) && referenced[i+1] {
			values[i] = b
		}
	}
	if !m.Satisfied(values) {
		return Solution{Status: StatusUnknown, Err: ErrInvalidModel}
	}
	return Solution{Status: status, Objective: m.Objective(values), values: values}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
