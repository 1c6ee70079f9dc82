package cpsat

// Status is the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusModelInvalid
	StatusFeasible
	StatusInfeasible
	StatusOptimal
)

func (s Status) String() string {
	switch s {
	case StatusModelInvalid:
		return "MODEL_INVALID"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusOptimal:
		return "OPTIMAL"
	default:
		return "UNKNOWN"
	}
}

// HasSolution reports whether a solve with this status carries values.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}
