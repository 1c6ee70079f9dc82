// Package cpsat is a small 0-1 linear model builder backed by the gophersat
// pseudo-boolean solver. Variables are boolean, constraints are linear with
// integer coefficients and the objective is maximised.
package cpsat

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Var identifies a boolean variable of a Model. The zero value is invalid.
type Var int

// Term is a coefficient applied to a variable.
type Term struct {
	Var   Var
	Coeff int64
}

// Op is the comparison of a linear constraint.
type Op int

const (
	LessOrEqual Op = iota
	GreaterOrEqual
	Equal
)

func (o Op) String() string {
	switch o {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ErrInvalidModel is reported when a model references unknown variables or
// overflows the solver's integer range.
var ErrInvalidModel = errors.New("invalid model")

// geq is a normalised constraint: sum of weights of true literals >= atLeast.
// Literals are signed variable indices, weights are strictly positive.
type geq struct {
	lits    []int
	weights []int
	atLeast int
}

// Model collects variables, constraints and a linear objective.
type Model struct {
	names       []string
	constraints []geq
	linear      int
	objective   map[Var]int64
	offset      int64
	infeasible  bool
	err         error
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{objective: make(map[Var]int64)}
}

// NewBoolVar declares a new boolean variable.
func (m *Model) NewBoolVar(name string) Var {
	m.names = append(m.names, name)
	return Var(len(m.names))
}

// Name returns the name a variable was declared with.
func (m *Model) Name(v Var) string {
	if !m.valid(v) {
		return ""
	}
	return m.names[v-1]
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int { return len(m.names) }

// NumConstraints returns the number of linear constraints added.
func (m *Model) NumConstraints() int { return m.linear }

// Err returns the first construction error, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) valid(v Var) bool { return v > 0 && int(v) <= len(m.names) }

func (m *Model) fail(format string, args ...any) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidModel}, args...)...)
	}
}

// AddLinear adds sum(terms) op rhs.
func (m *Model) AddLinear(terms []Term, op Op, rhs int64) {
	m.linear++
	merged, ok := m.merge(terms)
	if !ok {
		return
	}
	switch op {
	case GreaterOrEqual:
		m.addGeq(merged, rhs)
	case LessOrEqual:
		m.addGeq(negate(merged), -rhs)
	case Equal:
		m.addGeq(merged, rhs)
		m.addGeq(negate(merged), -rhs)
	default:
		m.fail("unknown operator %v", op)
	}
}

// AddExactlyOne requires exactly one of vars to be true.
func (m *Model) AddExactlyOne(vars ...Var) {
	m.AddLinear(unit(vars), Equal, 1)
}

// AddAtMostOne allows at most one of vars to be true.
func (m *Model) AddAtMostOne(vars ...Var) {
	m.AddLinear(unit(vars), LessOrEqual, 1)
}

// AddImplication requires b whenever a holds.
func (m *Model) AddImplication(a, b Var) {
	m.AddLinear([]Term{{Var: b, Coeff: 1}, {Var: a, Coeff: -1}}, GreaterOrEqual, 0)
}

// AddObjectiveTerm adds coeff*v to the maximised objective.
func (m *Model) AddObjectiveTerm(v Var, coeff int64) {
	if !m.valid(v) {
		m.fail("objective references unknown variable %d", v)
		return
	}
	m.objective[v] += coeff
}

// AddObjectiveConstant adds a constant to the objective.
func (m *Model) AddObjectiveConstant(c int64) { m.offset += c }

// Objective evaluates the objective for the given values, indexed by Var-1.
func (m *Model) Objective(values []bool) int64 {
	total := m.offset
	for v, c := range m.objective {
		if int(v) <= len(values) && values[v-1] {
			total += c
		}
	}
	return total
}

// Satisfied reports whether values meet every constraint.
func (m *Model) Satisfied(values []bool) bool {
	if m.infeasible || len(values) < len(m.names) {
		return false
	}
	for _, c := range m.constraints {
		sum := 0
		for i, lit := range c.lits {
			if lit > 0 && values[lit-1] || lit < 0 && !values[-lit-1] {
				sum += c.weights[i]
			}
		}
		if sum < c.atLeast {
			return false
		}
	}
	return true
}

func unit(vars []Var) []Term {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coeff: 1}
	}
	return terms
}

func (m *Model) merge(terms []Term) ([]Term, bool) {
	acc := make(map[Var]int64, len(terms))
	for _, t := range terms {
		if !m.valid(t.Var) {
			m.fail("constraint references unknown variable %d", t.Var)
			return nil, false
		}
		acc[t.Var] += t.Coeff
	}
	out := make([]Term, 0, len(acc))
	for v, c := range acc {
		if c != 0 {
			out = append(out, Term{Var: v, Coeff: c})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out, true
}

func negate(terms []Term) []Term {
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = Term{Var: t.Var, Coeff: -t.Coeff}
	}
	return out
}

// addGeq turns sum(terms) >= rhs into positive weights over signed literals:
// a negative coefficient -a on x becomes a on not-x with rhs raised by a.
func (m *Model) addGeq(terms []Term, rhs int64) {
	c := geq{lits: make([]int, 0, len(terms)), weights: make([]int, 0, len(terms))}
	var total int64
	for _, t := range terms {
		lit, w := int(t.Var), t.Coeff
		if w < 0 {
			lit, w = -lit, -w
			rhs += w
		}
		if w > math.MaxInt32 {
			m.fail("coefficient %d out of range", t.Coeff)
			return
		}
		c.lits = append(c.lits, lit)
		c.weights = append(c.weights, int(w))
		total += w
	}
	switch {
	case rhs <= 0:
		return
	case rhs > total:
		m.infeasible = true
		return
	case rhs > math.MaxInt32:
		m.fail("bound %d out of range", rhs)
		return
	}
	c.atLeast = int(rhs)
	m.constraints = append(m.constraints, c)
}
