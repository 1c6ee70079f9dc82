package assignment

import (
	"fmt"

	"github.com/okian/cohort/internal/adapters/cpsat"
	"github.com/okian/cohort/internal/domain/model"
)

// builder owns the decision variables of one solve. x[i][p] holds when
// participant i (managers first, then engineers) is placed in project p.
type builder struct {
	problem *Problem
	weights Weights
	model   *cpsat.Model
	people  []model.Participant
	index   map[string]int
	x       [][]cpsat.Var
}

func newBuilder(pb *Problem, w Weights) *builder {
	b := &builder{
		problem: pb,
		weights: w,
		model:   cpsat.NewModel(),
		people:  pb.Participants(),
	}
	b.index = make(map[string]int, len(b.people))
	b.x = make([][]cpsat.Var, len(b.people))
	for i, person := range b.people {
		b.index[person.ID] = i
		b.x[i] = make([]cpsat.Var, len(pb.Projects))
		for p, project := range pb.Projects {
			b.x[i][p] = b.model.NewBoolVar(fmt.Sprintf("x[%s,%s]", person.ID, project.ID))
		}
	}
	return b
}

func (b *builder) managers() []int  { return b.span(0, len(b.problem.Managers)) }
func (b *builder) engineers() []int { return b.span(len(b.problem.Managers), len(b.people)) }

func (b *builder) span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func (b *builder) column(rows []int, p int) []cpsat.Term {
	terms := make([]cpsat.Term, len(rows))
	for k, i := range rows {
		terms[k] = cpsat.Term{Var: b.x[i][p], Coeff: 1}
	}
	return terms
}

// addConstraints adds the hard constraints: one project per participant,
// exact quotas, and the non-international manager guard.
func (b *builder) addConstraints() {
	for i := range b.people {
		b.model.AddExactlyOne(b.x[i]...)
	}

	managers, engineers := b.managers(), b.engineers()
	for p := range b.problem.Projects {
		b.model.AddLinear(b.column(managers, p), cpsat.Equal, int64(b.problem.Quotas.Managers[p]))
		b.model.AddLinear(b.column(engineers, p), cpsat.Equal, int64(b.problem.Quotas.Engineers[p]))
	}

	locals := b.localManagers()
	if len(b.problem.Projects) == 0 || len(locals) < len(b.problem.Projects) {
		return
	}
	for p := range b.problem.Projects {
		b.model.AddLinear(b.column(locals, p), cpsat.GreaterOrEqual, 1)
	}
}

func (b *builder) localManagers() []int {
	var out []int
	for _, i := range b.managers() {
		if !b.people[i].International {
			out = append(out, i)
		}
	}
	return out
}

// diversityGuarded reports whether the non-international manager constraint
// is part of the model.
func (b *builder) diversityGuarded() bool {
	return len(b.problem.Projects) > 0 && len(b.localManagers()) >= len(b.problem.Projects)
}
