package assignment

import (
	"fmt"
	"sort"

	"github.com/okian/cohort/internal/adapters/cpsat"
	"github.com/okian/cohort/internal/domain/model"
)

// preferenceBudget is split over the filled slots. 12 is divisible by 1, 2
// and 3 so every score stays integral.
const preferenceBudget = 12

// preferenceScores returns the score a participant earns in each project they
// ranked. With n filled slots and sK = 1 when slot K is filled:
//
//	slot 1: 12/n + s2 + s3
//	slot 2: 12/n + s1 - s3
//	slot 3: 12/n - (s1 or s2)
//
// A project ranked twice keeps its higher score.
func preferenceScores(p model.Participant) map[string]int64 {
	var set [model.MaxPreferences]int64
	n := int64(0)
	for i, pref := range p.ProjectPrefs {
		if pref != "" {
			set[i] = 1
			n++
		}
	}
	if n == 0 {
		return nil
	}

	base := preferenceBudget / n
	slot := [model.MaxPreferences]int64{
		base + set[1] + set[2],
		base + set[0] - set[2],
		base - max(set[0], set[1]),
	}
	out := make(map[string]int64, n)
	for i, pref := range p.ProjectPrefs {
		if set[i] == 0 {
			continue
		}
		if cur, ok := out[pref]; !ok || slot[i] > cur {
			out[pref] = slot[i]
		}
	}
	return out
}

func (b *builder) addPreferenceObjective() {
	if b.weights.Preference == 0 {
		return
	}
	for i, person := range b.people {
		scores := preferenceScores(person)
		for p, project := range b.problem.Projects {
			if s := scores[project.ID]; s != 0 {
				b.model.AddObjectiveTerm(b.x[i][p], b.weights.Preference*s)
			}
		}
	}
}

type pair struct{ a, b int }

// cohesionWeights sums directed partner weights onto unordered pairs. A
// participant with n filled partner slots gives 12/n to every participant
// they named; reciprocated preferences therefore count twice.
func (b *builder) cohesionWeights() map[pair]int64 {
	out := make(map[pair]int64)
	for i, person := range b.people {
		n := int64(person.PartnerPreferenceCount())
		if n == 0 {
			continue
		}
		seen := make(map[int]bool, model.MaxPreferences)
		for _, m := range b.problem.Partners(person.ID) {
			j, ok := b.index[m.MatchedID]
			if !m.Resolved() || !ok || j == i || seen[j] {
				continue
			}
			seen[j] = true
			key := pair{a: min(i, j), b: max(i, j)}
			out[key] += preferenceBudget / n
		}
	}
	return out
}

// addCohesionObjective rewards pairs sharing a project. For each pair and
// project an auxiliary z may only hold when both members are placed there;
// maximising a positive weight on z makes it the conjunction.
func (b *builder) addCohesionObjective() {
	if b.weights.Cohesion == 0 {
		return
	}
	weights := b.cohesionWeights()
	pairs := make([]pair, 0, len(weights))
	for k := range weights {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a != pairs[j].a {
			return pairs[i].a < pairs[j].a
		}
		return pairs[i].b < pairs[j].b
	})

	for _, pr := range pairs {
		w := weights[pr] * b.weights.Cohesion
		for p, project := range b.problem.Projects {
			z := b.model.NewBoolVar(fmt.Sprintf("same[%s,%s,%s]", b.people[pr.a].ID, b.people[pr.b].ID, project.ID))
			b.model.AddImplication(z, b.x[pr.a][p])
			b.model.AddImplication(z, b.x[pr.b][p])
			b.model.AddObjectiveTerm(z, w)
		}
	}
}

// addExperienceObjective penalises, for every level and project, the scaled
// deviation |P*c - T| where c counts the level's engineers in the project,
// T counts them in the whole pool and P is the number of projects.
//
// c is unary encoded as u1 >= u2 >= ... with sum(u) = c, so the penalty is
// f(0) plus, for each k, (f(k) - f(k-1)) whenever uk holds.
func (b *builder) addExperienceObjective() {
	if b.weights.Experience == 0 || len(b.problem.Projects) == 0 {
		return
	}
	projects := int64(len(b.problem.Projects))
	for _, level := range model.Experiences {
		var rows []int
		for _, i := range b.engineers() {
			if b.people[i].Experience == level {
				rows = append(rows, i)
			}
		}
		total := int64(len(rows))
		if total == 0 {
			continue
		}
		penalty := func(c int64) int64 { return abs(projects*c - total) }

		for p, project := range b.problem.Projects {
			bound := min(total, int64(b.problem.Quotas.Engineers[p]))
			b.model.AddObjectiveConstant(-b.weights.Experience * penalty(0))

			terms := b.column(rows, p)
			var prev cpsat.Var
			for k := int64(1); k <= bound; k++ {
				u := b.model.NewBoolVar(fmt.Sprintf("exp[%s,%s,%d]", level, project.ID, k))
				terms = append(terms, cpsat.Term{Var: u, Coeff: -1})
				if prev != 0 {
					b.model.AddImplication(u, prev)
				}
				if step := penalty(k) - penalty(k-1); step != 0 {
					b.model.AddObjectiveTerm(u, -b.weights.Experience*step)
				}
				prev = u
			}
			b.model.AddLinear(terms, cpsat.Equal, 0)
		}
	}
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
