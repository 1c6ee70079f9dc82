package assignment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/cohort/internal/adapters/cpsat"
	"github.com/okian/cohort/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func manager(id string, international bool, prefs ...string) model.Participant {
	p := model.Participant{ID: id, FirstName: id, LastName: "Manager", Role: model.RoleManager, International: international}
	copy(p.ProjectPrefs[:], prefs)
	return p
}

func engineer(id string, level model.Experience, prefs ...string) model.Participant {
	p := model.Participant{ID: id, FirstName: id, LastName: "Engineer", Role: model.RoleEngineer, Experience: level}
	copy(p.ProjectPrefs[:], prefs)
	return p
}

func projects(ids ...string) []model.Project {
	out := make([]model.Project, len(ids))
	for i, id := range ids {
		out[i] = model.Project{ID: id, Name: "Project " + id, SemesterID: "s1"}
	}
	return out
}

func headcount(pb *Problem, a model.Assignment, role model.Role) map[string]int {
	out := make(map[string]int)
	for _, p := range pb.Participants() {
		if p.Role == role {
			out[a[p.ID]]++
		}
	}
	return out
}

func newTestEngine() *Engine {
	return New(WithTimeLimit(30 * time.Second))
}

func TestPreferenceScores(t *testing.T) {
	Convey("Given participants with different filled slots", t, func() {
		Convey("When all three slots are filled", func() {
			s := preferenceScores(model.Participant{ProjectPrefs: [3]string{"a", "b", "c"}})
			So(s, ShouldResemble, map[string]int64{"a": 6, "b": 4, "c": 3})
		})

		Convey("When only the third slot is filled", func() {
			s := preferenceScores(model.Participant{ProjectPrefs: [3]string{"", "", "c"}})
			So(s, ShouldResemble, map[string]int64{"c": 12})
		})

		Convey("When the first two slots are filled", func() {
			s := preferenceScores(model.Participant{ProjectPrefs: [3]string{"a", "b", ""}})
			So(s, ShouldResemble, map[string]int64{"a": 7, "b": 7})
		})

		Convey("When a project is ranked twice it keeps the higher score", func() {
			s := preferenceScores(model.Participant{ProjectPrefs: [3]string{"a", "b", "a"}})
			So(s["a"], ShouldEqual, 6)
			So(s["b"], ShouldEqual, 4)
		})

		Convey("When nothing is filled there are no scores", func() {
			So(preferenceScores(model.Participant{}), ShouldBeEmpty)
		})
	})
}

func TestNewProblem(t *testing.T) {
	Convey("Given stored registrations", t, func() {
		director := manager("d1", false)
		director.Director = true
		people := []model.Participant{
			manager("m1", false, "A", "Z"),
			engineer("e1", model.ExperienceBeginner),
			director,
			{ID: "x1", Role: model.Role("observer")},
		}

		Convey("When the problem is prepared", func() {
			pb, err := NewProblem(people, projects("A", "B"), 7, nil)
			So(err, ShouldBeNil)

			Convey("Then only managers and engineers remain", func() {
				So(len(pb.Managers), ShouldEqual, 1)
				So(len(pb.Engineers), ShouldEqual, 1)
				_, ok := pb.Participant("d1")
				So(ok, ShouldBeFalse)
			})

			Convey("Then preferences for unknown projects are cleared", func() {
				m, _ := pb.Participant("m1")
				So(m.ProjectPrefs, ShouldResemble, [3]string{"A", "", ""})
			})

			Convey("Then quotas cover the pool", func() {
				So(pb.Quotas.Managers[0]+pb.Quotas.Managers[1], ShouldEqual, 1)
				So(pb.Quotas.Engineers[0]+pb.Quotas.Engineers[1], ShouldEqual, 1)
			})
		})

		Convey("When the same seed is used twice", func() {
			many := projects("A", "B", "C", "D", "E", "F")
			a, _ := NewProblem(people, many, 42, nil)
			b, _ := NewProblem(people, many, 42, nil)

			Convey("Then the project order is the same", func() {
				So(a.Projects, ShouldResemble, b.Projects)
			})
		})

		Convey("When a participant id repeats", func() {
			_, err := NewProblem(append(people, manager("m1", true)), projects("A"), 1, nil)
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When a project id repeats", func() {
			_, err := NewProblem(people, projects("A", "A"), 1, nil)
			So(errors.Is(err, ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When there are no projects", func() {
			_, err := NewProblem(people, nil, 1, nil)
			So(errors.Is(err, ErrNoProjects), ShouldBeTrue)
		})
	})
}

func TestSolvePreferenceSensitivity(t *testing.T) {
	Convey("Given 3 managers, 6 engineers and 3 projects with compatible first choices", t, func() {
		people := []model.Participant{
			manager("m1", false, "A"),
			manager("m2", false, "B"),
			manager("m3", false, "C"),
			engineer("e1", model.ExperienceBeginner, "A"),
			engineer("e2", model.ExperienceBeginner, "A"),
			engineer("e3", model.ExperienceBeginner, "B"),
			engineer("e4", model.ExperienceBeginner, "B"),
			engineer("e5", model.ExperienceBeginner, "C"),
			engineer("e6", model.ExperienceBeginner, "C"),
		}
		e := newTestEngine()

		Convey("When solved", func() {
			res, err := e.Assign(context.Background(), people, projects("A", "B", "C"), 11)
			So(err, ShouldBeNil)

			Convey("Then everyone gets their first choice", func() {
				So(res.Succeeded(), ShouldBeTrue)
				So(res.Status, ShouldEqual, cpsat.StatusOptimal)
				for _, p := range people {
					So(res.Assignment[p.ID], ShouldEqual, p.ProjectPrefs[0])
				}
				So(res.Summary.FirstChoice, ShouldEqual, 9)
				So(res.Summary.NoChoice, ShouldEqual, 0)
			})

			Convey("Then the objective is the full preference budget", func() {
				So(res.Objective, ShouldEqual, 9*12)
				So(res.Diversity, ShouldBeTrue)
				So(res.Variables, ShouldBeGreaterThan, 27)
			})
		})
	})
}

func TestSolveTotalityAndQuotas(t *testing.T) {
	Convey("Given a pool that does not divide evenly", t, func() {
		people := []model.Participant{
			manager("m1", true),
			manager("m2", false, "B"),
			engineer("e1", model.ExperienceBeginner, "A", "B"),
			engineer("e2", model.ExperienceAdvanced, "C"),
			engineer("e3", model.ExperienceIntermediate),
			engineer("e4", model.ExperienceBeginner, "", "", "A"),
			engineer("e5", model.ExperienceAdvanced, "B"),
		}
		e := newTestEngine()
		pb, err := e.Prepare(people, projects("A", "B", "C"), 5)
		So(err, ShouldBeNil)

		Convey("When solved", func() {
			res, err := e.Solve(context.Background(), pb)
			So(err, ShouldBeNil)
			So(res.Succeeded(), ShouldBeTrue)

			Convey("Then every participant appears exactly once", func() {
				So(len(res.Assignment), ShouldEqual, len(people))
				for _, p := range people {
					_, ok := pb.Project(res.Assignment[p.ID])
					So(ok, ShouldBeTrue)
				}
			})

			Convey("Then every project meets its exact quota", func() {
				managers := headcount(pb, res.Assignment, model.RoleManager)
				engineers := headcount(pb, res.Assignment, model.RoleEngineer)
				sumM, sumE := 0, 0
				for i, project := range pb.Projects {
					So(managers[project.ID], ShouldEqual, pb.Quotas.Managers[i])
					So(engineers[project.ID], ShouldEqual, pb.Quotas.Engineers[i])
					sumM += pb.Quotas.Managers[i]
					sumE += pb.Quotas.Engineers[i]
				}
				So(sumM, ShouldEqual, 2)
				So(sumE, ShouldEqual, 5)
			})

			Convey("Then the guard is off with fewer local managers than projects", func() {
				So(res.Diversity, ShouldBeFalse)
			})
		})

		Convey("When solved twice with the same seed", func() {
			again, err := e.Prepare(people, projects("A", "B", "C"), 5)
			So(err, ShouldBeNil)
			first, _ := e.Solve(context.Background(), pb)
			second, _ := e.Solve(context.Background(), again)

			Convey("Then the objective value is the same", func() {
				So(first.Status, ShouldEqual, cpsat.StatusOptimal)
				So(second.Objective, ShouldEqual, first.Objective)
			})
		})
	})
}

func TestSolveDiversityGuard(t *testing.T) {
	Convey("Given local managers who all prefer the same project", t, func() {
		people := []model.Participant{
			manager("l1", false, "A"),
			manager("l2", false, "A"),
			manager("i1", true, "B"),
			manager("i2", true, "B"),
		}

		Convey("When there are as many local managers as projects", func() {
			res, err := newTestEngine().Assign(context.Background(), people, projects("A", "B"), 3)
			So(err, ShouldBeNil)

			Convey("Then every project gets a local manager", func() {
				So(res.Succeeded(), ShouldBeTrue)
				So(res.Diversity, ShouldBeTrue)
				So(res.Assignment["l1"], ShouldNotEqual, res.Assignment["l2"])
				So(res.Assignment["i1"], ShouldNotEqual, res.Assignment["i2"])
			})
		})
	})

	Convey("Given fewer local managers than projects", t, func() {
		people := []model.Participant{
			manager("l1", false, "A"),
			manager("i1", true, "A"),
			manager("i2", true, "B"),
			manager("i3", true, "B"),
		}

		Convey("When solved", func() {
			res, err := newTestEngine().Assign(context.Background(), people, projects("A", "B"), 3)
			So(err, ShouldBeNil)

			Convey("Then the guard is omitted and the solve still succeeds", func() {
				So(res.Succeeded(), ShouldBeTrue)
				So(res.Diversity, ShouldBeFalse)
				So(res.Summary.FirstChoice, ShouldEqual, 4)
			})
		})
	})
}

func TestSolvePartnerCohesion(t *testing.T) {
	Convey("Given two engineers naming each other", t, func() {
		ada := engineer("e1", model.ExperienceBeginner)
		ada.FirstName, ada.LastName = "Ada", "Adams"
		ada.PartnerPrefs[0] = "Bea Brown"
		bea := engineer("e2", model.ExperienceBeginner)
		bea.FirstName, bea.LastName = "Bea", "Brown"
		bea.PartnerPrefs[0] = "ada adams"
		cy := engineer("e3", model.ExperienceBeginner)
		cy.FirstName, cy.LastName = "Cy", "Chen"
		di := engineer("e4", model.ExperienceBeginner)
		di.FirstName, di.LastName = "Di", "Diaz"

		e := newTestEngine()
		pb, err := e.Prepare([]model.Participant{ada, cy, bea, di}, projects("A", "B"), 9)
		So(err, ShouldBeNil)

		Convey("Then the names resolve to each other", func() {
			So(pb.Partners("e1")[0].MatchedID, ShouldEqual, "e2")
			So(pb.Partners("e2")[0].MatchedID, ShouldEqual, "e1")
		})

		Convey("When solved", func() {
			res, err := e.Solve(context.Background(), pb)
			So(err, ShouldBeNil)

			Convey("Then they share a project and both directions count", func() {
				So(res.Succeeded(), ShouldBeTrue)
				So(res.Assignment["e1"], ShouldEqual, res.Assignment["e2"])
				So(res.Objective, ShouldEqual, 24)
				So(res.Summary.PartnerRequests, ShouldEqual, 2)
				So(res.Summary.PartnerMatches, ShouldEqual, 2)
			})
		})
	})
}

func TestSolveExperienceBalance(t *testing.T) {
	Convey("Given two engineers per level and both advanced engineers wanting project A", t, func() {
		people := []model.Participant{
			engineer("b1", model.ExperienceBeginner),
			engineer("b2", model.ExperienceBeginner),
			engineer("i1", model.ExperienceIntermediate),
			engineer("i2", model.ExperienceIntermediate),
			engineer("a1", model.ExperienceAdvanced, "A"),
			engineer("a2", model.ExperienceAdvanced, "A"),
		}

		Convey("When solved", func() {
			res, err := newTestEngine().Assign(context.Background(), people, projects("A", "B", "C"), 2)
			So(err, ShouldBeNil)
			So(res.Succeeded(), ShouldBeTrue)

			Convey("Then no project holds two engineers of the same level", func() {
				seen := make(map[string]bool)
				for _, p := range people {
					key := res.Assignment[p.ID] + "/" + p.Experience.String()
					So(seen[key], ShouldBeFalse)
					seen[key] = true
				}
			})

			Convey("Then one advanced engineer still gets project A", func() {
				So(res.Summary.FirstChoice, ShouldEqual, 1)
			})
		})
	})
}

func TestSolveEdgeCases(t *testing.T) {
	Convey("Given no participants and some projects", t, func() {
		res, err := newTestEngine().Assign(context.Background(), nil, projects("A", "B"), 1)

		Convey("Then the run trivially succeeds with an empty assignment", func() {
			So(err, ShouldBeNil)
			So(res.Succeeded(), ShouldBeTrue)
			So(res.Assignment, ShouldBeEmpty)
			So(res.Objective, ShouldEqual, 0)
		})
	})

	Convey("Given participants and no projects", t, func() {
		res, err := newTestEngine().Assign(context.Background(), []model.Participant{engineer("e1", model.ExperienceBeginner)}, nil, 1)

		Convey("Then there is no solution and no panic", func() {
			So(errors.Is(err, ErrNoProjects), ShouldBeTrue)
			So(res.Succeeded(), ShouldBeFalse)
			So(res.Status, ShouldEqual, cpsat.StatusModelInvalid)
			So(res.Assignment, ShouldBeEmpty)
		})
	})

	Convey("Given an engine with custom options", t, func() {
		e := New(WithWeights(Weights{Preference: 2, Cohesion: 0, Experience: 5}), WithTimeLimit(time.Second), WithWeights(Weights{Preference: -1}))

		Convey("Then valid options apply and invalid ones are ignored", func() {
			So(e.Weights(), ShouldResemble, Weights{Preference: 2, Cohesion: 0, Experience: 5})
			So(e.TimeLimit(), ShouldEqual, time.Second)
			So(New().Weights(), ShouldResemble, DefaultWeights())
			So(New().TimeLimit(), ShouldEqual, DefaultTimeLimit)
		})
	})
}

// largeCohort builds a semester with random project and partner preferences.
func largeCohort(managers, engineers, projectCount int) ([]model.Participant, []model.Project) {
	rng := rand.New(rand.NewSource(11))
	ids := make([]string, projectCount)
	for i := range ids {
		ids[i] = fmt.Sprintf("P%02d", i)
	}
	pick := func() []string {
		perm := rng.Perm(projectCount)
		return []string{ids[perm[0]], ids[perm[1]], ids[perm[2]]}
	}
	levels := []model.Experience{model.ExperienceBeginner, model.ExperienceIntermediate, model.ExperienceAdvanced}

	var people []model.Participant
	for i := 0; i < managers; i++ {
		people = append(people, manager(fmt.Sprintf("m%d", i), i%2 == 0, pick()...))
	}
	for i := 0; i < engineers; i++ {
		e := engineer(fmt.Sprintf("e%d", i), levels[rng.Intn(len(levels))], pick()...)
		for slot := 0; slot < 2; slot++ {
			e.PartnerPrefs[slot] = fmt.Sprintf("e%d Engineer", rng.Intn(engineers))
		}
		people = append(people, e)
	}
	return people, projects(ids...)
}

func TestSolveTimeBudget(t *testing.T) {
	Convey("Given 10 managers, 50 engineers and 10 projects", t, func() {
		people, projs := largeCohort(10, 50, 10)
		e := New(WithTimeLimit(300 * time.Millisecond))
		pb, err := e.Prepare(people, projs, 3)
		So(err, ShouldBeNil)

		Convey("When the budget runs out before optimality is proven", func() {
			res, err := e.Solve(context.Background(), pb)
			So(err, ShouldBeNil)

			Convey("Then the best assignment found is kept as feasible", func() {
				So(res.Status, ShouldEqual, cpsat.StatusFeasible)
				So(res.Succeeded(), ShouldBeTrue)
				So(res.WallTime, ShouldBeLessThan, 2*time.Second)
			})

			Convey("Then it is total and meets every quota", func() {
				So(len(res.Assignment), ShouldEqual, len(people))
				managers := headcount(pb, res.Assignment, model.RoleManager)
				engineers := headcount(pb, res.Assignment, model.RoleEngineer)
				for i, project := range pb.Projects {
					So(managers[project.ID], ShouldEqual, pb.Quotas.Managers[i])
					So(engineers[project.ID], ShouldEqual, pb.Quotas.Engineers[i])
				}
			})
		})

		Convey("When the context ends before any assignment is found", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := e.Solve(ctx, pb)

			Convey("Then the status is unknown and the assignment empty", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, cpsat.StatusUnknown)
				So(res.Succeeded(), ShouldBeFalse)
				So(res.Assignment, ShouldBeEmpty)
			})
		})
	})
}
