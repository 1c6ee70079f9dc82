package assignment

import (
	"fmt"

	"github.com/okian/cohort/internal/adapters/cpsat"
	"github.com/okian/cohort/internal/domain/model"
)

// project reads the solved decision variables back into an assignment.
func (b *builder) project(sol cpsat.Solution) (model.Assignment, error) {
	out := make(model.Assignment, len(b.people))
	for i, person := range b.people {
		placed := 0
		for p, project := range b.problem.Projects {
			if sol.Value(b.x[i][p]) {
				out[person.ID] = project.ID
				placed++
			}
		}
		if placed != 1 {
			return nil, fmt.Errorf("%w: participant %q placed %d times", ErrInconsistentSolution, person.ID, placed)
		}
	}
	return out, nil
}

// Summarize counts satisfied project preferences by rank and partner
// preferences that ended up in the same project.
func Summarize(pb *Problem, a model.Assignment) model.RunSummary {
	var s model.RunSummary
	for _, person := range pb.Participants() {
		project, ok := a[person.ID]
		if !ok {
			continue
		}
		switch person.PreferenceRank(project) {
		case 1:
			s.FirstChoice++
		case 2:
			s.SecondChoice++
		case 3:
			s.ThirdChoice++
		default:
			s.NoChoice++
		}
		for _, m := range pb.Partners(person.ID) {
			if !m.Resolved() {
				continue
			}
			s.PartnerRequests++
			if a[m.MatchedID] == project {
				s.PartnerMatches++
			}
		}
	}
	return s
}
