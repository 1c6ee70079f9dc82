package assignment

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/okian/cohort/internal/domain/matching"
	"github.com/okian/cohort/internal/domain/model"
	"github.com/okian/cohort/internal/domain/quota"
)

// Problem is the in-memory input of one solve: the two participant groups,
// the projects in dealing order and their exact quotas.
type Problem struct {
	Managers  []model.Participant
	Engineers []model.Participant
	Projects  []model.Project
	Quotas    quota.Quotas
	Seed      int64

	partners map[string][]model.PartnerMatch
	byID     map[string]model.Participant
}

// Participants returns managers followed by engineers.
func (p *Problem) Participants() []model.Participant {
	out := make([]model.Participant, 0, len(p.Managers)+len(p.Engineers))
	out = append(out, p.Managers...)
	return append(out, p.Engineers...)
}

// Participant looks up a participant by id.
func (p *Problem) Participant(id string) (model.Participant, bool) {
	v, ok := p.byID[id]
	return v, ok
}

// Partners returns the resolved partner preferences of a participant.
func (p *Problem) Partners(id string) []model.PartnerMatch {
	return p.partners[id]
}

// Project looks up a project by id.
func (p *Problem) Project(id string) (model.Project, bool) {
	for _, pr := range p.Projects {
		if pr.ID == id {
			return pr, true
		}
	}
	return model.Project{}, false
}

// NewProblem builds a Problem from stored registrations and projects.
// Registrations whose role is not assignable, and directors, are dropped.
// Project preferences naming projects outside the list are treated as unset.
// The project list is shuffled with a source seeded by seed.
func NewProblem(participants []model.Participant, projects []model.Project, seed int64, resolver matching.Resolver) (*Problem, error) {
	known := make(map[string]struct{}, len(projects))
	for _, pr := range projects {
		if strings.TrimSpace(pr.ID) == "" {
			return nil, fmt.Errorf("%w: project with empty id", ErrInvalidInput)
		}
		if _, dup := known[pr.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate project %q", ErrInvalidInput, pr.ID)
		}
		known[pr.ID] = struct{}{}
	}

	pb := &Problem{
		Seed:     seed,
		partners: make(map[string][]model.PartnerMatch),
		byID:     make(map[string]model.Participant, len(participants)),
	}
	for _, p := range participants {
		if !p.Role.Assignable() || p.Director {
			continue
		}
		if strings.TrimSpace(p.ID) == "" {
			return nil, fmt.Errorf("%w: participant with empty id", ErrInvalidInput)
		}
		if _, dup := pb.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %q", ErrInvalidInput, p.ID)
		}
		for i, pref := range p.ProjectPrefs {
			if _, ok := known[pref]; !ok {
				p.ProjectPrefs[i] = ""
			}
		}
		pb.byID[p.ID] = p
		if p.Role == model.RoleManager {
			pb.Managers = append(pb.Managers, p)
		} else {
			pb.Engineers = append(pb.Engineers, p)
		}
	}

	if len(projects) == 0 && len(pb.byID) > 0 {
		return nil, fmt.Errorf("%w: %d participants", ErrNoProjects, len(pb.byID))
	}

	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // shuffle fairness, not security
	pb.Projects = quota.Shuffle(projects, rng)
	pb.Quotas = quota.Compute(len(pb.Managers), len(pb.Engineers), len(pb.Projects))

	if resolver != nil {
		pool := pb.Participants()
		for _, p := range pool {
			if p.PartnerPreferenceCount() == 0 {
				continue
			}
			pb.partners[p.ID] = matching.Partners(resolver, p, pool)
		}
	}
	return pb, nil
}
