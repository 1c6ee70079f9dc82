package offline

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/cohort/internal/domain/model"
)

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFixture, path, err)
	}
	var fx Fixture
	if err := k.UnmarshalWithConf("", &fx, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFixture, path, err)
	}
	return &fx, nil
}

// Problem converts the fixture to domain records. Preference lists longer
// than the slot count are rejected.
func (fx *Fixture) Problem() ([]model.Participant, []model.Project, error) {
	projects := make([]model.Project, len(fx.Projects))
	for i, p := range fx.Projects {
		projects[i] = model.Project{ID: p.ID, Name: p.Name, SemesterID: fx.Semester}
	}

	participants := make([]model.Participant, 0, len(fx.Participants))
	for _, fp := range fx.Participants {
		role, err := model.ParseRole(fp.Role)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: participant %s: %w", ErrFixture, fp.ID, err)
		}
		exp, err := model.ParseExperience(fp.Experience)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: participant %s: %w", ErrFixture, fp.ID, err)
		}
		if len(fp.Projects) > model.MaxPreferences || len(fp.Partners) > model.MaxPreferences {
			return nil, nil, fmt.Errorf("%w: participant %s: more than %d preferences",
				ErrFixture, fp.ID, model.MaxPreferences)
		}
		p := model.Participant{
			ID:            fp.ID,
			FirstName:     strings.TrimSpace(fp.FirstName),
			LastName:      strings.TrimSpace(fp.LastName),
			Email:         strings.TrimSpace(fp.Email),
			Role:          role,
			Director:      fp.Director,
			International: fp.International,
			Experience:    exp,
		}
		copy(p.ProjectPrefs[:], fp.Projects)
		copy(p.PartnerPrefs[:], fp.Partners)
		participants = append(participants, p)
	}
	return participants, projects, nil
}
