// Package report renders an assignment as a per-participant table.
package report

import (
	"sort"
	"strconv"

	"github.com/okian/cohort/internal/domain/assignment"
	"github.com/okian/cohort/internal/domain/model"
)

// Header is the column order of every rendering.
var Header = []string{
	"Name", "Email", "Role", "Project", "International",
	"Preference Met", "Partners Together",
	"Partner 1", "Partner 2", "Partner 3",
}

// Row is one participant's line of the report.
type Row struct {
	Name             string
	Email            string
	Role             model.Role
	Project          string
	International    bool
	PreferenceRank   int // 1..3, 0 when no preference was met
	PartnersTogether int
	Partners         [model.MaxPreferences]string
}

// Build lists every participant of pb ordered by display name. Partner
// columns show the matched participant's name, or the typed text in quotes
// when no match was found.
func Build(pb *assignment.Problem, a model.Assignment) []Row {
	people := pb.Participants()
	sort.SliceStable(people, func(i, j int) bool { return people[i].SortKey() < people[j].SortKey() })

	rows := make([]Row, 0, len(people))
	for _, p := range people {
		projectID := a[p.ID]
		row := Row{
			Name:           p.Name(),
			Email:          p.Email,
			Role:           p.Role,
			Project:        projectID,
			International:  p.International,
			PreferenceRank: p.PreferenceRank(projectID),
		}
		if project, ok := pb.Project(projectID); ok && project.Name != "" {
			row.Project = project.Name
		}
		for _, m := range pb.Partners(p.ID) {
			if m.Slot < 0 || m.Slot >= model.MaxPreferences {
				continue
			}
			if partner, ok := pb.Participant(m.MatchedID); ok {
				row.Partners[m.Slot] = partner.Name()
				if projectID != "" && a[partner.ID] == projectID {
					row.PartnersTogether++
				}
				continue
			}
			row.Partners[m.Slot] = strconv.Quote(m.Raw)
		}
		rows = append(rows, row)
	}
	return rows
}

// Record returns the row as strings in Header order.
func (r Row) Record() []string {
	rank := ""
	if r.PreferenceRank > 0 {
		rank = ordinal(r.PreferenceRank)
	}
	return []string{
		r.Name,
		r.Email,
		string(r.Role),
		r.Project,
		yesNo(r.International),
		rank,
		strconv.Itoa(r.PartnersTogether),
		r.Partners[0],
		r.Partners[1],
		r.Partners[2],
	}
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return strconv.Itoa(n) + "th"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
