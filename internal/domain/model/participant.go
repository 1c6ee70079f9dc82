// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// MaxPreferences is the number of ranked slots a registration can fill,
// both for projects and for partners.
const MaxPreferences = 3

// Role partitions the registration pool.
type Role string

// Registration roles. Only managers and engineers are assigned.
const (
	RoleManager  Role = "manager"
	RoleEngineer Role = "engineer"
	RoleDirector Role = "director"
)

// ParseRole maps a stored role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manager", "mgr", "pm":
		return RoleManager, nil
	case "engineer", "eng", "se":
		return RoleEngineer, nil
	case "director":
		return RoleDirector, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Assignable reports whether registrations with this role take part in a run.
func (r Role) Assignable() bool {
	return r == RoleManager || r == RoleEngineer
}

// Experience is an engineer's self-declared programming level.
type Experience int

// Experience levels in ascending order.
const (
	ExperienceBeginner Experience = iota
	ExperienceIntermediate
	ExperienceAdvanced
)

// Experiences lists every level, used when balancing.
var Experiences = [...]Experience{ExperienceBeginner, ExperienceIntermediate, ExperienceAdvanced}

func (e Experience) String() string {
	switch e {
	case ExperienceBeginner:
		return "beginner"
	case ExperienceIntermediate:
		return "intermediate"
	case ExperienceAdvanced:
		return "advanced"
	}
	return fmt.Sprintf("experience(%d)", int(e))
}

// ParseExperience maps a stored level name to an Experience. Empty input is
// treated as beginner.
func ParseExperience(s string) (Experience, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "beginner", "novice":
		return ExperienceBeginner, nil
	case "intermediate":
		return ExperienceIntermediate, nil
	case "advanced", "expert":
		return ExperienceAdvanced, nil
	}
	return 0, fmt.Errorf("unknown experience level %q", s)
}

// Participant is a registration as read from the store. It is immutable for
// the duration of a run.
type Participant struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	Role          Role
	Director      bool
	ProjectPrefs  [MaxPreferences]string // project ids, "" when unset
	PartnerPrefs  [MaxPreferences]string // free-text names, "" when unset
	Experience    Experience
	International bool
}

// Name returns the display name used for reports and matching.
func (p Participant) Name() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// SortKey orders participants the way reports list them.
func (p Participant) SortKey() string {
	return strings.ToLower(p.LastName + "\x00" + p.FirstName + "\x00" + p.ID)
}

// ProjectPreferenceCount returns how many project slots are filled.
func (p Participant) ProjectPreferenceCount() int {
	return countSet(p.ProjectPrefs)
}

// PartnerPreferenceCount returns how many partner slots are filled.
func (p Participant) PartnerPreferenceCount() int {
	return countSet(p.PartnerPrefs)
}

// PreferenceRank returns the 1-based rank of projectID among the project
// preferences, or 0 when it was not requested.
func (p Participant) PreferenceRank(projectID string) int {
	if projectID == "" {
		return 0
	}
	for i, pref := range p.ProjectPrefs {
		if pref == projectID {
			return i + 1
		}
	}
	return 0
}

func countSet(slots [MaxPreferences]string) int {
	n := 0
	for _, s := range slots {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// Project is a semester project participants are assigned to.
type Project struct {
	ID         string
	Name       string
	SemesterID string
}

// PartnerMatch is one partner preference slot after name resolution.
type PartnerMatch struct {
	Slot      int    // 0-based preference slot
	Raw       string // free text as entered
	MatchedID string // resolved participant id, "" when unresolved
}

// Resolved reports whether the slot was matched to a participant.
func (m PartnerMatch) Resolved() bool { return m.MatchedID != "" }

// Assignment maps participant ids to project ids.
type Assignment map[string]string
