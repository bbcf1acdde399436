package models

import "slices"

// DefaultTeamProfiles is assigned to teams created without explicit profiles.
var DefaultTeamProfiles = []string{"editors", "content-writers", "tech-devs", "cross-section"}

type Team struct {
	ID       string
	Name     string
	AdminID  string
	Profiles []string
}

func (t *Team) HasProfile(p string) bool {
	return slices.Contains(t.Profiles, p)
}

// TeamMember links a user to a team with one profile.
type TeamMember struct {
	TeamID  string
	UserID  string
	Profile string
}
