// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// CrewMember is a named sub-agent persona that may handle a turn.
type CrewMember struct {
	Name          string   `json:"name"`
	DisplayName   string   `json:"displayName"`
	Description   string   `json:"description"`
	IsDefault     bool     `json:"isDefault"`
	CollectFields []string `json:"collectFields,omitempty"`
	ToolCount     int      `json:"toolCount"`
}

// Label returns the display name, falling back to the identity key.
func (c CrewMember) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// CrewTransition describes a routing change from one crew member to another.
type CrewTransition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Reason    string `json:"reason"`
	Timestamp string `json:"timestamp"`
}

// FindCrew returns the member with the given name.
func FindCrew(roster []CrewMember, name string) (CrewMember, bool) {
	for _, c := range roster {
		if c.Name == name {
			return c, true
		}
	}
	return CrewMember{}, false
}

// DefaultCrew returns the member flagged default, else the first member.
// It returns false for an empty roster.
func DefaultCrew(roster []CrewMember) (CrewMember, bool) {
	for _, c := range roster {
		if c.IsDefault {
			return c, true
		}
	}
	if len(roster) > 0 {
		return roster[0], true
	}
	return CrewMember{}, false
}
