package model

import (
	"strings"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// Role is a privilege level in the community. A higher Position means more privilege.
type Role struct {
	Name     string
	Position int
	GroupID  string
}

// Member is a community member with the roles currently assigned
type Member struct {
	UserID      types.UserID
	Username    string
	DisplayName string
	RealName    string
	Roles       []Role
}

// Highest returns the member's most privileged role, or nil when it has none
func (m *Member) Highest() *Role {
	if m == nil || len(m.Roles) == 0 {
		return nil
	}
	highest := m.Roles[0]
	for _, r := range m.Roles[1:] {
		if r.Position > highest.Position {
			highest = r
		}
	}
	return &highest
}

// HasRole reports whether the member holds a role with the given name (case-insensitive)
func (m *Member) HasRole(name string) bool {
	if m == nil || name == "" {
		return false
	}
	for _, r := range m.Roles {
		if strings.EqualFold(r.Name, name) {
			return true
		}
	}
	return false
}

// RoleTable is the community's role hierarchy together with the names of the two
// roles the filter cares about.
type RoleTable struct {
	Roles        []Role
	NoviceRole   string
	VerifiedRole string
}

// Find returns the role with the given name (case-insensitive)
func (t *RoleTable) Find(name string) *Role {
	if t == nil || name == "" {
		return nil
	}
	for i := range t.Roles {
		if strings.EqualFold(t.Roles[i].Name, name) {
			return &t.Roles[i]
		}
	}
	return nil
}

// ByGroup returns the role bound to the given user group ID
func (t *RoleTable) ByGroup(groupID string) *Role {
	if t == nil || groupID == "" {
		return nil
	}
	for i := range t.Roles {
		if t.Roles[i].GroupID == groupID {
			return &t.Roles[i]
		}
	}
	return nil
}

// Cutoff returns the higher of the novice and verified roles. Members above it are
// considered established community members and never leads.
func (t *RoleTable) Cutoff() *Role {
	novice := t.Find(t.noviceName())
	verified := t.Find(t.verifiedName())
	switch {
	case novice == nil:
		return verified
	case verified == nil:
		return novice
	case verified.Position > novice.Position:
		return verified
	default:
		return novice
	}
}

// WithinCutoff reports whether the member's highest role is at or below the cutoff.
// Without a cutoff role or without any role the member is within.
func (t *RoleTable) WithinCutoff(m *Member) bool {
	cutoff := t.Cutoff()
	if cutoff == nil {
		return true
	}
	highest := m.Highest()
	if highest == nil {
		return true
	}
	return highest.Position <= cutoff.Position
}

// IsNovice reports whether the member sits at the novice level, excluding anyone
// holding the verified role.
func (t *RoleTable) IsNovice(m *Member) bool {
	if m == nil {
		return false
	}
	novice := t.Find(t.noviceName())
	if novice == nil {
		return false
	}
	if t.Find(t.verifiedName()) != nil && m.HasRole(t.verifiedName()) {
		return false
	}
	highest := m.Highest()
	if highest == nil {
		return true
	}
	return highest.Position <= novice.Position
}

func (t *RoleTable) noviceName() string {
	if t == nil {
		return ""
	}
	return t.NoviceRole
}

func (t *RoleTable) verifiedName() string {
	if t == nil {
		return ""
	}
	return t.VerifiedRole
}
