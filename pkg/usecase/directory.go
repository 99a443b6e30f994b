package usecase

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// Directory is the in-memory community member list. It is replaced wholesale by
// the refresh worker and read by the filters.
type Directory struct {
	mu        sync.RWMutex
	roles     *model.RoleTable
	members   map[types.UserID]*model.Member
	updatedAt time.Time
}

// NewDirectory creates an empty directory bound to a role table
func NewDirectory(roles *model.RoleTable) *Directory {
	if roles == nil {
		roles = &model.RoleTable{}
	}
	return &Directory{
		roles:   roles,
		members: make(map[types.UserID]*model.Member),
	}
}

// Roles returns the role table used for privilege decisions
func (d *Directory) Roles() *model.RoleTable {
	return d.roles
}

// Member returns the member with the given ID, nil when unknown
func (d *Directory) Member(id types.UserID) *model.Member {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members[id]
}

// Replace swaps in a new member list
func (d *Directory) Replace(members []*model.Member, at time.Time) {
	next := make(map[types.UserID]*model.Member, len(members))
	for _, m := range members {
		if m == nil || m.UserID == "" {
			continue
		}
		next[m.UserID] = m
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = next
	d.updatedAt = at
}

// Len returns the number of known members
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.members)
}

// UpdatedAt returns when the directory was last replaced
func (d *Directory) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.updatedAt
}

// InRoster reports whether a marketplace name appears in the member list.
// Names are compared lowercased with all whitespace removed. A member matches on
// equal username, real name or display name, or when the username and the name
// contain one another.
func (d *Directory) InRoster(name string) bool {
	search := squash(name)
	if search == "" {
		return false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, m := range d.members {
		un := squash(m.Username)
		if un != "" && (un == search || strings.Contains(un, search) || strings.Contains(search, un)) {
			return true
		}
		if rn := squash(m.RealName); rn != "" && rn == search {
			return true
		}
		if dn := squash(m.DisplayName); dn != "" && dn == search {
			return true
		}
	}
	return false
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}
