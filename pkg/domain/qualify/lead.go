package qualify

import (
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// LeadCriteria holds the thresholds of the chat lead filter
type LeadCriteria struct {
	MinValuation        int64
	MinValuationWL      int64
	WLToken             string
	BypassPhrases       []string
	NoviceBypassPhrases []string

	// NoviceMaxTotal splits light posters from regulars. NoviceMaxRecent caps how
	// many messages a light poster may have sent within NoviceRecentWindow.
	NoviceMaxTotal      int
	NoviceMaxRecent     int
	NoviceRecentWindow  time.Duration
	NoviceDormantWindow time.Duration

	DebounceWindow time.Duration
}

// DefaultLeadCriteria returns the production thresholds
func DefaultLeadCriteria() *LeadCriteria {
	return &LeadCriteria{
		MinValuation:   200_000,
		MinValuationWL: 150_000,
		WLToken:        "w/l",
		BypassPhrases:  []string{"is this good", "dm", "help", "lf", "looking for"},
		NoviceBypassPhrases: []string{
			"help", "support", "who is good at trading", "how is this item doing",
			"need help", "trading help", "any tips", "advice", "how do i", "what should i",
		},
		NoviceMaxTotal:      50,
		NoviceMaxRecent:     5,
		NoviceRecentWindow:  14 * 24 * time.Hour,
		NoviceDormantWindow: 30 * 24 * time.Hour,
		DebounceWindow:      90 * time.Second,
	}
}

// LeadSignals is everything known about a chat user at decision time
type LeadSignals struct {
	Member *model.Member
	Roles  *model.RoleTable
	Text   string

	Activity model.ActivityStats
	Seen     bool

	// Valuation is the player's total valuation, nil when unknown (private
	// inventory or lookup failure)
	Valuation        *int64
	RecentlyNotified bool

	Now time.Time
}

// PreCheckLead runs the gates that do not need a valuation: privilege, dedup and
// novice activity. It decides whether a lookup is worth requesting.
func PreCheckLead(c *LeadCriteria, s *LeadSignals) Verdict {
	if v := checkPrivilege(s); !v.Admit {
		return v
	}
	if s.Seen {
		return Reject(types.GateDedup, "already reported")
	}
	if v := checkNovice(c, s); !v.Admit {
		return v
	}
	return Admit()
}

// Lead runs the full gate sequence in order: privilege, rate, dedup, novice
// activity, valuation, debounce. The first failing gate decides.
func Lead(c *LeadCriteria, s *LeadSignals) Verdict {
	if v := checkPrivilege(s); !v.Admit {
		return v
	}
	if s.Activity.OverRateLimit() {
		return Reject(types.GateRate, "too active (%d in last minute, %d in last 10 days)",
			s.Activity.LastMinute, s.Activity.Last10Days)
	}
	if s.Seen {
		return Reject(types.GateDedup, "already reported")
	}
	if v := checkNovice(c, s); !v.Admit {
		return v
	}
	if v := Valuation(c, s.Text, s.Valuation); !v.Admit {
		return v
	}
	if s.RecentlyNotified {
		return Reject(types.GateDebounce, "notified within %s", c.DebounceWindow)
	}
	return Admit()
}

// Valuation applies the valuation gate to a message.
//
// A win/loss question passes unless the valuation is known and below
// MinValuationWL. Otherwise a bypass phrase passes unconditionally, and anything
// else needs a known valuation of at least MinValuation.
func Valuation(c *LeadCriteria, text string, valuation *int64) Verdict {
	if HasWL(c, text) {
		if valuation != nil && *valuation < c.MinValuationWL {
			return Reject(types.GateValuation, "w/l valuation %d < %d", *valuation, c.MinValuationWL)
		}
		return Admit()
	}
	if HasBypassPhrase(c, text) {
		return Admit()
	}
	if valuation == nil {
		return Reject(types.GateValuation, "valuation unknown")
	}
	if *valuation < c.MinValuation {
		return Reject(types.GateValuation, "valuation %d < %d", *valuation, c.MinValuation)
	}
	return Admit()
}

// MeetsNoviceActivity applies the novice activity rule. A light poster (fewer than
// NoviceMaxTotal messages) qualifies when dormant for NoviceRecentWindow or quiet
// within it. A regular qualifies only after NoviceDormantWindow of silence. A user
// with no recorded messages is dormant. stats.Recent must be counted over
// NoviceRecentWindow.
func MeetsNoviceActivity(c *LeadCriteria, stats model.ActivityStats, now time.Time) bool {
	if stats.Total >= c.NoviceMaxTotal {
		return stats.InactiveFor(c.NoviceDormantWindow, now)
	}
	return stats.InactiveFor(c.NoviceRecentWindow, now) || stats.Recent <= c.NoviceMaxRecent
}

func checkPrivilege(s *LeadSignals) Verdict {
	if s.Member == nil {
		return Admit()
	}
	if !s.Roles.WithinCutoff(s.Member) {
		role := s.Member.Highest()
		return Reject(types.GatePrivilege, "role %q above cutoff", role.Name)
	}
	return Admit()
}

func checkNovice(c *LeadCriteria, s *LeadSignals) Verdict {
	if s.Member == nil || !s.Roles.IsNovice(s.Member) {
		return Admit()
	}
	if HasNoviceBypassPhrase(c, s.Text) {
		return Admit()
	}
	if !MeetsNoviceActivity(c, s.Activity, s.Now) {
		return Reject(types.GateNovice, "novice activity (%d total, %d in last %s)",
			s.Activity.Total, s.Activity.Recent, s.Activity.RecentWindow)
	}
	return Admit()
}
