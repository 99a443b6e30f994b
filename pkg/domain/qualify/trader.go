package qualify

import (
	"regexp"
	"strings"
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

var mentionToken = regexp.MustCompile(`@\S+`)

// TraderCriteria holds the thresholds of the marketplace scan filter
type TraderCriteria struct {
	MinValue             int64
	MaxRank              int
	TradeAdsBadgeCeiling int
	MinOwnedDays         int
	MinItemOwnedDays     int
	RecentlyOnlineWithin time.Duration
	ContactMarker        string
	ContactHints         []string
}

// DefaultTraderCriteria returns the production thresholds
func DefaultTraderCriteria() *TraderCriteria {
	return &TraderCriteria{
		MinValue:             200_000,
		MaxRank:              299,
		TradeAdsBadgeCeiling: 1000,
		MinOwnedDays:         60,
		MinItemOwnedDays:     180,
		RecentlyOnlineWithin: 7 * 24 * time.Hour,
		ContactMarker:        "blue app",
		ContactHints:         []string{"discord", "dm", "dms", "@", "blue app", "dc"},
	}
}

// TraderSignals is everything collected about a marketplace player
type TraderSignals struct {
	Info *model.PlayerInfo

	// OwnedDays is the oldest ownership age for the trade-ad pass, or the age of
	// the scanned item for the item pass. Nil when upstream reports no dates.
	OwnedDays *int
	Bio       string
	InRoster  bool
}

// Contact lists which contactability signals matched
type Contact struct {
	Marker   bool
	Mention  bool
	InRoster bool
	Hint     bool
}

// Any reports whether the player is reachable through at least one signal
func (c Contact) Any() bool {
	return c.Marker || c.Mention || c.InRoster || c.Hint
}

// Contactability evaluates the bio and roster presence
func Contactability(c *TraderCriteria, bio string, inRoster bool) Contact {
	lower := strings.ToLower(bio)
	return Contact{
		Marker:   c.ContactMarker != "" && strings.Contains(lower, strings.ToLower(c.ContactMarker)),
		Mention:  mentionToken.MatchString(bio),
		InRoster: inRoster,
		Hint:     containsAny(bio, c.ContactHints),
	}
}

// Trader filters a trade-ad creator. Gates in order: valuation floor, rank
// ceiling, trade-ads badge ceiling, minimum ownership age, contactability.
// The ownership gate is skipped when no ownership date is known.
func Trader(c *TraderCriteria, s *TraderSignals) Verdict {
	if v := checkProfile(c, s.Info); !v.Admit {
		return v
	}
	if v := Ownership(c, s.OwnedDays); !v.Admit {
		return v
	}
	return checkContact(c, s)
}

// ItemTrader filters an owner of a scanned item. On top of the profile gates it
// requires recent presence and a known ownership age of the item itself.
func ItemTrader(c *TraderCriteria, s *TraderSignals, now time.Time) Verdict {
	if v := checkProfile(c, s.Info); !v.Admit {
		return v
	}
	if v := Online(c, s.Info, now); !v.Admit {
		return v
	}
	if v := ItemOwnership(c, s.OwnedDays); !v.Admit {
		return v
	}
	return checkContact(c, s)
}

// Ownership applies the trade-ad ownership floor. Unknown age passes.
func Ownership(c *TraderCriteria, ownedDays *int) Verdict {
	if ownedDays != nil && *ownedDays < c.MinOwnedDays {
		return Reject(types.GateOwnership, "owned %d days < %d", *ownedDays, c.MinOwnedDays)
	}
	return Admit()
}

// ItemOwnership applies the item ownership floor. Unknown age rejects.
func ItemOwnership(c *TraderCriteria, ownedDays *int) Verdict {
	if ownedDays == nil {
		return Reject(types.GateOwnership, "no ownership date for item")
	}
	if *ownedDays < c.MinItemOwnedDays {
		return Reject(types.GateOwnership, "owned item %d days < %d", *ownedDays, c.MinItemOwnedDays)
	}
	return Admit()
}

// Online requires the player to have been seen within RecentlyOnlineWithin
func Online(c *TraderCriteria, info *model.PlayerInfo, now time.Time) Verdict {
	if info == nil || !model.IsRecentlyOnline(info.LastOnline, c.RecentlyOnlineWithin, now) {
		return Reject(types.GateOnline, "not online within %s", c.RecentlyOnlineWithin)
	}
	return Admit()
}

// Profile runs only the gates that need nothing beyond the player profile. Callers
// use it to avoid inventory requests for players that fail early.
func Profile(c *TraderCriteria, info *model.PlayerInfo) Verdict {
	return checkProfile(c, info)
}

func checkProfile(c *TraderCriteria, info *model.PlayerInfo) Verdict {
	if info == nil {
		return Reject(types.GateInfo, "no player info")
	}
	if info.Value < c.MinValue {
		return Reject(types.GateValuation, "value %d < %d", info.Value, c.MinValue)
	}
	if info.Rank != nil && *info.Rank > c.MaxRank {
		return Reject(types.GateRank, "rank %d > %d", *info.Rank, c.MaxRank)
	}
	if info.TradeAdsBadge >= c.TradeAdsBadgeCeiling {
		return Reject(types.GateTradeAds, "trade ads badge %d >= %d", info.TradeAdsBadge, c.TradeAdsBadgeCeiling)
	}
	return Admit()
}

func checkContact(c *TraderCriteria, s *TraderSignals) Verdict {
	if !Contactability(c, s.Bio, s.InRoster).Any() {
		return Reject(types.GateContact, "no contact marker, mention, roster match or hint")
	}
	return Admit()
}
