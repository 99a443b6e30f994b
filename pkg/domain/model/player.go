package model

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// lastOnlineEpochThreshold separates the two encodings of the last-online marker:
// values below one year in seconds are "seconds since online", larger values are
// absolute epoch seconds.
const lastOnlineEpochThreshold = 31536000

var tradeAdsBadge = regexp.MustCompile(`^create_(\d+)_trade_ads$`)

// PlayerInfo is a read-only snapshot of a marketplace profile
type PlayerInfo struct {
	ID            types.PlayerID
	Name          string
	Value         int64
	RAP           int64
	Rank          *int
	LastOnline    *int64
	LastLocation  string
	TradeAdsBadge int
}

// MaxTradeAdsBadge returns the largest N among "create_N_trade_ads" badge keys,
// i.e. the highest trade-ad count threshold the player has crossed. Zero if none.
func MaxTradeAdsBadge(badges map[string]any) int {
	best := 0
	for key := range badges {
		m := tradeAdsBadge.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}

// IsRecentlyOnline reports whether the last-online marker lies within the given
// duration before now. A missing marker is never recent.
func IsRecentlyOnline(lastOnline *int64, within time.Duration, now time.Time) bool {
	if lastOnline == nil {
		return false
	}
	maxSecondsAgo := int64(within / time.Second)
	if *lastOnline < lastOnlineEpochThreshold {
		return *lastOnline <= maxSecondsAgo
	}
	return *lastOnline >= now.Unix()-maxSecondsAgo
}

// DaysSince returns the number of whole days from t to now
func DaysSince(t, now time.Time) int {
	return int(now.Sub(t) / (24 * time.Hour))
}

// FormatOwnedDays renders an ownership duration for humans
func FormatOwnedDays(days *int) string {
	if days == nil {
		return "Unknown"
	}
	d := *days
	switch {
	case d < 30:
		return fmt.Sprintf("%d days", d)
	case d < 365:
		return fmt.Sprintf("%d months", d/30)
	default:
		return fmt.Sprintf("%.1f years", float64(d)/365)
	}
}
