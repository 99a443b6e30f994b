package model

import (
	"sync"
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

const (
	// DefaultActivityRetention bounds how far back message history is kept. Every
	// window the novice rule looks at must fit inside it.
	DefaultActivityRetention = 35 * 24 * time.Hour

	rateBurstWindow = time.Minute
	rateLongWindow  = 10 * 24 * time.Hour
	rateLimitEvents = 2
)

// ActivityStats is a snapshot of one user's recorded activity
type ActivityStats struct {
	Total      int
	LastMinute int
	Last10Days int

	// Recent counts events within RecentWindow, the window asked for in Stats
	Recent       int
	RecentWindow time.Duration

	LastEventAt time.Time
}

// HasEvents reports whether any event was ever recorded
func (s ActivityStats) HasEvents() bool {
	return !s.LastEventAt.IsZero()
}

// InactiveFor reports whether no event happened within d before now. A user with
// no events at all is inactive.
func (s ActivityStats) InactiveFor(d time.Duration, now time.Time) bool {
	if !s.HasEvents() {
		return true
	}
	return now.Sub(s.LastEventAt) > d
}

// OverRateLimit reports whether the stats show a burst (two events within a
// minute) or a chatty user (two events within ten days)
func (s ActivityStats) OverRateLimit() bool {
	return s.LastMinute >= rateLimitEvents || s.Last10Days >= rateLimitEvents
}

// ActivityLog keeps a rolling window of message timestamps per user.
// Entries older than the retention window are dropped when the user's record is
// next written.
type ActivityLog struct {
	mu        sync.Mutex
	events    map[types.UserID][]time.Time
	retention time.Duration
	now       func() time.Time
}

// ActivityOption configures an ActivityLog
type ActivityOption func(*ActivityLog)

// WithActivityRetention sets the retention window
func WithActivityRetention(d time.Duration) ActivityOption {
	return func(l *ActivityLog) {
		l.retention = d
	}
}

// WithActivityClock replaces the clock used by Record and the queries
func WithActivityClock(now func() time.Time) ActivityOption {
	return func(l *ActivityLog) {
		l.now = now
	}
}

// NewActivityLog creates an empty ActivityLog
func NewActivityLog(opts ...ActivityOption) *ActivityLog {
	l := &ActivityLog{
		events:    make(map[types.UserID][]time.Time),
		retention: DefaultActivityRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends the current time to the user's history
func (l *ActivityLog) Record(id types.UserID) {
	l.RecordAt(id, l.now())
}

// RecordAt appends t to the user's history and prunes entries older than the
// retention window measured from the current time.
func (l *ActivityLog) RecordAt(id types.UserID, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.retention)
	kept := make([]time.Time, 0, len(l.events[id])+1)
	for _, ts := range append(l.events[id], t) {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.events[id] = kept
}

// CountSince returns the number of events within the trailing window
func (l *ActivityLog) CountSince(id types.UserID, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return countWithin(l.events[id], l.now(), window)
}

// IsOverRateLimit reports whether the user posted at least twice within the last
// minute or at least twice within the last ten days.
func (l *ActivityLog) IsOverRateLimit(id types.UserID) bool {
	return l.Stats(id, rateLongWindow).OverRateLimit()
}

// Stats returns a snapshot of the user's activity as of now. Recent is counted
// over recentWindow.
func (l *ActivityLog) Stats(id types.UserID, recentWindow time.Duration) ActivityStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	events := l.events[id]
	stats := ActivityStats{
		Total:        len(events),
		LastMinute:   countWithin(events, now, rateBurstWindow),
		Last10Days:   countWithin(events, now, rateLongWindow),
		Recent:       countWithin(events, now, recentWindow),
		RecentWindow: recentWindow,
	}
	for _, ts := range events {
		if ts.After(stats.LastEventAt) {
			stats.LastEventAt = ts
		}
	}
	return stats
}

// Users returns the number of users with recorded history
func (l *ActivityLog) Users() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// countWithin counts events whose age is within [0, window]
func countWithin(events []time.Time, now time.Time, window time.Duration) int {
	n := 0
	for _, ts := range events {
		age := now.Sub(ts)
		if age >= 0 && age <= window {
			n++
		}
	}
	return n
}
