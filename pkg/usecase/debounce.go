package usecase

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// Debouncer remembers recently notified users for a short window. Entries are
// not persisted. Freshness is judged with the injected clock; the cache itself
// only evicts entries after the window has passed in wall time.
type Debouncer struct {
	window  time.Duration
	now     func() time.Time
	entries *cache.Cache
}

// NewDebouncer creates a debouncer with the given window. A nil clock means
// time.Now.
func NewDebouncer(window time.Duration, now func() time.Time) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{
		window:  window,
		now:     now,
		entries: cache.New(window, window*2),
	}
}

// Recently reports whether id was touched within the window
func (d *Debouncer) Recently(id types.UserID) bool {
	v, found := d.entries.Get(string(id))
	if !found {
		return false
	}
	touched, ok := v.(time.Time)
	return ok && d.now().Sub(touched) < d.window
}

// Touch starts a new window for id
func (d *Debouncer) Touch(id types.UserID) {
	d.entries.SetDefault(string(id), d.now())
}
