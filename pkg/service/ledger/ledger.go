// Package ledger remembers who has been seen, notified and actioned across
// restarts. Sets only grow; every change rewrites the whole snapshot.
package ledger

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

// Ledger is a persisted set of seen IDs plus notified and actioned aliases.
// Actioned aliases are always notified aliases too.
type Ledger struct {
	store interfaces.SnapshotStore
	name  string

	mu       sync.RWMutex
	ids      map[string]struct{}
	notified map[string]struct{}
	actioned map[string]struct{}
}

// New creates an empty ledger bound to a snapshot name. Call Load to restore
// persisted state.
func New(store interfaces.SnapshotStore, name string) *Ledger {
	return &Ledger{
		store:    store,
		name:     name,
		ids:      make(map[string]struct{}),
		notified: make(map[string]struct{}),
		actioned: make(map[string]struct{}),
	}
}

// Load replaces the in-memory state with the stored snapshot. A missing snapshot
// yields an empty ledger. A corrupt snapshot is logged and also yields an empty
// ledger; only a store failure is returned as an error.
func (l *Ledger) Load(ctx context.Context) error {
	data, err := l.store.Load(ctx, l.name)
	if err != nil {
		return goerr.Wrap(err, "failed to load ledger", goerr.V("name", l.name))
	}

	snap, err := model.ParseLedgerSnapshot(data)
	if err != nil {
		logging.From(ctx).Warn("ledger snapshot is corrupt, starting empty", "name", l.name, "error", err)
		snap = &model.LedgerSnapshot{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.ids = toSet(snap.IDs, nil)
	l.notified = toSet(snap.Usernames, model.NormalizeName)
	l.actioned = toSet(snap.Claimed, model.NormalizeName)
	for alias := range l.actioned {
		l.notified[alias] = struct{}{}
	}

	logging.From(ctx).Info("ledger loaded", "name", l.name,
		"ids", len(l.ids), "notified", len(l.notified), "actioned", len(l.actioned))
	return nil
}

// HasSeen reports whether the ID was recorded
func (l *Ledger) HasSeen(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// MarkSeen records the ID and, when given, the alias as notified
func (l *Ledger) MarkSeen(ctx context.Context, id, alias string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := add(l.ids, id)
	if a := model.NormalizeName(alias); a != "" {
		changed = add(l.notified, a) || changed
	}
	if !changed {
		return nil
	}
	return l.persist(ctx)
}

// HasNotified reports whether the alias was notified
func (l *Ledger) HasNotified(alias string) bool {
	a := model.NormalizeName(alias)
	if a == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.notified[a]
	return ok
}

// MarkNotified records the alias as notified
func (l *Ledger) MarkNotified(ctx context.Context, alias string) error {
	a := model.NormalizeName(alias)
	if a == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if !add(l.notified, a) {
		return nil
	}
	return l.persist(ctx)
}

// HasActioned reports whether the alias was actioned
func (l *Ledger) HasActioned(alias string) bool {
	a := model.NormalizeName(alias)
	if a == "" {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.actioned[a]
	return ok
}

// MarkActioned records the alias as actioned and notified
func (l *Ledger) MarkActioned(ctx context.Context, alias string) error {
	a := model.NormalizeName(alias)
	if a == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	changed := add(l.actioned, a)
	changed = add(l.notified, a) || changed
	if !changed {
		return nil
	}
	return l.persist(ctx)
}

// Size returns the number of seen IDs
func (l *Ledger) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

// persist writes the snapshot. Callers hold the write lock.
func (l *Ledger) persist(ctx context.Context) error {
	snap := &model.LedgerSnapshot{
		IDs:       keys(l.ids),
		Usernames: keys(l.notified),
		Claimed:   keys(l.actioned),
	}
	data, err := snap.Marshal()
	if err != nil {
		return err
	}
	if err := l.store.Save(ctx, l.name, data); err != nil {
		return goerr.Wrap(err, "failed to save ledger", goerr.V("name", l.name))
	}
	return nil
}

func add(set map[string]struct{}, v string) bool {
	if v == "" {
		return false
	}
	if _, ok := set[v]; ok {
		return false
	}
	set[v] = struct{}{}
	return true
}

func toSet(values []string, normalize func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
