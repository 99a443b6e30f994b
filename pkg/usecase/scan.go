package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/qualify"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	"github.com/secmon-lab/tradescout/pkg/utils/errutil"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	// ScanLedgerSnapshot is the snapshot name of the scan ledger
	ScanLedgerSnapshot = "scan_logged"
	// ScanItemsSnapshot lists the item IDs of the item pass
	ScanItemsSnapshot = "scan_items"

	DefaultNotifyPause = 1500 * time.Millisecond
	DefaultItemPause   = 2 * time.Second

	// skip reasons beyond this count per gate are only counted
	maxSkipLogs = 3
)

// ScanConfig controls pacing between notifications
type ScanConfig struct {
	NotifyPause time.Duration
	ItemPause   time.Duration
}

// ScanStats counts the outcome of one pass
type ScanStats struct {
	Candidates int
	Reported   int
	Skipped    map[types.Gate]int
}

func newScanStats() *ScanStats {
	return &ScanStats{Skipped: make(map[types.Gate]int)}
}

// skip counts a rejection and reports whether it should still be logged
func (s *ScanStats) skip(gate types.Gate) bool {
	s.Skipped[gate]++
	return s.Skipped[gate] <= maxSkipLogs
}

// Summary renders a one-line outcome with per-gate skip counts
func (s *ScanStats) Summary() string {
	out := fmt.Sprintf("%d reported of %d", s.Reported, s.Candidates)
	for _, gate := range append([]types.Gate{types.GateDedup}, types.AllTraderGates...) {
		if n := s.Skipped[gate]; n > 0 {
			out += fmt.Sprintf(", %d %s", n, gate)
		}
	}
	return out
}

// ItemScanStats is the outcome of the item pass for one item
type ItemScanStats struct {
	ItemID types.ItemID
	*ScanStats
}

// ScanReport is the outcome of one full scan
type ScanReport struct {
	RunID    string
	TradeAds *ScanStats
	Items    []*ItemScanStats
}

// Evaluation is the verdict for a single player without side effects
type Evaluation struct {
	PlayerID  types.PlayerID
	Info      *model.PlayerInfo
	OwnedDays *int
	Bio       string
	Contact   qualify.Contact
	Seen      bool
	Verdict   qualify.Verdict
}

// ScanUseCase runs the periodic marketplace scan
type ScanUseCase struct {
	market    interfaces.Marketplace
	inventory interfaces.Inventory
	notifier  interfaces.Notifier
	ledger    *ledger.Ledger
	store     interfaces.SnapshotStore
	directory *Directory
	criteria  *qualify.TraderCriteria
	cfg       ScanConfig
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	running sync.Mutex
}

// NewScanUseCase creates a ScanUseCase
func NewScanUseCase(
	market interfaces.Marketplace,
	inventory interfaces.Inventory,
	notifier interfaces.Notifier,
	ledger *ledger.Ledger,
	store interfaces.SnapshotStore,
	directory *Directory,
	criteria *qualify.TraderCriteria,
	cfg ScanConfig,
) *ScanUseCase {
	if criteria == nil {
		criteria = qualify.DefaultTraderCriteria()
	}
	return &ScanUseCase{
		market:    market,
		inventory: inventory,
		notifier:  notifier,
		ledger:    ledger,
		store:     store,
		directory: directory,
		criteria:  criteria,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Run performs one full scan: the trade-ad pass over recent trade-ad creators,
// then the item pass over the configured items. Passes never overlap; a second
// caller waits. Upstream failures only shrink the result.
func (uc *ScanUseCase) Run(ctx context.Context) (*ScanReport, error) {
	if uc.market == nil || uc.inventory == nil {
		return nil, goerr.Wrap(ErrNotConfigured, "scan needs marketplace and inventory clients")
	}

	uc.running.Lock()
	defer uc.running.Unlock()

	report := &ScanReport{RunID: uuid.NewString()}
	logger := logging.From(ctx).With("run_id", report.RunID)
	ctx = logging.With(ctx, logger)

	creators := uc.market.RecentTradeAdCreators(ctx)
	logger.Info("scan started", "creators", len(creators), "already_reported", uc.ledger.Size())

	report.TradeAds = uc.tradeAdPass(ctx, creators)
	logger.Info("trade ad pass done", "summary", report.TradeAds.Summary())

	items, err := uc.loadItems(ctx)
	if err != nil {
		errutil.Handle(ctx, err, "failed to load scan items")
		return report, nil
	}
	for _, item := range items {
		stats := uc.itemPass(ctx, item, creators)
		report.Items = append(report.Items, &ItemScanStats{ItemID: item, ScanStats: stats})
		logger.Info("item pass done", "item_id", item, "summary", stats.Summary())

		if err := uc.notifier.Notify(ctx, model.NewItemScanDoneNotification(item)); err != nil {
			errutil.Handle(ctx, err, "failed to send item scan done notification")
		}
		if err := uc.sleep(ctx, uc.cfg.ItemPause); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (uc *ScanUseCase) tradeAdPass(ctx context.Context, creators []types.PlayerID) *ScanStats {
	logger := logging.From(ctx)
	stats := newScanStats()

	for _, id := range creators {
		stats.Candidates++
		if uc.ledger.HasSeen(string(id)) {
			stats.skip(types.GateDedup)
			continue
		}

		info := uc.market.PlayerInfo(ctx, id)
		if v := qualify.Profile(uc.criteria, info); !v.Admit {
			uc.logSkip(ctx, stats, id, v)
			continue
		}

		owned := uc.inventory.OldestOwnedDays(ctx, id)
		if v := qualify.Ownership(uc.criteria, owned); !v.Admit {
			uc.logSkip(ctx, stats, id, v)
			continue
		}

		signals := uc.contactSignals(ctx, info, owned)
		if v := qualify.Trader(uc.criteria, signals); !v.Admit {
			uc.logSkip(ctx, stats, id, v)
			continue
		}

		stats.Reported++
		logger.Info("trader found", "player_id", id, "name", info.Name, "source", model.TraderSourceTradeAds,
			"contact", qualify.Contactability(uc.criteria, signals.Bio, signals.InRoster))

		uc.report(ctx, model.Trader{
			Info:      info,
			OwnedDays: owned,
			Source:    model.TraderSourceTradeAds,
		})
		if err := uc.sleep(ctx, uc.cfg.NotifyPause); err != nil {
			return stats
		}
	}

	return stats
}

func (uc *ScanUseCase) itemPass(ctx context.Context, item types.ItemID, creators []types.PlayerID) *ScanStats {
	logger := logging.From(ctx).With("item_id", item)
	stats := newScanStats()

	logger.Info("item pass started",
		"online_within", uc.criteria.RecentlyOnlineWithin,
		"min_owned_days", uc.criteria.MinItemOwnedDays)

	for _, id := range creators {
		stats.Candidates++
		if uc.ledger.HasSeen(string(id)) {
			stats.skip(types.GateDedup)
			continue
		}

		info := uc.market.PlayerInfo(ctx, id)
		if v := qualify.Profile(uc.criteria, info); !v.Admit {
			stats.skip(v.Gate)
			continue
		}
		if v := qualify.Online(uc.criteria, info, uc.now()); !v.Admit {
			uc.logSkip(ctx, stats, id, v)
			continue
		}

		owned := uc.inventory.ItemOwnedDays(ctx, id, item)
		if v := qualify.ItemOwnership(uc.criteria, owned); !v.Admit {
			uc.logSkip(ctx, stats, id, v)
			continue
		}

		signals := uc.contactSignals(ctx, info, owned)
		if v := qualify.ItemTrader(uc.criteria, signals, uc.now()); !v.Admit {
			stats.skip(v.Gate)
			continue
		}

		stats.Reported++
		logger.Info("trader found", "player_id", id, "name", info.Name, "source", model.TraderSourceItemPage,
			"owned_days", *owned)

		uc.report(ctx, model.Trader{
			Info:      info,
			OwnedDays: owned,
			Source:    model.TraderSourceItemPage,
			ItemID:    item,
			ItemName:  uc.market.ItemName(ctx, item),
		})
		if err := uc.sleep(ctx, uc.cfg.NotifyPause); err != nil {
			return stats
		}
	}

	return stats
}

func (uc *ScanUseCase) contactSignals(ctx context.Context, info *model.PlayerInfo, owned *int) *qualify.TraderSignals {
	s := &qualify.TraderSignals{
		Info:      info,
		OwnedDays: owned,
		Bio:       uc.inventory.Bio(ctx, info.ID),
	}
	if uc.directory != nil {
		s.InRoster = uc.directory.InRoster(info.Name)
	}
	return s
}

// report records the trader before notifying, so a failed delivery is not
// retried on the next pass
func (uc *ScanUseCase) report(ctx context.Context, tr model.Trader) {
	if err := uc.ledger.MarkSeen(ctx, string(tr.Info.ID), ""); err != nil {
		errutil.Handle(ctx, err, "failed to record trader")
	}
	if err := uc.notifier.Notify(ctx, model.NewTraderNotification(tr, uc.now())); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "failed to notify trader",
			goerr.V(PlayerIDKey, tr.Info.ID)), "trader notification failed")
	}
}

func (uc *ScanUseCase) logSkip(ctx context.Context, stats *ScanStats, id types.PlayerID, v qualify.Verdict) {
	if stats.skip(v.Gate) {
		logging.From(ctx).Info("trader skipped", "player_id", id, "verdict", v)
	}
}

func (uc *ScanUseCase) loadItems(ctx context.Context) ([]types.ItemID, error) {
	data, err := uc.store.Load(ctx, ScanItemsSnapshot)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load scan items")
	}
	ids, err := model.ParseIDList(data)
	if err != nil {
		return nil, err
	}

	items := make([]types.ItemID, 0, len(ids))
	for _, id := range ids {
		item := types.ItemID(id)
		if err := item.Validate(); err != nil {
			logging.From(ctx).Warn("ignoring invalid scan item", "item_id", id, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Evaluate runs the trade-ad gates for one player and returns every signal
// collected. Nothing is recorded or notified.
func (uc *ScanUseCase) Evaluate(ctx context.Context, id types.PlayerID) (*Evaluation, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if uc.market == nil || uc.inventory == nil {
		return nil, goerr.Wrap(ErrNotConfigured, "evaluate needs marketplace and inventory clients")
	}

	ev := &Evaluation{
		PlayerID: id,
		Seen:     uc.ledger.HasSeen(string(id)),
	}

	ev.Info = uc.market.PlayerInfo(ctx, id)
	if ev.Verdict = qualify.Profile(uc.criteria, ev.Info); !ev.Verdict.Admit {
		return ev, nil
	}

	ev.OwnedDays = uc.inventory.OldestOwnedDays(ctx, id)
	signals := uc.contactSignals(ctx, ev.Info, ev.OwnedDays)
	ev.Bio = signals.Bio
	ev.Contact = qualify.Contactability(uc.criteria, signals.Bio, signals.InRoster)
	ev.Verdict = qualify.Trader(uc.criteria, signals)
	return ev, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
