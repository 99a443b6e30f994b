package usecase

import (
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/qualify"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	"github.com/secmon-lab/tradescout/pkg/service/notify"
	slacksvc "github.com/secmon-lab/tradescout/pkg/service/slack"
)

type UseCases struct {
	store          interfaces.SnapshotStore
	slack          slacksvc.Service
	leadNotifier   interfaces.Notifier
	traderNotifier interfaces.Notifier
	market         interfaces.Marketplace
	inventory      interfaces.Inventory
	leadLedger     *ledger.Ledger
	scanLedger     *ledger.Ledger
	roles          *model.RoleTable
	leadCriteria   *qualify.LeadCriteria
	traderCriteria *qualify.TraderCriteria
	monitorConfig  MonitorConfig
	controlConfig  ControlConfig
	scanConfig     ScanConfig
	clock          func() time.Time

	Directory *Directory
	Control   *ControlUseCase
	Monitor   *MonitorUseCase
	Scan      *ScanUseCase
}

type Option func(*UseCases)

func WithSlackService(svc slacksvc.Service) Option {
	return func(uc *UseCases) {
		uc.slack = svc
	}
}

// WithLeadNotifier sets where chat leads are reported
func WithLeadNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.leadNotifier = n
	}
}

// WithTraderNotifier sets where scan results are reported
func WithTraderNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.traderNotifier = n
	}
}

func WithMarketplace(m interfaces.Marketplace) Option {
	return func(uc *UseCases) {
		uc.market = m
	}
}

func WithInventory(inv interfaces.Inventory) Option {
	return func(uc *UseCases) {
		uc.inventory = inv
	}
}

// WithLedgers sets loaded ledgers. Without them, empty ledgers over the store
// are used.
func WithLedgers(lead, scan *ledger.Ledger) Option {
	return func(uc *UseCases) {
		uc.leadLedger = lead
		uc.scanLedger = scan
	}
}

func WithRoleTable(roles *model.RoleTable) Option {
	return func(uc *UseCases) {
		uc.roles = roles
	}
}

func WithLeadCriteria(c *qualify.LeadCriteria) Option {
	return func(uc *UseCases) {
		uc.leadCriteria = c
	}
}

func WithTraderCriteria(c *qualify.TraderCriteria) Option {
	return func(uc *UseCases) {
		uc.traderCriteria = c
	}
}

func WithMonitorConfig(cfg MonitorConfig) Option {
	return func(uc *UseCases) {
		uc.monitorConfig = cfg
	}
}

func WithControlConfig(cfg ControlConfig) Option {
	return func(uc *UseCases) {
		uc.controlConfig = cfg
	}
}

func WithScanConfig(cfg ScanConfig) Option {
	return func(uc *UseCases) {
		uc.scanConfig = cfg
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.clock = now
	}
}

func New(store interfaces.SnapshotStore, opts ...Option) *UseCases {
	uc := &UseCases{
		store:          store,
		leadNotifier:   notify.Log{},
		traderNotifier: notify.Log{},
		scanConfig: ScanConfig{
			NotifyPause: DefaultNotifyPause,
			ItemPause:   DefaultItemPause,
		},
		clock: time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.leadLedger == nil {
		uc.leadLedger = ledger.New(store, LeadLedgerSnapshot)
	}
	if uc.scanLedger == nil {
		uc.scanLedger = ledger.New(store, ScanLedgerSnapshot)
	}

	uc.Directory = NewDirectory(uc.roles)
	uc.Control = NewControlUseCase(uc.slack, store, uc.leadLedger, uc.controlConfig)
	uc.Monitor = NewMonitorUseCase(uc.slack, uc.leadNotifier, uc.inventory, uc.leadLedger,
		uc.Directory, uc.Control, uc.leadCriteria, uc.monitorConfig, uc.clock)
	uc.Scan = NewScanUseCase(uc.market, uc.inventory, uc.traderNotifier, uc.scanLedger,
		store, uc.Directory, uc.traderCriteria, uc.scanConfig)
	uc.Scan.now = uc.clock

	return uc
}

// LeadLedger returns the ledger of reported chat leads
func (uc *UseCases) LeadLedger() *ledger.Ledger {
	return uc.leadLedger
}

// ScanLedger returns the ledger of reported traders
func (uc *UseCases) ScanLedger() *ledger.Ledger {
	return uc.scanLedger
}
