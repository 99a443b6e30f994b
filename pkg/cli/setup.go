package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/cli/config"
	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
	"github.com/secmon-lab/tradescout/pkg/service/worker"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

// loadLedgers restores both ledgers from the store
func loadLedgers(ctx context.Context, store interfaces.SnapshotStore) (lead, scan *ledger.Ledger, err error) {
	lead = ledger.New(store, usecase.LeadLedgerSnapshot)
	if err := lead.Load(ctx); err != nil {
		return nil, nil, err
	}
	scan = ledger.New(store, usecase.ScanLedgerSnapshot)
	if err := scan.Load(ctx); err != nil {
		return nil, nil, err
	}
	return lead, scan, nil
}

// scanOptions collects the use case options shared by the scan and evaluate
// commands
func scanOptions(scanCfg *config.Scan, notifyCfg *config.Notify, settings *config.FilterSettings) ([]usecase.Option, error) {
	scanConfig, err := scanCfg.ScanConfig()
	if err != nil {
		return nil, err
	}
	traderNotifier, err := notifyCfg.TraderNotifier()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure trader notifier")
	}
	market, inventory := scanCfg.Clients()

	return []usecase.Option{
		usecase.WithMarketplace(market),
		usecase.WithInventory(inventory),
		usecase.WithTraderNotifier(traderNotifier),
		usecase.WithTraderCriteria(settings.Trader),
		usecase.WithRoleTable(settings.Roles),
		usecase.WithScanConfig(scanConfig),
	}, nil
}

// optionalSlack returns the Slack service when a bot token is set. Without it the
// member directory stays empty and roster matching never hits.
func optionalSlack(slackCfg *config.Slack) (slack.Service, error) {
	if !slackCfg.IsConfigured() {
		logging.Default().Warn("Slack bot token not configured, roster matching disabled")
		return nil, nil
	}
	return slackCfg.Configure()
}

// syncDirectory fills the directory once. A failure leaves it empty.
func syncDirectory(ctx context.Context, svc slack.Service, directory *usecase.Directory) {
	if svc == nil {
		return
	}
	w := worker.NewDirectoryRefreshWorker(svc, directory, 0)
	if err := w.Refresh(ctx); err != nil {
		logging.From(ctx).Warn("directory sync failed, roster matching disabled", "error", err)
	}
}
