package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/cli/config"
	"github.com/secmon-lab/tradescout/pkg/service/worker"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

func cmdScan() *cli.Command {
	var once bool
	var storeCfg config.Store
	var slackCfg config.Slack
	var scanCfg config.Scan
	var notifyCfg config.Notify
	var filterCfg config.Filter

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "once",
			Usage:       "Run a single scan and exit",
			Sources:     cli.EnvVars("TRADESCOUT_SCAN_ONCE"),
			Destination: &once,
		},
	}
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, scanCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)
	flags = append(flags, filterCfg.Flags()...)

	return &cli.Command{
		Name:  "scan",
		Usage: "Scan marketplace trade ads and item owners for contactable traders",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("scan configuration",
				"store", storeCfg,
				"scan", scanCfg,
				"notify", notifyCfg,
				"filter", filterCfg,
				"once", once,
			)

			settings, err := filterCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load filter configuration")
			}
			opts, err := scanOptions(&scanCfg, &notifyCfg, settings)
			if err != nil {
				return err
			}
			slackSvc, err := optionalSlack(&slackCfg)
			if err != nil {
				return err
			}

			store, err := storeCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize store")
			}
			defer safe.Close(ctx, store)

			leadLedger, scanLedger, err := loadLedgers(ctx, store)
			if err != nil {
				return err
			}
			uc := usecase.New(store, append(opts, usecase.WithLedgers(leadLedger, scanLedger))...)

			if once {
				syncDirectory(ctx, slackSvc, uc.Directory)
				report, err := uc.Scan.Run(ctx)
				if err != nil {
					return goerr.Wrap(err, "scan failed")
				}
				logging.Default().Info("scan finished", "run_id", report.RunID, "trade_ads", report.TradeAds.Summary())
				return nil
			}

			var directoryWorker *worker.DirectoryRefreshWorker
			if slackSvc != nil {
				directoryWorker = worker.NewDirectoryRefreshWorker(slackSvc, uc.Directory, scanCfg.Interval())
				// the first pass should see the roster
				syncDirectory(ctx, slackSvc, uc.Directory)
				if err := directoryWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start directory refresh worker")
				}
			}

			scanWorker := worker.NewScanWorker(uc.Scan, scanCfg.Interval())
			if err := scanWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start scan worker")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal, waiting for the running scan", "signal", sig)
			case <-ctx.Done():
			}

			scanWorker.Stop()
			if directoryWorker != nil {
				directoryWorker.Stop()
			}
			return nil
		},
	}
}
