package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/cli/config"
	httpctrl "github.com/secmon-lab/tradescout/pkg/controller/http"
	"github.com/secmon-lab/tradescout/pkg/service/worker"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/async"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

func cmdServe() *cli.Command {
	var addr string
	var storeCfg config.Store
	var slackCfg config.Slack
	var monitorCfg config.Monitor
	var scanCfg config.Scan
	var notifyCfg config.Notify
	var filterCfg config.Filter

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("TRADESCOUT_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, monitorCfg.Flags()...)
	flags = append(flags, scanCfg.Flags()...)
	flags = append(flags, notifyCfg.Flags()...)
	flags = append(flags, filterCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Receive Slack events, report chat leads and optionally scan the marketplace",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("serve configuration",
				"store", storeCfg,
				"slack", slackCfg,
				"monitor", monitorCfg,
				"scan", scanCfg,
				"notify", notifyCfg,
				"filter", filterCfg,
			)

			settings, err := filterCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load filter configuration")
			}
			monitorConfig, err := monitorCfg.MonitorConfig()
			if err != nil {
				return err
			}
			controlConfig, err := monitorCfg.ControlConfig()
			if err != nil {
				return err
			}
			leadNotifier, err := notifyCfg.LeadNotifier()
			if err != nil {
				return goerr.Wrap(err, "failed to configure lead notifier")
			}
			scanOpts, err := scanOptions(&scanCfg, &notifyCfg, settings)
			if err != nil {
				return err
			}

			slackSvc, err := slackCfg.Configure()
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

			uc := usecase.New(store, append(scanOpts,
				usecase.WithSlackService(slackSvc),
				usecase.WithLeadNotifier(leadNotifier),
				usecase.WithLedgers(leadLedger, scanLedger),
				usecase.WithLeadCriteria(settings.Lead),
				usecase.WithMonitorConfig(monitorConfig),
				usecase.WithControlConfig(controlConfig),
			)...)

			if err := uc.Control.Load(ctx); err != nil {
				return goerr.Wrap(err, "failed to load operator settings")
			}

			directoryWorker := worker.NewDirectoryRefreshWorker(slackSvc, uc.Directory, monitorCfg.DirectoryRefreshInterval())
			if err := directoryWorker.Start(ctx); err != nil {
				return goerr.Wrap(err, "failed to start directory refresh worker")
			}

			var scanWorker *worker.ScanWorker
			if scanCfg.Enabled() {
				scanWorker = worker.NewScanWorker(uc.Scan, scanCfg.Interval())
				if err := scanWorker.Start(ctx); err != nil {
					directoryWorker.Stop()
					return goerr.Wrap(err, "failed to start scan worker")
				}
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithHealthReporter(healthReporter(uc)),
			}
			if slackCfg.IsWebhookConfigured() {
				handler := httpctrl.NewSlackWebhookHandler(uc.Monitor, uc.Control)
				httpOpts = append(httpOpts, httpctrl.WithSlackWebhook(handler, slackCfg.SigningSecret()))
				logging.Default().Info("Slack webhook handler enabled")
			} else {
				logging.Default().Warn("Slack signing secret not configured, no chat events will be received")
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			shutdown := func() error {
				directoryWorker.Stop()
				if scanWorker != nil {
					scanWorker.Stop()
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				// events accepted before shutdown still get processed
				async.Wait()
				return nil
			}

			select {
			case err := <-errCh:
				_ = shutdown()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
				if err := shutdown(); err != nil {
					return err
				}
				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}

func healthReporter(uc *usecase.UseCases) httpctrl.HealthReporter {
	return httpctrl.HealthFunc(func() httpctrl.Health {
		return httpctrl.Health{
			Members:            uc.Directory.Len(),
			DirectoryUpdatedAt: uc.Directory.UpdatedAt(),
			PendingLookups:     uc.Monitor.Pending(),
			ReportedLeads:      uc.LeadLedger().Size(),
			ReportedTraders:    uc.ScanLedger().Size(),
			Autoclaim:          uc.Control.AutoclaimEnabled(),
		}
	})
}
