package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/errutil"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

// Scanner runs one marketplace scan
type Scanner interface {
	Run(ctx context.Context) (*usecase.ScanReport, error)
}

// ScanWorker runs the marketplace scan once on start and then on a fixed
// interval. A pass that is still running when the next tick fires causes that
// tick to be skipped.
type ScanWorker struct {
	scanner  Scanner
	interval time.Duration
	cron     *cron.Cron

	mu      sync.Mutex
	started bool
	initial sync.WaitGroup
}

// NewScanWorker creates a new scan worker
func NewScanWorker(scanner Scanner, interval time.Duration) *ScanWorker {
	return &ScanWorker{
		scanner:  scanner,
		interval: interval,
	}
}

// Start schedules the scan and kicks off the first pass immediately. Passes
// are detached from ctx cancellation so a started pass always completes; use
// Stop to wait for it.
func (w *ScanWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		return goerr.New("scan interval must be positive", goerr.V("interval", w.interval))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return goerr.New("scan worker already started")
	}

	logger := cronLogger{logger: logging.Default()}
	w.cron = cron.New(cron.WithLogger(logger))

	passCtx := context.WithoutCancel(ctx)
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { w.pass(passCtx) }))

	w.cron.Schedule(cron.Every(w.interval), job)
	w.cron.Start()
	w.started = true

	logging.Default().Info("scan worker starting", "interval", w.interval.String())

	// The same wrapped job is shared with the schedule, so a tick arriving
	// during the first pass is skipped.
	w.initial.Add(1)
	go func() {
		defer w.initial.Done()
		job.Run()
	}()

	return nil
}

// Stop halts scheduling and waits for the running pass to finish
func (w *ScanWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}

	logging.Default().Info("scan worker stopping")
	<-w.cron.Stop().Done()
	w.initial.Wait()
	w.started = false
	logging.Default().Info("scan worker stopped")
}

func (w *ScanWorker) pass(ctx context.Context) {
	startTime := time.Now()
	report, err := w.scanner.Run(ctx)
	if err != nil {
		errutil.Handle(ctx, err, "scan failed")
		return
	}

	logging.From(ctx).Info("scan completed",
		"run_id", report.RunID,
		"items", len(report.Items),
		"duration", time.Since(startTime).String())
}

// cronLogger routes cron's internal logging through slog
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
