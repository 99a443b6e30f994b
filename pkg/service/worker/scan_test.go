package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tradescout/pkg/service/worker"
	"github.com/secmon-lab/tradescout/pkg/usecase"
)

type mockScanner struct {
	runs     atomic.Int32
	delay    time.Duration
	err      error
	mu       sync.Mutex
	canceled bool
}

func (m *mockScanner) Run(ctx context.Context) (*usecase.ScanReport, error) {
	m.runs.Add(1)
	time.Sleep(m.delay)
	m.mu.Lock()
	m.canceled = m.canceled || ctx.Err() != nil
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.ScanReport{RunID: "run"}, nil
}

func TestScanWorker_RunsImmediatelyAndOnInterval(t *testing.T) {
	scanner := &mockScanner{}
	w := worker.NewScanWorker(scanner, time.Second)
	gt.NoError(t, w.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)
	gt.Value(t, scanner.runs.Load()).Equal(int32(1))

	// cron.Every rounds to whole seconds
	time.Sleep(1500 * time.Millisecond)
	w.Stop()
	gt.Bool(t, scanner.runs.Load() >= 2).True()
}

func TestScanWorker_SkipsOverlappingTicks(t *testing.T) {
	scanner := &mockScanner{delay: 2500 * time.Millisecond}
	w := worker.NewScanWorker(scanner, time.Second)
	gt.NoError(t, w.Start(context.Background()))

	time.Sleep(2200 * time.Millisecond)
	gt.Value(t, scanner.runs.Load()).Equal(int32(1))
	w.Stop()
}

func TestScanWorker_StopWaitsForPass(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scanner := &mockScanner{delay: 200 * time.Millisecond}
	w := worker.NewScanWorker(scanner, time.Hour)
	gt.NoError(t, w.Start(ctx))

	time.Sleep(20 * time.Millisecond)
	cancel()

	stopStart := time.Now()
	w.Stop()
	gt.Bool(t, time.Since(stopStart) >= 100*time.Millisecond).True()
	gt.Value(t, scanner.runs.Load()).Equal(int32(1))

	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	gt.Bool(t, scanner.canceled).False()
}

func TestScanWorker_FailedPassKeepsSchedule(t *testing.T) {
	scanner := &mockScanner{err: errors.New("marketplace unreachable")}
	w := worker.NewScanWorker(scanner, time.Second)
	gt.NoError(t, w.Start(context.Background()))

	time.Sleep(1500 * time.Millisecond)
	w.Stop()
	gt.Bool(t, scanner.runs.Load() >= 2).True()
}

func TestScanWorker_InvalidStart(t *testing.T) {
	gt.Error(t, worker.NewScanWorker(&mockScanner{}, 0).Start(context.Background()))

	w := worker.NewScanWorker(&mockScanner{}, time.Hour)
	gt.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	gt.Error(t, w.Start(context.Background()))
}
