package usecase_test

import (
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/usecase"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDebouncer(t *testing.T) {
	clock := &stepClock{now: monitorNow}
	d := usecase.NewDebouncer(90*time.Second, clock.Now)

	gt.Bool(t, d.Recently("U1")).False()
	d.Touch("U1")
	gt.Bool(t, d.Recently("U1")).True()
	gt.Bool(t, d.Recently("U2")).False()

	clock.Advance(89 * time.Second)
	gt.Bool(t, d.Recently("U1")).True()

	clock.Advance(time.Second)
	gt.Bool(t, d.Recently("U1")).False()

	t.Run("touch restarts the window", func(t *testing.T) {
		d.Touch("U1")
		clock.Advance(60 * time.Second)
		gt.Bool(t, d.Recently("U1")).True()
	})
}

func TestDebouncer_WallClockEviction(t *testing.T) {
	d := usecase.NewDebouncer(50*time.Millisecond, nil)

	d.Touch("U1")
	gt.Bool(t, d.Recently("U1")).True()

	time.Sleep(80 * time.Millisecond)
	gt.Bool(t, d.Recently("U1")).False()
}
