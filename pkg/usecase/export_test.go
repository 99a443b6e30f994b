package usecase

import (
	"context"
	"time"
)

// SetScanSleeper replaces the pause between scan notifications
func SetScanSleeper(uc *ScanUseCase, sleep func(ctx context.Context, d time.Duration) error) {
	uc.sleep = sleep
}

var SleepContext = sleepContext
