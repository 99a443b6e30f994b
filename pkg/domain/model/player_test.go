package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
)

func TestMaxTradeAdsBadge(t *testing.T) {
	badges := map[string]any{
		"create_100_trade_ads":  1690000000,
		"create_1000_trade_ads": 1700000000,
		"own_1_billion":         1600000000,
		"create_x_trade_ads":    1,
	}
	gt.Value(t, model.MaxTradeAdsBadge(badges)).Equal(1000)
	gt.Value(t, model.MaxTradeAdsBadge(nil)).Equal(0)
}

func TestIsRecentlyOnline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	week := 7 * 24 * time.Hour
	ptr := func(v int64) *int64 { return &v }

	testCases := []struct {
		name       string
		lastOnline *int64
		expected   bool
	}{
		{"unknown", nil, false},
		{"seconds ago, recent", ptr(3600), true},
		{"seconds ago, exactly a week", ptr(604800), true},
		{"seconds ago, stale", ptr(604801), false},
		{"epoch, recent", ptr(now.Unix() - 86400), true},
		{"epoch, stale", ptr(now.Unix() - 8*86400), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Value(t, model.IsRecentlyOnline(tc.lastOnline, week, now)).Equal(tc.expected)
		})
	}
}

func TestFormatOwnedDays(t *testing.T) {
	ptr := func(v int) *int { return &v }

	gt.Value(t, model.FormatOwnedDays(nil)).Equal("Unknown")
	gt.Value(t, model.FormatOwnedDays(ptr(12))).Equal("12 days")
	gt.Value(t, model.FormatOwnedDays(ptr(95))).Equal("3 months")
	gt.Value(t, model.FormatOwnedDays(ptr(730))).Equal("2.0 years")
}

func TestDaysSince(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gt.Value(t, model.DaysSince(now.Add(-61*24*time.Hour-time.Hour), now)).Equal(61)
	gt.Value(t, model.DaysSince(now, now)).Equal(0)
}
