package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/service/fetch"
	"github.com/secmon-lab/tradescout/pkg/service/roblox"
	"github.com/secmon-lab/tradescout/pkg/service/rolimons"
	"github.com/secmon-lab/tradescout/pkg/usecase"
)

const DefaultScanInterval = 10 * time.Minute

// Scan holds the marketplace scan settings
type Scan struct {
	enabled     bool
	interval    time.Duration
	notifyPause time.Duration
	itemPause   time.Duration
	userAgent   string
}

func (x *Scan) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "scan-enabled",
			Usage:       "Run the marketplace scan in the background",
			Category:    "Scan",
			Destination: &x.enabled,
			Sources:     cli.EnvVars("TRADESCOUT_SCAN_ENABLED"),
		},
		&cli.DurationFlag{
			Name:        "scan-interval",
			Usage:       "Interval between marketplace scans",
			Category:    "Scan",
			Value:       DefaultScanInterval,
			Destination: &x.interval,
			Sources:     cli.EnvVars("TRADESCOUT_SCAN_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:        "scan-notify-pause",
			Usage:       "Pause after each trader notification",
			Category:    "Scan",
			Value:       usecase.DefaultNotifyPause,
			Destination: &x.notifyPause,
			Sources:     cli.EnvVars("TRADESCOUT_SCAN_NOTIFY_PAUSE"),
		},
		&cli.DurationFlag{
			Name:        "scan-item-pause",
			Usage:       "Pause after each scanned item",
			Category:    "Scan",
			Value:       usecase.DefaultItemPause,
			Destination: &x.itemPause,
			Sources:     cli.EnvVars("TRADESCOUT_SCAN_ITEM_PAUSE"),
		},
		&cli.StringFlag{
			Name:        "user-agent",
			Usage:       "User-Agent sent to marketplace and inventory APIs",
			Category:    "Scan",
			Value:       fetch.DefaultUserAgent,
			Destination: &x.userAgent,
			Sources:     cli.EnvVars("TRADESCOUT_USER_AGENT"),
		},
	}
}

func (x Scan) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.enabled),
		slog.Duration("interval", x.interval),
		slog.Duration("notify_pause", x.notifyPause),
		slog.Duration("item_pause", x.itemPause),
	)
}

// Enabled reports whether the background scan is requested
func (x *Scan) Enabled() bool {
	return x.enabled
}

// Interval returns the time between scans
func (x *Scan) Interval() time.Duration {
	return x.interval
}

// ScanConfig returns the pacing of a scan pass
func (x *Scan) ScanConfig() (usecase.ScanConfig, error) {
	if x.notifyPause < 0 || x.itemPause < 0 {
		return usecase.ScanConfig{}, goerr.Wrap(ErrInvalidConfig, "scan pauses must not be negative",
			goerr.V("notify_pause", x.notifyPause), goerr.V("item_pause", x.itemPause))
	}
	return usecase.ScanConfig{
		NotifyPause: x.notifyPause,
		ItemPause:   x.itemPause,
	}, nil
}

// Clients creates the marketplace and inventory clients
func (x *Scan) Clients() (*rolimons.Client, *roblox.Client) {
	market := rolimons.New(rolimons.WithFetchOptions(fetch.WithUserAgent(x.userAgent)))
	inventory := roblox.New(roblox.WithFetcher(fetch.New(fetch.WithUserAgent(x.userAgent))))
	return market, inventory
}
