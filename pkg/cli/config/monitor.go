package config

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/usecase"
)

// Monitor holds the channel layout of the chat monitor and the operator stream
type Monitor struct {
	channels         []string
	lookupChannel    string
	lookupBotID      string
	lookupCommand    string
	targetChannel    string
	commandChannel   string
	claimChannel     string
	selfUserID       string
	autoclaim        string
	directoryRefresh time.Duration
}

func (x *Monitor) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "monitor-channel",
			Usage:       "Channel ID watched for candidate messages (repeatable)",
			Category:    "Monitor",
			Destination: &x.channels,
			Sources:     cli.EnvVars("TRADESCOUT_MONITOR_CHANNELS"),
		},
		&cli.StringFlag{
			Name:        "lookup-channel",
			Usage:       "Channel ID where lookup commands are posted",
			Category:    "Monitor",
			Destination: &x.lookupChannel,
			Sources:     cli.EnvVars("TRADESCOUT_LOOKUP_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "lookup-bot-id",
			Usage:       "User or bot ID of the lookup bot",
			Category:    "Monitor",
			Destination: &x.lookupBotID,
			Sources:     cli.EnvVars("TRADESCOUT_LOOKUP_BOT_ID"),
		},
		&cli.StringFlag{
			Name:        "lookup-command",
			Usage:       "Lookup command template; {user} is replaced with the user ID",
			Category:    "Monitor",
			Value:       usecase.DefaultLookupCommand,
			Destination: &x.lookupCommand,
			Sources:     cli.EnvVars("TRADESCOUT_LOOKUP_COMMAND"),
		},
		&cli.StringFlag{
			Name:        "target-channel",
			Usage:       "Channel ID receiving claimed names",
			Category:    "Monitor",
			Destination: &x.targetChannel,
			Sources:     cli.EnvVars("TRADESCOUT_TARGET_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "command-channel",
			Usage:       "Channel ID accepting autoclaim toggles (defaults to target channel)",
			Category:    "Monitor",
			Destination: &x.commandChannel,
			Sources:     cli.EnvVars("TRADESCOUT_COMMAND_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "claim-channel",
			Usage:       "Channel ID where lead notifications are claimed with \"c\"",
			Category:    "Monitor",
			Destination: &x.claimChannel,
			Sources:     cli.EnvVars("TRADESCOUT_CLAIM_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "self-user-id",
			Usage:       "The bot's own user ID; its messages are never treated as commands",
			Category:    "Monitor",
			Destination: &x.selfUserID,
			Sources:     cli.EnvVars("TRADESCOUT_SELF_USER_ID"),
		},
		&cli.StringFlag{
			Name:        "autoclaim",
			Usage:       "Force autoclaim on or off at startup [true|false]; unset keeps the saved setting",
			Category:    "Monitor",
			Destination: &x.autoclaim,
			Sources:     cli.EnvVars("TRADESCOUT_AUTOCLAIM"),
		},
		&cli.DurationFlag{
			Name:        "directory-refresh-interval",
			Usage:       "Interval between member directory refreshes",
			Category:    "Monitor",
			Value:       10 * time.Minute,
			Destination: &x.directoryRefresh,
			Sources:     cli.EnvVars("TRADESCOUT_DIRECTORY_REFRESH_INTERVAL"),
		},
	}
}

func (x Monitor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("channels", x.channels),
		slog.String("lookup_channel", x.lookupChannel),
		slog.String("lookup_bot_id", x.lookupBotID),
		slog.String("target_channel", x.targetChannel),
		slog.String("claim_channel", x.claimChannel),
		slog.String("autoclaim", x.autoclaim),
	)
}

// DirectoryRefreshInterval returns how often the member directory is rebuilt
func (x *Monitor) DirectoryRefreshInterval() time.Duration {
	return x.directoryRefresh
}

// MonitorConfig returns the chat monitor settings
func (x *Monitor) MonitorConfig() (usecase.MonitorConfig, error) {
	var channels []string
	for _, ch := range x.channels {
		for _, c := range strings.Split(ch, ",") {
			if c = strings.TrimSpace(c); c != "" {
				channels = append(channels, c)
			}
		}
	}

	cfg := usecase.MonitorConfig{
		Channels:      channels,
		LookupChannel: x.lookupChannel,
		LookupBotID:   x.lookupBotID,
		LookupCommand: x.lookupCommand,
	}
	if len(cfg.Channels) > 0 && (cfg.LookupChannel == "" || cfg.LookupBotID == "") {
		return cfg, goerr.Wrap(ErrMissingFlag, "lookup-channel and lookup-bot-id are required to monitor channels")
	}
	return cfg, nil
}

// ControlConfig returns the operator stream settings
func (x *Monitor) ControlConfig() (usecase.ControlConfig, error) {
	override, err := parseOverride(x.autoclaim)
	if err != nil {
		return usecase.ControlConfig{}, err
	}
	return usecase.ControlConfig{
		TargetChannel:     x.targetChannel,
		CommandChannel:    x.commandChannel,
		ClaimChannel:      x.claimChannel,
		SelfUserID:        x.selfUserID,
		AutoclaimOverride: override,
	}, nil
}

func parseOverride(v string) (*bool, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "autoclaim must be true or false", goerr.V("value", v))
	}
	return &b, nil
}
