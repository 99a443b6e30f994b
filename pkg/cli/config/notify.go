package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/service/notify"
)

// Notify holds the webhook destinations of lead and trader notifications
type Notify struct {
	leadWebhook   string
	traderWebhook string
	format        string
}

func (x *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "lead-webhook-url",
			Usage:       "Incoming webhook receiving chat lead notifications (log only when empty)",
			Category:    "Notify",
			Destination: &x.leadWebhook,
			Sources:     cli.EnvVars("TRADESCOUT_LEAD_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "trader-webhook-url",
			Usage:       "Incoming webhook receiving scan notifications (log only when empty)",
			Category:    "Notify",
			Destination: &x.traderWebhook,
			Sources:     cli.EnvVars("TRADESCOUT_TRADER_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "webhook-format",
			Usage:       "Webhook payload format [auto|embed|slack]",
			Category:    "Notify",
			Value:       string(notify.FormatAuto),
			Destination: &x.format,
			Sources:     cli.EnvVars("TRADESCOUT_WEBHOOK_FORMAT"),
		},
	}
}

// webhook URLs carry their credential in the path
func (x Notify) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("lead_webhook", x.leadWebhook != ""),
		slog.Bool("trader_webhook", x.traderWebhook != ""),
		slog.String("format", x.format),
	)
}

// LeadNotifier returns the destination of chat leads
func (x *Notify) LeadNotifier() (interfaces.Notifier, error) {
	return x.notifier(x.leadWebhook)
}

// TraderNotifier returns the destination of scan results
func (x *Notify) TraderNotifier() (interfaces.Notifier, error) {
	return x.notifier(x.traderWebhook)
}

func (x *Notify) notifier(hookURL string) (interfaces.Notifier, error) {
	if hookURL == "" {
		return notify.Log{}, nil
	}

	format := notify.Format(x.format)
	switch format {
	case notify.FormatAuto, notify.FormatEmbed, notify.FormatSlack:
	default:
		return nil, goerr.Wrap(ErrInvalidConfig, "invalid webhook format", goerr.V("format", x.format))
	}

	hook, err := notify.NewWebhook(hookURL, notify.WithFormat(format))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure webhook")
	}
	return hook, nil
}
