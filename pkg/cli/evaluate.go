package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/secmon-lab/tradescout/pkg/cli/config"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/safe"
)

var (
	admitColor  = color.New(color.FgGreen, color.Bold)
	rejectColor = color.New(color.FgRed, color.Bold)
	labelColor  = color.New(color.FgHiBlack)
)

func cmdEvaluate() *cli.Command {
	var storeCfg config.Store
	var slackCfg config.Slack
	var scanCfg config.Scan
	var filterCfg config.Filter

	var flags []cli.Flag
	flags = append(flags, storeCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, scanCfg.Flags()...)
	flags = append(flags, filterCfg.Flags()...)

	return &cli.Command{
		Name:      "evaluate",
		Aliases:   []string{"eval"},
		Usage:     "Print the trader verdict for marketplace players without notifying",
		ArgsUsage: "<player-id>...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ids := c.Args().Slice()
			if len(ids) == 0 {
				return goerr.New("at least one player ID is required")
			}
			for _, id := range ids {
				if err := types.PlayerID(id).Validate(); err != nil {
					return err
				}
			}

			settings, err := filterCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load filter configuration")
			}
			// nothing is notified; the log notifier only satisfies wiring
			opts, err := scanOptions(&scanCfg, &config.Notify{}, settings)
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

			_, scanLedger, err := loadLedgers(ctx, store)
			if err != nil {
				return err
			}
			uc := usecase.New(store, append(opts, usecase.WithLedgers(nil, scanLedger))...)
			syncDirectory(ctx, slackSvc, uc.Directory)

			w := c.Root().Writer
			for _, id := range ids {
				ev, err := uc.Scan.Evaluate(ctx, types.PlayerID(id))
				if err != nil {
					return err
				}
				printEvaluation(w, ev, time.Now())
			}
			return nil
		},
	}
}

func printEvaluation(w io.Writer, ev *usecase.Evaluation, now time.Time) {
	name := "(unknown)"
	if ev.Info != nil && ev.Info.Name != "" {
		name = ev.Info.Name
	}

	verdict := admitColor.Sprint("ADMIT")
	if !ev.Verdict.Admit {
		verdict = rejectColor.Sprintf("REJECT %s", ev.Verdict.Gate)
	}
	fmt.Fprintf(w, "%s %s  %s\n", ev.PlayerID, name, verdict)
	if !ev.Verdict.Admit {
		fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("reason"), ev.Verdict.Reason)
	}
	if ev.Seen {
		fmt.Fprintf(w, "  %s already reported\n", labelColor.Sprint("ledger"))
	}

	if ev.Info != nil {
		fields := []string{
			labelColor.Sprint("value") + " " + model.FormatNumber(ev.Info.Value),
			labelColor.Sprint("rap") + " " + model.FormatNumber(ev.Info.RAP),
		}
		if ev.Info.Rank != nil {
			fields = append(fields, fmt.Sprintf("%s %d", labelColor.Sprint("rank"), *ev.Info.Rank))
		}
		if ev.Info.LastOnline != nil {
			ago := now.Sub(time.Unix(*ev.Info.LastOnline, 0)).Truncate(time.Hour)
			fields = append(fields, fmt.Sprintf("%s %s ago", labelColor.Sprint("online"), ago))
		}
		if ev.OwnedDays != nil {
			fields = append(fields, fmt.Sprintf("%s %d days", labelColor.Sprint("owned"), *ev.OwnedDays))
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(fields, "  "))
	}

	var contact []string
	if ev.Contact.Marker {
		contact = append(contact, "marker")
	}
	if ev.Contact.Mention {
		contact = append(contact, "mention")
	}
	if ev.Contact.InRoster {
		contact = append(contact, "roster")
	}
	if ev.Contact.Hint {
		contact = append(contact, "hint")
	}
	if len(contact) > 0 {
		fmt.Fprintf(w, "  %s %s\n", labelColor.Sprint("contact"), strings.Join(contact, ", "))
	}
}
