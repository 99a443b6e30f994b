package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	slackmodel "github.com/secmon-lab/tradescout/pkg/domain/model/slack"
	"github.com/secmon-lab/tradescout/pkg/domain/qualify"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	slacksvc "github.com/secmon-lab/tradescout/pkg/service/slack"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	// LeadLedgerSnapshot is the snapshot name of the chat lead ledger
	LeadLedgerSnapshot = "logged_users"

	// DefaultLookupCommand asks the lookup bot about a user
	DefaultLookupCommand = "whois <@{user}>"

	lookupUserPlaceholder = "{user}"
)

// MonitorConfig names the channels of the primary stream
type MonitorConfig struct {
	// Channels are watched for candidate messages
	Channels []string
	// LookupChannel is where lookup commands are posted and answered
	LookupChannel string
	// LookupBotID is the user or bot ID whose replies are lookup responses
	LookupBotID string
	// LookupCommand is posted to request a lookup; {user} is the user ID
	LookupCommand string
}

// MonitorUseCase handles the primary stream: candidate messages in monitored
// channels and the lookup bot's replies. Events are processed one at a time.
type MonitorUseCase struct {
	slack     slacksvc.Service
	notifier  interfaces.Notifier
	inventory interfaces.Inventory
	ledger    *ledger.Ledger
	directory *Directory
	control   *ControlUseCase
	criteria  *qualify.LeadCriteria
	cfg       MonitorConfig
	now       func() time.Time

	mu        sync.Mutex
	activity  *model.ActivityLog
	pending   *model.PendingLookups
	debouncer *Debouncer
	checked   map[types.UserID]struct{}
}

// NewMonitorUseCase creates a MonitorUseCase
func NewMonitorUseCase(
	slack slacksvc.Service,
	notifier interfaces.Notifier,
	inventory interfaces.Inventory,
	ledger *ledger.Ledger,
	directory *Directory,
	control *ControlUseCase,
	criteria *qualify.LeadCriteria,
	cfg MonitorConfig,
	now func() time.Time,
) *MonitorUseCase {
	if criteria == nil {
		criteria = qualify.DefaultLeadCriteria()
	}
	if cfg.LookupCommand == "" {
		cfg.LookupCommand = DefaultLookupCommand
	}
	if now == nil {
		now = time.Now
	}

	return &MonitorUseCase{
		slack:     slack,
		notifier:  notifier,
		inventory: inventory,
		ledger:    ledger,
		directory: directory,
		control:   control,
		criteria:  criteria,
		cfg:       cfg,
		now:       now,
		activity:  model.NewActivityLog(model.WithActivityClock(now)),
		pending:   model.NewPendingLookups(),
		debouncer: NewDebouncer(criteria.DebounceWindow, now),
		checked:   make(map[types.UserID]struct{}),
	}
}

// HandleMessage routes a message of the primary stream
func (uc *MonitorUseCase) HandleMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg == nil {
		return nil
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	switch {
	case msg.ChannelID == uc.cfg.LookupChannel && msg.AuthoredBy(uc.cfg.LookupBotID):
		return uc.handleLookupResponse(ctx, msg)
	case slices.Contains(uc.cfg.Channels, msg.ChannelID):
		return uc.handleCandidate(ctx, msg)
	}
	return nil
}

// HandleLookupResponse processes a reply of the lookup bot
func (uc *MonitorUseCase) HandleLookupResponse(ctx context.Context, msg *model.ChatMessage) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.handleLookupResponse(ctx, msg)
}

// Pending returns the number of outstanding lookups
func (uc *MonitorUseCase) Pending() int {
	return uc.pending.Len()
}

func (uc *MonitorUseCase) handleCandidate(ctx context.Context, msg *model.ChatMessage) error {
	if msg.UserID == "" {
		return nil
	}
	uid := msg.UserID
	logger := logging.From(ctx).With("user_id", uid)

	if !msg.IsBot {
		uc.activity.Record(uid)
	}

	if _, ok := uc.checked[uid]; ok {
		return nil
	}
	if uc.ledger.HasSeen(string(uid)) {
		return nil
	}

	member := uc.directory.Member(uid)
	verdict := qualify.PreCheckLead(uc.criteria, &qualify.LeadSignals{
		Member:   member,
		Roles:    uc.directory.Roles(),
		Text:     msg.Text,
		Activity: uc.activity.Stats(uid, uc.criteria.NoviceRecentWindow),
		Now:      uc.now(),
	})
	if !verdict.Admit {
		logger.Info("candidate skipped", "verdict", verdict)
		return nil
	}

	uc.checked[uid] = struct{}{}

	lookup := &model.PendingLookup{
		RequestID:    uuid.NewString(),
		UserID:       uid,
		Username:     msg.Username,
		DisplayName:  msg.DisplayName,
		Text:         msg.Text,
		ChannelID:    msg.ChannelID,
		MessageID:    msg.ID,
		Member:       member,
		RegisteredAt: uc.now(),
	}
	if member != nil {
		if lookup.Username == "" {
			lookup.Username = member.Username
		}
		if member.DisplayName != "" {
			lookup.DisplayName = member.DisplayName
		}
	}
	if lookup.DisplayName == "" {
		lookup.DisplayName = lookup.Username
	}
	uc.pending.Register(uid, lookup)

	command := strings.ReplaceAll(uc.cfg.LookupCommand, lookupUserPlaceholder, string(uid))
	if _, err := uc.slack.PostMessage(ctx, uc.cfg.LookupChannel, command); err != nil {
		uc.pending.Remove(uid)
		return goerr.Wrap(err, "failed to post lookup command",
			goerr.V(UserIDKey, uid),
			goerr.V(ChannelIDKey, uc.cfg.LookupChannel))
	}

	logger.Info("lookup requested", "request_id", lookup.RequestID, "pending", uc.pending.Len())
	return nil
}

func (uc *MonitorUseCase) handleLookupResponse(ctx context.Context, msg *model.ChatMessage) error {
	logger := logging.From(ctx)

	resp := model.ParseLookupResponse(msg)
	if resp == nil {
		logger.Debug("lookup reply without card", "message_id", msg.ID)
		return nil
	}
	logger = logger.With("reported_name", resp.ReportedName)

	if uc.ledger.HasNotified(resp.ReportedName) {
		logger.Info("lookup skipped, name already reported")
		return nil
	}
	if key, _, ok := uc.pending.Oldest(); ok && uc.ledger.HasSeen(string(key)) {
		uc.pending.Remove(key)
		logger.Info("lookup skipped, pending user already reported", "user_id", key)
		return nil
	}
	if resp.PlayerID == "" {
		logger.Info("lookup skipped, no player ID in reply")
		return nil
	}

	res := uc.pending.Resolve(resp.ReportedName)
	if res == nil {
		logger.Info("lookup reply has no pending request")
		return nil
	}
	if !res.Matched {
		logger.Warn("no name match for lookup reply, using oldest pending request", "user_id", res.Key)
	}

	uid := res.Key
	lookup := res.Lookup
	logger = logger.With("user_id", uid, "player_id", resp.PlayerID, "request_id", lookup.RequestID)

	valuation := uc.inventory.CollectibleValue(ctx, resp.PlayerID)

	member := uc.directory.Member(uid)
	if member == nil {
		member = lookup.Member
	}
	verdict := qualify.Lead(uc.criteria, &qualify.LeadSignals{
		Member:           member,
		Roles:            uc.directory.Roles(),
		Text:             lookup.Text,
		Activity:         uc.activity.Stats(uid, uc.criteria.NoviceRecentWindow),
		Seen:             uc.ledger.HasSeen(string(uid)),
		Valuation:        valuation,
		RecentlyNotified: uc.debouncer.Recently(uid),
		Now:              uc.now(),
	})
	if !verdict.Admit {
		logger.Info("lead skipped", "verdict", verdict)
		return nil
	}
	uc.debouncer.Touch(uid)

	notification := model.NewLeadNotification(model.Lead{
		ReportedName: resp.ReportedName,
		PlayerID:     resp.PlayerID,
		Valuation:    valuation,
		Message:      lookup.Text,
		MessageURL:   slackmodel.MessageLink(lookup.ChannelID, lookup.MessageID),
		AvatarURL:    resp.AvatarURL,
	}, uc.now())

	if err := uc.notifier.Notify(ctx, notification); err != nil {
		return goerr.Wrap(ErrNotificationFailed, "failed to notify lead",
			goerr.V(UserIDKey, uid),
			goerr.V(PlayerIDKey, resp.PlayerID),
			goerr.V("cause", err.Error()))
	}
	if err := uc.ledger.MarkSeen(ctx, string(uid), resp.ReportedName); err != nil {
		return goerr.Wrap(err, "failed to record lead", goerr.V(UserIDKey, uid))
	}
	logger.Info("lead reported", "valuation", formatValuation(valuation))

	if uc.control != nil && uc.control.AutoclaimEnabled() {
		if err := uc.control.Autoclaim(ctx, resp.ReportedName); err != nil {
			return goerr.Wrap(err, "failed to autoclaim lead", goerr.V(UserIDKey, uid))
		}
	}
	return nil
}

func formatValuation(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return model.FormatNumber(*v)
}
