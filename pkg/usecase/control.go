package usecase

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/tradescout/pkg/domain/interfaces"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	slacksvc "github.com/secmon-lab/tradescout/pkg/service/slack"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const (
	// SettingsSnapshot is the snapshot name of operator settings
	SettingsSnapshot = "settings"

	AutoclaimOnMessage  = "Autoclaim is now *ON*."
	AutoclaimOffMessage = "Autoclaim is now *OFF*."

	claimHistoryLimit = 20
	claimText         = "c"
)

var claimCommand = regexp.MustCompile(`^c\s*$`)

// ControlConfig names the channels of the operator stream
type ControlConfig struct {
	// TargetChannel receives claimed names
	TargetChannel string
	// CommandChannel accepts r/t toggles. Defaults to TargetChannel.
	CommandChannel string
	// ClaimChannel is where lead notifications land and "c" claims them
	ClaimChannel string
	// SelfUserID is the bot's own user ID; its messages never toggle anything
	SelfUserID string
	// AutoclaimOverride, when set, wins over the persisted flag at load time
	AutoclaimOverride *bool
}

// ControlUseCase handles the operator stream: autoclaim toggles and claims
type ControlUseCase struct {
	slack  slacksvc.Service
	store  interfaces.SnapshotStore
	ledger *ledger.Ledger
	cfg    ControlConfig

	mu        sync.Mutex
	autoclaim atomic.Bool
}

// NewControlUseCase creates a ControlUseCase. Call Load to restore the flag.
func NewControlUseCase(slack slacksvc.Service, store interfaces.SnapshotStore, ledger *ledger.Ledger, cfg ControlConfig) *ControlUseCase {
	if cfg.CommandChannel == "" {
		cfg.CommandChannel = cfg.TargetChannel
	}
	return &ControlUseCase{
		slack:  slack,
		store:  store,
		ledger: ledger,
		cfg:    cfg,
	}
}

// Load restores the autoclaim flag. Unreadable settings count as off.
func (uc *ControlUseCase) Load(ctx context.Context) error {
	logger := logging.From(ctx)

	if uc.cfg.AutoclaimOverride != nil {
		uc.autoclaim.Store(*uc.cfg.AutoclaimOverride)
		logger.Info("autoclaim set from environment", "enabled", *uc.cfg.AutoclaimOverride)
		return nil
	}

	data, err := uc.store.Load(ctx, SettingsSnapshot)
	if err != nil {
		return goerr.Wrap(err, "failed to load settings")
	}
	settings, err := model.ParseSettings(data)
	if err != nil {
		logger.Warn("settings are corrupt, autoclaim off", "error", err)
		settings = &model.Settings{}
	}
	uc.autoclaim.Store(settings.AutoclaimEnabled)

	logger.Info("autoclaim loaded", "enabled", settings.AutoclaimEnabled,
		"command_channel", uc.cfg.CommandChannel)
	return nil
}

// AutoclaimEnabled reports the current flag
func (uc *ControlUseCase) AutoclaimEnabled() bool {
	return uc.autoclaim.Load()
}

// SetAutoclaim updates and persists the flag
func (uc *ControlUseCase) SetAutoclaim(ctx context.Context, enabled bool) error {
	uc.autoclaim.Store(enabled)

	data, err := (&model.Settings{AutoclaimEnabled: enabled}).Marshal()
	if err != nil {
		return err
	}
	if err := uc.store.Save(ctx, SettingsSnapshot, data); err != nil {
		return goerr.Wrap(err, "failed to save settings")
	}
	return nil
}

// HandleMessage processes one message of the operator stream
func (uc *ControlUseCase) HandleMessage(ctx context.Context, msg *model.ChatMessage) error {
	if msg == nil {
		return nil
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()

	text := strings.ToLower(strings.TrimSpace(msg.Text))

	if msg.ChannelID == uc.cfg.CommandChannel && !msg.AuthoredBy(uc.cfg.SelfUserID) {
		switch text {
		case "r":
			return uc.toggle(ctx, msg.ChannelID, true)
		case "t":
			return uc.toggle(ctx, msg.ChannelID, false)
		}
	}

	if uc.cfg.ClaimChannel != "" && msg.ChannelID == uc.cfg.ClaimChannel && claimCommand.MatchString(text) {
		return uc.claim(ctx, msg)
	}
	return nil
}

func (uc *ControlUseCase) toggle(ctx context.Context, channelID string, enabled bool) error {
	if err := uc.SetAutoclaim(ctx, enabled); err != nil {
		return err
	}

	reply := AutoclaimOffMessage
	if enabled {
		reply = AutoclaimOnMessage
	}
	logging.From(ctx).Info("autoclaim toggled", "enabled", enabled)

	if _, err := uc.slack.PostMessage(ctx, channelID, reply); err != nil {
		return goerr.Wrap(err, "failed to echo autoclaim state", goerr.V(ChannelIDKey, channelID))
	}
	return nil
}

// claim relays the newest lead notification in the claim channel to the target
// channel. Names never notified, or already claimed, are skipped.
func (uc *ControlUseCase) claim(ctx context.Context, cmd *model.ChatMessage) error {
	logger := logging.From(ctx)

	history, err := uc.slack.GetConversationHistory(ctx, uc.cfg.ClaimChannel, claimHistoryLimit)
	if err != nil {
		return goerr.Wrap(err, "failed to read claim channel", goerr.V(ChannelIDKey, uc.cfg.ClaimChannel))
	}

	var name string
	for _, m := range history {
		if m.ID == cmd.ID || len(m.Attachments) == 0 {
			continue
		}
		if name = model.ExtractLeadName(&m.Attachments[0]); name != "" {
			break
		}
	}
	if name == "" {
		logger.Debug("no lead notification to claim")
		return nil
	}

	if uc.ledger.HasActioned(name) {
		logger.Info("claim skipped, already claimed", "name", name)
		return nil
	}
	if !uc.ledger.HasNotified(name) {
		logger.Info("claim skipped, not a reported lead", "name", name)
		return nil
	}

	if err := uc.ledger.MarkActioned(ctx, name); err != nil {
		return err
	}
	if _, err := uc.slack.PostMessage(ctx, uc.cfg.TargetChannel, name); err != nil {
		return goerr.Wrap(err, "failed to relay claimed name", goerr.V(ChannelIDKey, uc.cfg.TargetChannel))
	}
	logger.Info("claimed lead", "name", name, "target", uc.cfg.TargetChannel)
	return nil
}

// Autoclaim claims a freshly reported lead: the name is marked actioned and
// relayed to the target channel unless it already was, then "c" is posted to
// the claim channel.
func (uc *ControlUseCase) Autoclaim(ctx context.Context, name string) error {
	logger := logging.From(ctx)

	if !uc.ledger.HasActioned(name) {
		if err := uc.ledger.MarkActioned(ctx, name); err != nil {
			return err
		}
		if _, err := uc.slack.PostMessage(ctx, uc.cfg.TargetChannel, name); err != nil {
			return goerr.Wrap(err, "failed to relay autoclaimed name", goerr.V(ChannelIDKey, uc.cfg.TargetChannel))
		}
		logger.Info("autoclaimed lead", "name", name, "target", uc.cfg.TargetChannel)
	}

	if uc.cfg.ClaimChannel == "" {
		return nil
	}
	if _, err := uc.slack.PostMessage(ctx, uc.cfg.ClaimChannel, claimText); err != nil {
		return goerr.Wrap(err, "failed to post claim", goerr.V(ChannelIDKey, uc.cfg.ClaimChannel))
	}
	return nil
}
