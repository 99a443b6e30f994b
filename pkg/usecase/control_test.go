package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/repository/memory"
	"github.com/secmon-lab/tradescout/pkg/service/ledger"
	"github.com/secmon-lab/tradescout/pkg/usecase"
)

type controlFixture struct {
	uc     *usecase.ControlUseCase
	slack  *mockSlackService
	store  *memory.Memory
	ledger *ledger.Ledger
}

func newControlFixture(t *testing.T, cfg usecase.ControlConfig) *controlFixture {
	t.Helper()
	store := memory.New()
	f := &controlFixture{
		slack:  &mockSlackService{},
		store:  store,
		ledger: ledger.New(store, usecase.LeadLedgerSnapshot),
	}
	f.uc = usecase.NewControlUseCase(f.slack, store, f.ledger, cfg)
	gt.NoError(t, f.uc.Load(context.Background())).Required()
	return f
}

func defaultControlConfig() usecase.ControlConfig {
	return usecase.ControlConfig{
		TargetChannel: targetChannel,
		ClaimChannel:  claimChannel,
		SelfUserID:    selfUser,
	}
}

func command(channelID, userID, text string) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        "1700000300.000100",
		ChannelID: channelID,
		UserID:    types.UserID(userID),
		Text:      text,
	}
}

func TestControl_Load(t *testing.T) {
	t.Run("defaults to off", func(t *testing.T) {
		f := newControlFixture(t, defaultControlConfig())
		gt.Bool(t, f.uc.AutoclaimEnabled()).False()
	})

	t.Run("restores persisted flag", func(t *testing.T) {
		store := memory.New()
		gt.NoError(t, store.Save(context.Background(), usecase.SettingsSnapshot, []byte(`{"autoclaimEnabled": true}`))).Required()

		uc := usecase.NewControlUseCase(&mockSlackService{}, store, ledger.New(store, "x"), defaultControlConfig())
		gt.NoError(t, uc.Load(context.Background())).Required()
		gt.Bool(t, uc.AutoclaimEnabled()).True()
	})

	t.Run("corrupt settings count as off", func(t *testing.T) {
		store := memory.New()
		gt.NoError(t, store.Save(context.Background(), usecase.SettingsSnapshot, []byte(`{{`))).Required()

		uc := usecase.NewControlUseCase(&mockSlackService{}, store, ledger.New(store, "x"), defaultControlConfig())
		gt.NoError(t, uc.Load(context.Background())).Required()
		gt.Bool(t, uc.AutoclaimEnabled()).False()
	})

	t.Run("environment override wins", func(t *testing.T) {
		store := memory.New()
		gt.NoError(t, store.Save(context.Background(), usecase.SettingsSnapshot, []byte(`{"autoclaimEnabled": true}`))).Required()

		off := false
		cfg := defaultControlConfig()
		cfg.AutoclaimOverride = &off
		uc := usecase.NewControlUseCase(&mockSlackService{}, store, ledger.New(store, "x"), cfg)
		gt.NoError(t, uc.Load(context.Background())).Required()
		gt.Bool(t, uc.AutoclaimEnabled()).False()
	})
}

func TestControl_Toggle(t *testing.T) {
	f := newControlFixture(t, defaultControlConfig())
	ctx := context.Background()

	gt.NoError(t, f.uc.HandleMessage(ctx, command(targetChannel, "U-OP", "R"))).Required()
	gt.Bool(t, f.uc.AutoclaimEnabled()).True()
	gt.Value(t, f.slack.PostsTo(targetChannel)).Equal([]string{usecase.AutoclaimOnMessage})

	data, err := f.store.Load(ctx, usecase.SettingsSnapshot)
	gt.NoError(t, err).Required()
	settings, err := model.ParseSettings(data)
	gt.NoError(t, err).Required()
	gt.Bool(t, settings.AutoclaimEnabled).True()

	gt.NoError(t, f.uc.HandleMessage(ctx, command(targetChannel, "U-OP", " t "))).Required()
	gt.Bool(t, f.uc.AutoclaimEnabled()).False()
	gt.Value(t, f.slack.PostsTo(targetChannel)).Equal([]string{usecase.AutoclaimOnMessage, usecase.AutoclaimOffMessage})

	t.Run("own messages are ignored", func(t *testing.T) {
		gt.NoError(t, f.uc.HandleMessage(ctx, command(targetChannel, selfUser, "r"))).Required()
		gt.Bool(t, f.uc.AutoclaimEnabled()).False()
	})

	t.Run("other channels are ignored", func(t *testing.T) {
		gt.NoError(t, f.uc.HandleMessage(ctx, command("C-RANDOM", "U-OP", "r"))).Required()
		gt.Bool(t, f.uc.AutoclaimEnabled()).False()
	})

	t.Run("dedicated command channel", func(t *testing.T) {
		cfg := defaultControlConfig()
		cfg.CommandChannel = "C-COMMAND"
		f := newControlFixture(t, cfg)

		gt.NoError(t, f.uc.HandleMessage(ctx, command(targetChannel, "U-OP", "r"))).Required()
		gt.Bool(t, f.uc.AutoclaimEnabled()).False()

		gt.NoError(t, f.uc.HandleMessage(ctx, command("C-COMMAND", "U-OP", "r"))).Required()
		gt.Bool(t, f.uc.AutoclaimEnabled()).True()
		gt.Value(t, f.slack.PostsTo("C-COMMAND")).Equal([]string{usecase.AutoclaimOnMessage})
	})
}

func leadCard(id, text string) *model.ChatMessage {
	return &model.ChatMessage{
		ID:          id,
		ChannelID:   claimChannel,
		BotID:       "B-HOOK",
		IsBot:       true,
		Attachments: []model.Attachment{{Text: text}},
	}
}

func TestControl_Claim(t *testing.T) {
	f := newControlFixture(t, defaultControlConfig())
	ctx := context.Background()
	gt.NoError(t, f.ledger.MarkSeen(ctx, "U1", "alice")).Required()

	cmd := command(claimChannel, "U-OP", "c")
	f.slack.history = []*model.ChatMessage{
		cmd,
		{ID: "1700000250.000100", ChannelID: claimChannel, Text: "chatter"},
		leadCard("1700000200.000100", "*alice* • RAP: *300,000*\ndm me"),
		leadCard("1700000100.000100", "*bob* • RAP: *250,000*\ndm me"),
	}

	gt.NoError(t, f.uc.HandleMessage(ctx, cmd)).Required()
	gt.Value(t, f.slack.PostsTo(targetChannel)).Equal([]string{"alice"})
	gt.Bool(t, f.ledger.HasActioned("alice")).True()

	t.Run("already claimed name is not relayed again", func(t *testing.T) {
		gt.NoError(t, f.uc.HandleMessage(ctx, cmd)).Required()
		gt.Array(t, f.slack.PostsTo(targetChannel)).Length(1)
	})

	t.Run("name never reported is not claimed", func(t *testing.T) {
		f := newControlFixture(t, defaultControlConfig())
		f.slack.history = []*model.ChatMessage{leadCard("1", "*carol* • RAP: *300,000*")}

		gt.NoError(t, f.uc.HandleMessage(ctx, command(claimChannel, "U-OP", "c"))).Required()
		gt.Array(t, f.slack.Posts()).Length(0)
		gt.Bool(t, f.ledger.HasActioned("carol")).False()
	})

	t.Run("history failure is returned", func(t *testing.T) {
		f := newControlFixture(t, defaultControlConfig())
		f.slack.historyFn = func(ctx context.Context, channelID string, limit int) ([]*model.ChatMessage, error) {
			gt.Value(t, limit).Equal(20)
			return nil, errMock
		}
		gt.Error(t, f.uc.HandleMessage(ctx, command(claimChannel, "U-OP", "c")))
	})

	t.Run("only a bare c claims", func(t *testing.T) {
		f := newControlFixture(t, defaultControlConfig())
		gt.NoError(t, f.ledger.MarkSeen(ctx, "U1", "alice")).Required()
		f.slack.history = []*model.ChatMessage{leadCard("1", "*alice* • RAP: *300,000*")}

		gt.NoError(t, f.uc.HandleMessage(ctx, command(claimChannel, "U-OP", "cool"))).Required()
		gt.Array(t, f.slack.Posts()).Length(0)
	})
}

func TestControl_Autoclaim(t *testing.T) {
	f := newControlFixture(t, defaultControlConfig())
	ctx := context.Background()

	gt.NoError(t, f.uc.Autoclaim(ctx, "Alice (main)")).Required()
	gt.Value(t, f.slack.PostsTo(targetChannel)).Equal([]string{"Alice (main)"})
	gt.Value(t, f.slack.PostsTo(claimChannel)).Equal([]string{"c"})
	gt.Bool(t, f.ledger.HasActioned("alice")).True()
	gt.Bool(t, f.ledger.HasNotified("alice")).True()

	gt.NoError(t, f.uc.Autoclaim(ctx, "alice")).Required()
	gt.Array(t, f.slack.PostsTo(targetChannel)).Length(1)
	gt.Array(t, f.slack.PostsTo(claimChannel)).Length(2)
}
