package slack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

const subTypeBotMessage = "bot_message"

// NewChatMessage converts a Slack Events API callback into a chat message. It
// returns nil for events that do not carry a new message (edits, deletions,
// non-message events).
func NewChatMessage(ctx context.Context, ev *slackevents.EventsAPIEvent) *model.ChatMessage {
	if ev.Type != slackevents.CallbackEvent {
		return nil
	}

	switch evt := ev.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		switch evt.SubType {
		case "", subTypeBotMessage, "thread_broadcast":
		default:
			logging.From(ctx).Debug("ignore message subtype", "subtype", evt.SubType, "channel", evt.Channel)
			return nil
		}

		username := evt.Username
		if username == "" {
			username = evt.User
		}
		return &model.ChatMessage{
			ID:          evt.TimeStamp,
			ChannelID:   evt.Channel,
			UserID:      types.UserID(evt.User),
			Username:    username,
			Text:        evt.Text,
			BotID:       evt.BotID,
			IsBot:       evt.BotID != "" || evt.SubType == subTypeBotMessage,
			Attachments: convertAttachments(evt.Attachments),
			CreatedAt:   ParseTimestamp(evt.TimeStamp),
		}

	default:
		return nil
	}
}

// NewChatMessageFromHistory converts a message returned by conversations.history
func NewChatMessageFromHistory(channelID string, msg goslack.Message) *model.ChatMessage {
	username := msg.Username
	if username == "" {
		username = msg.User
	}
	return &model.ChatMessage{
		ID:          msg.Timestamp,
		ChannelID:   channelID,
		UserID:      types.UserID(msg.User),
		Username:    username,
		Text:        msg.Text,
		BotID:       msg.BotID,
		IsBot:       msg.BotID != "" || msg.SubType == subTypeBotMessage,
		Attachments: convertAttachments(msg.Attachments),
		CreatedAt:   ParseTimestamp(msg.Timestamp),
	}
}

func convertAttachments(src []goslack.Attachment) []model.Attachment {
	if len(src) == 0 {
		return nil
	}
	out := make([]model.Attachment, 0, len(src))
	for _, a := range src {
		att := model.Attachment{
			Title:    a.Title,
			Text:     a.Text,
			ThumbURL: a.ThumbURL,
			ImageURL: a.ImageURL,
		}
		for _, f := range a.Fields {
			att.Fields = append(att.Fields, model.AttachmentField{Name: f.Title, Value: f.Value})
		}
		out = append(out, att)
	}
	return out
}

// ParseTimestamp converts a Slack "seconds.micros" timestamp. Unparseable input
// yields the zero time.
func ParseTimestamp(ts string) time.Time {
	sec, frac, _ := strings.Cut(ts, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var micros int64
	if frac != "" {
		if len(frac) > 6 {
			frac = frac[:6]
		}
		frac += strings.Repeat("0", 6-len(frac))
		if v, err := strconv.ParseInt(frac, 10, 64); err == nil {
			micros = v
		}
	}
	return time.Unix(s, micros*int64(time.Microsecond))
}

// MessageLink builds an archive permalink for a message
func MessageLink(channelID, ts string) string {
	return fmt.Sprintf("https://slack.com/archives/%s/p%s", channelID, strings.ReplaceAll(ts, ".", ""))
}
