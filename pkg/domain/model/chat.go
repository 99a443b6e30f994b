package model

import (
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/types"
)

// ChatMessage is a message observed on the chat platform. Identity fields are
// filled by the ingress adapter; names may be empty when the platform event does
// not carry them and the directory could not resolve the author.
type ChatMessage struct {
	ID          string
	ChannelID   string
	UserID      types.UserID
	Username    string
	DisplayName string
	Text        string
	BotID       string
	IsBot       bool
	Attachments []Attachment
	CreatedAt   time.Time
}

// Attachment is a structured card attached to a message (embed on Discord,
// attachment on Slack). Lookup bots reply with one of these.
type Attachment struct {
	Title    string
	Text     string
	ThumbURL string
	ImageURL string
	Fields   []AttachmentField
}

// AttachmentField is a name/value pair of an attachment
type AttachmentField struct {
	Name  string
	Value string
}

// AuthoredBy reports whether the message was sent by the given user or bot ID
func (m *ChatMessage) AuthoredBy(id string) bool {
	if id == "" {
		return false
	}
	return string(m.UserID) == id || m.BotID == id
}
