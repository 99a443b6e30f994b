package slack

import (
	"context"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
)

// Service is the subset of the Slack Web API the bot relies on
type Service interface {
	// PostMessage posts plain text to a channel and returns the message timestamp
	PostMessage(ctx context.Context, channelID, text string) (string, error)

	// GetUserInfo resolves one user, cached for the configured TTL
	GetUserInfo(ctx context.Context, userID string) (*User, error)

	// ListUsers retrieves all non-deleted, non-bot users in the workspace
	ListUsers(ctx context.Context) ([]*User, error)

	// ListUserGroups retrieves all enabled user groups with their members
	ListUserGroups(ctx context.Context) ([]*UserGroup, error)

	// GetConversationHistory returns up to limit of the latest messages in a
	// channel, newest first
	GetConversationHistory(ctx context.Context, channelID string, limit int) ([]*model.ChatMessage, error)
}

// User represents a Slack user
type User struct {
	ID          string
	Name        string
	RealName    string
	DisplayName string
	IsBot       bool
}

// UserGroup represents a Slack user group. Groups stand in for community roles.
type UserGroup struct {
	ID     string
	Handle string
	Name   string
	Users  []string
}
