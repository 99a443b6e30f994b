package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// ErrNotConfigured is returned when an operation needs a collaborator that was
	// not wired in
	ErrNotConfigured = errors.New("use case is not configured")

	// ErrNotificationFailed wraps a notifier failure
	ErrNotificationFailed = errors.New("notification failed")
)

// Context keys for error values
const (
	UserIDKey    = "user_id"
	PlayerIDKey  = "player_id"
	ItemIDKey    = "item_id"
	ChannelIDKey = "channel_id"
)
