package slack

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	slackmodel "github.com/secmon-lab/tradescout/pkg/domain/model/slack"
)

// DefaultCacheTTL is the default TTL for the user info cache
const DefaultCacheTTL = 10 * time.Minute

type cacheEntry struct {
	user      *User
	expiresAt time.Time
}

// client implements Service interface
type client struct {
	api      *slack.Client
	apiURL   string
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// Option is a functional option for client configuration
type Option func(*client)

// WithCacheTTL sets the TTL for the user info cache
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *client) {
		c.cacheTTL = ttl
	}
}

// WithAPIURL points the client at another Web API endpoint
func WithAPIURL(url string) Option {
	return func(c *client) {
		c.apiURL = url
	}
}

// New creates a new Slack service with the provided bot token
func New(token string, opts ...Option) (Service, error) {
	if token == "" {
		return nil, goerr.New("Slack bot token is required")
	}

	c := &client{
		cacheTTL: DefaultCacheTTL,
		cache:    make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}

	var apiOpts []slack.Option
	if c.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(c.apiURL))
	}
	c.api = slack.New(token, apiOpts...)

	return c, nil
}

// PostMessage posts plain text to a channel
func (c *client) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", goerr.Wrap(err, "failed to post message", goerr.V("channel_id", channelID))
	}
	return ts, nil
}

// GetUserInfo retrieves user information for the given user ID with caching
func (c *client) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.cache[userID]
	c.mu.RUnlock()
	if ok && entry.expiresAt.After(now) {
		return entry.user, nil
	}

	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user info", goerr.V("user_id", userID))
	}
	user := toUser(u)

	c.mu.Lock()
	c.cache[userID] = cacheEntry{user: user, expiresAt: now.Add(c.cacheTTL)}
	c.mu.Unlock()

	return user, nil
}

// ListUsers retrieves all non-deleted, non-bot users in the workspace
func (c *client) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}

	result := make([]*User, 0, len(users))
	for i := range users {
		if users[i].Deleted || users[i].IsBot {
			continue
		}
		result = append(result, toUser(&users[i]))
	}

	return result, nil
}

// ListUserGroups retrieves enabled user groups including their member IDs
func (c *client) ListUserGroups(ctx context.Context) ([]*UserGroup, error) {
	groups, err := c.api.GetUserGroupsContext(ctx, slack.GetUserGroupsOptionIncludeUsers(true))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list user groups")
	}

	result := make([]*UserGroup, 0, len(groups))
	for _, g := range groups {
		if g.DateDelete != 0 {
			continue
		}
		result = append(result, &UserGroup{
			ID:     g.ID,
			Handle: g.Handle,
			Name:   g.Name,
			Users:  g.Users,
		})
	}
	return result, nil
}

// GetConversationHistory returns the latest messages of a channel, newest first
func (c *client) GetConversationHistory(ctx context.Context, channelID string, limit int) ([]*model.ChatMessage, error) {
	resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     limit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get conversation history", goerr.V("channel_id", channelID))
	}

	msgs := make([]*model.ChatMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, slackmodel.NewChatMessageFromHistory(channelID, m))
	}
	return msgs, nil
}

func toUser(u *slack.User) *User {
	return &User{
		ID:          u.ID,
		Name:        u.Name,
		RealName:    u.RealName,
		DisplayName: u.Profile.DisplayName,
		IsBot:       u.IsBot,
	}
}
