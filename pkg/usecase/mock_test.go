package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
)

var errMock = errors.New("mock failure")

type post struct {
	Channel string
	Text    string
}

// mockSlackService is a mock implementation of slack.Service for testing
type mockSlackService struct {
	mu        sync.Mutex
	posts     []post
	postErr   error
	history   []*model.ChatMessage
	historyFn func(ctx context.Context, channelID string, limit int) ([]*model.ChatMessage, error)
}

func (m *mockSlackService) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	m.posts = append(m.posts, post{Channel: channelID, Text: text})
	return "1700000000.000100", nil
}

func (m *mockSlackService) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	return &slack.User{ID: userID, Name: "user-" + userID}, nil
}

func (m *mockSlackService) ListUsers(ctx context.Context) ([]*slack.User, error) {
	return nil, nil
}

func (m *mockSlackService) ListUserGroups(ctx context.Context) ([]*slack.UserGroup, error) {
	return nil, nil
}

func (m *mockSlackService) GetConversationHistory(ctx context.Context, channelID string, limit int) ([]*model.ChatMessage, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, channelID, limit)
	}
	return m.history, nil
}

func (m *mockSlackService) Posts() []post {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]post(nil), m.posts...)
}

func (m *mockSlackService) PostsTo(channelID string) []string {
	var out []string
	for _, p := range m.Posts() {
		if p.Channel == channelID {
			out = append(out, p.Text)
		}
	}
	return out
}

// mockNotifier records delivered notifications
type mockNotifier struct {
	mu   sync.Mutex
	sent []*model.Notification
	err  error
}

func (m *mockNotifier) Notify(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) Sent() []*model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Notification(nil), m.sent...)
}

// mockInventory serves canned inventory data and counts bio requests
type mockInventory struct {
	mu        sync.Mutex
	values    map[types.PlayerID]int64
	owned     map[types.PlayerID]int
	itemOwned map[types.PlayerID]map[types.ItemID]int
	bios      map[types.PlayerID]string
	bioCalls  map[types.PlayerID]int
}

func (m *mockInventory) CollectibleValue(ctx context.Context, id types.PlayerID) *int64 {
	v, ok := m.values[id]
	if !ok {
		return nil
	}
	return &v
}

func (m *mockInventory) OldestOwnedDays(ctx context.Context, id types.PlayerID) *int {
	d, ok := m.owned[id]
	if !ok {
		return nil
	}
	return &d
}

func (m *mockInventory) ItemOwnedDays(ctx context.Context, id types.PlayerID, item types.ItemID) *int {
	d, ok := m.itemOwned[id][item]
	if !ok {
		return nil
	}
	return &d
}

func (m *mockInventory) Bio(ctx context.Context, id types.PlayerID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bioCalls == nil {
		m.bioCalls = make(map[types.PlayerID]int)
	}
	m.bioCalls[id]++
	return m.bios[id]
}

func (m *mockInventory) BioCalls(id types.PlayerID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bioCalls[id]
}

// mockMarketplace serves canned marketplace data
type mockMarketplace struct {
	creators []types.PlayerID
	players  map[types.PlayerID]*model.PlayerInfo
	items    map[types.ItemID]string
}

func (m *mockMarketplace) RecentTradeAdCreators(ctx context.Context) []types.PlayerID {
	return m.creators
}

func (m *mockMarketplace) PlayerInfo(ctx context.Context, id types.PlayerID) *model.PlayerInfo {
	return m.players[id]
}

func (m *mockMarketplace) ItemName(ctx context.Context, id types.ItemID) string {
	if name, ok := m.items[id]; ok {
		return name
	}
	return string(id)
}

// fixedClock returns a clock frozen at t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
