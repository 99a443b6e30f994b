package worker_test

import (
	"context"
	"sync"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
)

type mockSlackService struct {
	mu              sync.Mutex
	users           []*slack.User
	groups          []*slack.UserGroup
	listUsersErr    error
	listGroupsErr   error
	listUsersCalled int
}

func (m *mockSlackService) setUsers(users []*slack.User, groups []*slack.UserGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = users
	m.groups = groups
}

func (m *mockSlackService) setErrors(usersErr, groupsErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listUsersErr = usersErr
	m.listGroupsErr = groupsErr
}

func (m *mockSlackService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listUsersCalled
}

func (m *mockSlackService) PostMessage(_ context.Context, _, _ string) (string, error) {
	return "1234567890.123456", nil
}

func (m *mockSlackService) GetUserInfo(_ context.Context, _ string) (*slack.User, error) {
	return nil, nil
}

func (m *mockSlackService) ListUsers(_ context.Context) ([]*slack.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listUsersCalled++
	if m.listUsersErr != nil {
		return nil, m.listUsersErr
	}
	return m.users, nil
}

func (m *mockSlackService) ListUserGroups(_ context.Context) ([]*slack.UserGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listGroupsErr != nil {
		return nil, m.listGroupsErr
	}
	return m.groups, nil
}

func (m *mockSlackService) GetConversationHistory(_ context.Context, _ string, _ int) ([]*model.ChatMessage, error) {
	return nil, nil
}
