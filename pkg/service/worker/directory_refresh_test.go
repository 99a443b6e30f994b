package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
	"github.com/secmon-lab/tradescout/pkg/service/worker"
	"github.com/secmon-lab/tradescout/pkg/usecase"
)

func testRoleTable() *model.RoleTable {
	return &model.RoleTable{
		Roles: []model.Role{
			{Name: "Newcomer", Position: 1, GroupID: "S1"},
			{Name: "Verified", Position: 2, GroupID: "S2"},
			{Name: "Moderator", Position: 5, GroupID: "S5"},
		},
		NoviceRole:   "Newcomer",
		VerifiedRole: "Verified",
	}
}

func TestBuildMembers(t *testing.T) {
	users := []*slack.User{
		{ID: "U1", Name: "alice", RealName: "Alice Smith", DisplayName: "ally"},
		{ID: "U2", Name: "bob"},
		{ID: "B1", Name: "lookup-bot", IsBot: true},
		nil,
	}
	groups := []*slack.UserGroup{
		{ID: "S1", Users: []string{"U1", "U2"}},
		{ID: "S5", Users: []string{"U1"}},
		{ID: "S9", Users: []string{"U2"}},
	}

	members := worker.BuildMembers(testRoleTable(), users, groups)
	gt.Array(t, members).Length(2).Required()

	alice := members[0]
	gt.Value(t, alice.UserID).Equal(types.UserID("U1"))
	gt.Value(t, alice.DisplayName).Equal("ally")
	gt.Array(t, alice.Roles).Length(2)
	gt.Value(t, alice.Highest().Name).Equal("Moderator")

	bob := members[1]
	gt.Array(t, bob.Roles).Length(1).Required()
	gt.Value(t, bob.Roles[0].Name).Equal("Newcomer")
}

func TestDirectoryRefreshWorker_Refresh(t *testing.T) {
	ctx := context.Background()
	dir := usecase.NewDirectory(testRoleTable())
	svc := &mockSlackService{}
	svc.setUsers(
		[]*slack.User{{ID: "U1", Name: "alice"}, {ID: "U2", Name: "bob"}},
		[]*slack.UserGroup{{ID: "S2", Users: []string{"U2"}}},
	)

	w := worker.NewDirectoryRefreshWorker(svc, dir, time.Hour)
	gt.NoError(t, w.Refresh(ctx))

	gt.Number(t, dir.Len()).Equal(2)
	gt.Bool(t, dir.UpdatedAt().IsZero()).False()
	gt.Bool(t, dir.Member("U2").HasRole("verified")).True()
	gt.Bool(t, dir.InRoster("Alice")).True()
}

func TestDirectoryRefreshWorker_KeepsDirectoryOnFailure(t *testing.T) {
	ctx := context.Background()
	dir := usecase.NewDirectory(testRoleTable())
	svc := &mockSlackService{}
	svc.setUsers([]*slack.User{{ID: "U1", Name: "alice"}}, nil)

	w := worker.NewDirectoryRefreshWorker(svc, dir, time.Hour)
	gt.NoError(t, w.Refresh(ctx))
	before := dir.UpdatedAt()

	t.Run("users", func(t *testing.T) {
		svc.setErrors(errors.New("slack API error"), nil)
		gt.Error(t, w.Refresh(ctx))
		gt.Number(t, dir.Len()).Equal(1)
		gt.Value(t, dir.UpdatedAt()).Equal(before)
	})

	t.Run("groups", func(t *testing.T) {
		svc.setErrors(nil, errors.New("usergroups.list failed"))
		gt.Error(t, w.Refresh(ctx))
		gt.Number(t, dir.Len()).Equal(1)
		gt.Value(t, dir.UpdatedAt()).Equal(before)
	})
}

func TestDirectoryRefreshWorker_PeriodicRefresh(t *testing.T) {
	ctx := context.Background()
	dir := usecase.NewDirectory(testRoleTable())
	svc := &mockSlackService{}
	svc.setUsers([]*slack.User{{ID: "U1", Name: "alice"}}, nil)

	w := worker.NewDirectoryRefreshWorker(svc, dir, 100*time.Millisecond)
	gt.NoError(t, w.Start(ctx))
	defer w.Stop()

	// initial sync runs in the background
	time.Sleep(50 * time.Millisecond)
	gt.Number(t, dir.Len()).Equal(1)

	svc.setUsers([]*slack.User{{ID: "U1", Name: "alice"}, {ID: "U2", Name: "bob"}}, nil)
	time.Sleep(200 * time.Millisecond)
	gt.Number(t, dir.Len()).Equal(2)
}

func TestDirectoryRefreshWorker_StopsCleanly(t *testing.T) {
	svc := &mockSlackService{}
	w := worker.NewDirectoryRefreshWorker(svc, usecase.NewDirectory(nil), 100*time.Millisecond)
	gt.NoError(t, w.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)

	stopStart := time.Now()
	w.Stop()
	gt.Bool(t, time.Since(stopStart) < time.Second).True()
	gt.Bool(t, svc.calls() >= 1).True()
}
