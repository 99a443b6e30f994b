package worker

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/tradescout/pkg/domain/model"
	"github.com/secmon-lab/tradescout/pkg/domain/types"
	"github.com/secmon-lab/tradescout/pkg/service/slack"
	"github.com/secmon-lab/tradescout/pkg/usecase"
	"github.com/secmon-lab/tradescout/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DirectoryRefreshWorker keeps the community directory in sync with the Slack
// workspace. User groups stand in for roles.
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - The directory lives in memory and is rebuilt on every start
type DirectoryRefreshWorker struct {
	slackService slack.Service
	directory    *usecase.Directory
	interval     time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}
}

// NewDirectoryRefreshWorker creates a new worker for refreshing the member directory
func NewDirectoryRefreshWorker(slackSvc slack.Service, directory *usecase.Directory, interval time.Duration) *DirectoryRefreshWorker {
	return &DirectoryRefreshWorker{
		slackService: slackSvc,
		directory:    directory,
		interval:     interval,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start begins the background refresh loop. The initial sync runs in the
// background too, so server startup is never blocked on Slack.
func (w *DirectoryRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("directory refresh worker starting",
		"interval", w.interval.String())

	go w.run(ctx)

	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *DirectoryRefreshWorker) Stop() {
	logging.Default().Info("directory refresh worker stopping")
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("directory refresh worker stopped")
}

func (w *DirectoryRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	if err := w.Refresh(ctx); err != nil {
		logging.Default().Error("initial directory refresh failed (will retry next interval)",
			"error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				logging.Default().Error("directory refresh failed (will retry next interval)",
					"error", err.Error())
			}

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("directory refresh worker context cancelled")
			return
		}
	}
}

// Refresh performs a single refresh cycle. On any Slack failure the previous
// directory stays in place.
func (w *DirectoryRefreshWorker) Refresh(ctx context.Context) error {
	startTime := time.Now()

	var (
		users  []*slack.User
		groups []*slack.UserGroup
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		if users, err = w.slackService.ListUsers(egCtx); err != nil {
			return goerr.Wrap(err, "failed to list Slack users")
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		if groups, err = w.slackService.ListUserGroups(egCtx); err != nil {
			return goerr.Wrap(err, "failed to list Slack user groups")
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	members := BuildMembers(w.directory.Roles(), users, groups)
	w.directory.Replace(members, startTime)

	logging.Default().Info("directory refresh completed",
		"members", len(members),
		"groups", len(groups),
		"duration", time.Since(startTime).String())

	return nil
}

// BuildMembers joins Slack users with the roles their user groups map to.
// Groups without a role binding are ignored. Bots never become members.
func BuildMembers(roles *model.RoleTable, users []*slack.User, groups []*slack.UserGroup) []*model.Member {
	userRoles := make(map[string][]model.Role)
	for _, g := range groups {
		role := roles.ByGroup(g.ID)
		if role == nil {
			continue
		}
		for _, uid := range g.Users {
			userRoles[uid] = append(userRoles[uid], *role)
		}
	}

	members := make([]*model.Member, 0, len(users))
	for _, u := range users {
		if u == nil || u.IsBot {
			continue
		}
		members = append(members, &model.Member{
			UserID:      types.UserID(u.ID),
			Username:    u.Name,
			DisplayName: u.DisplayName,
			RealName:    u.RealName,
			Roles:       userRoles[u.ID],
		})
	}
	return members
}
