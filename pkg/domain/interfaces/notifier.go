package interfaces

import (
	"context"

	"github.com/secmon-lab/tradescout/pkg/domain/model"
)

// Notifier delivers a notification to an operator channel. A non-nil error means
// the notification was not delivered; implementations do not retry.
type Notifier interface {
	Notify(ctx context.Context, n *model.Notification) error
}
