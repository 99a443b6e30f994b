package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/tradescout/pkg/utils/logging"
)

// Close closes c and logs a failure. Nil is a no-op.
func Close(ctx context.Context, c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logging.From(ctx).Warn("close failed", slog.Any("error", err))
	}
}

// DrainClose discards what is left of an HTTP response body and closes it, so
// the keep-alive connection goes back to the pool.
func DrainClose(ctx context.Context, body io.ReadCloser) {
	if body == nil {
		return
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		logging.From(ctx).Debug("drain failed", slog.Any("error", err))
	}
	Close(ctx, body)
}
