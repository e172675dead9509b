package vibrio

import (
	"context"
	"net/http"
	"time"
)

// blockUntilReady polls the server's status endpoint on a fixed interval
// until it answers 200. Connection errors mean the process has not bound its
// port yet and are retried; any non-200 status also keeps polling. The loop
// is bounded by timeout when non-zero, and always by ctx.
func blockUntilReady(ctx context.Context, session *Session, interval, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, timeout, ErrStartupTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := session.Get(ctx, StatusPath, nil)
		if err == nil && resp.StatusCode == http.StatusOK {
			return nil
		}
		if ctx.Err() != nil {
			return &OpError{Op: OpStatus, Path: StatusPath, Err: context.Cause(ctx)}
		}

		select {
		case <-ctx.Done():
			return &OpError{Op: OpStatus, Path: StatusPath, Err: context.Cause(ctx)}
		case <-ticker.C:
		}
	}
}
