package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/specialistvlad/labbench/internal/ctxlog"
)

// Pinger reports whether the target answers at all.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady polls the target with exponential backoff until it answers or the
// timeout passes.
func WaitReady(ctx context.Context, p Pinger, timeout time.Duration) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Waiting for target to become reachable.", "timeout", timeout)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.Debug("Target not reachable yet.", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("target not reachable after %s (%d attempts): %w", timeout, attempt, err)
	}

	logger.Debug("Target reachable.", "attempts", attempt)
	return nil
}
