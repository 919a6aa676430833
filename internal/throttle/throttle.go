// Package throttle spaces outbound calls to the remote service so that a
// batch never sends two mutating requests closer together than an interval.
package throttle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the spacing the service tolerates without banning.
const DefaultInterval = time.Second

// Limiter is a single-token bucket refilled once per interval. A nil
// *Limiter never waits, so callers can pass it around unconditionally.
type Limiter struct {
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

// New returns a Limiter for interval. Returns nil if interval <= 0 (throttling disabled).
func New(interval time.Duration, logger *slog.Logger) *Limiter {
	if interval <= 0 {
		return nil
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("throttle: limiter created", slog.Duration("interval", interval))

	return &Limiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		logger:   logger,
	}
}

// Wait blocks until the next call is allowed. The first call returns
// immediately. A canceled context aborts the wait and returns its error.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}

	r := l.limiter.Reserve()
	delay := r.Delay()

	if delay == 0 {
		return nil
	}

	l.logger.Debug("throttle: waiting", slog.Duration("delay", delay))

	t := time.NewTimer(delay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("throttle: wait aborted: %w", ctx.Err())
	}
}

// Interval returns the configured spacing, or zero for a nil Limiter.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}

	return l.interval
}
