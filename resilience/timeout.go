package resilience

import (
	"context"
	"time"
)

// Timeout bounds a single operation with a deadline.
//
// Unlike a watchdog goroutine, the operation itself observes the deadline
// through its context, so whatever error it returns (for an HTTP call, the
// transport's own deadline error) reaches the caller unchanged.
type Timeout struct {
	timeout time.Duration
}

// NewTimeout creates a timeout wrapper. A zero or negative duration leaves
// operations unbounded.
func NewTimeout(timeout time.Duration) *Timeout {
	if timeout < 0 {
		timeout = 0
	}
	return &Timeout{timeout: timeout}
}

// Execute runs op with the configured deadline applied to ctx.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if t == nil || t.timeout == 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := op(ctx); err != nil {
		return err
	}
	return nil
}

// Duration returns the configured deadline, zero when unbounded.
func (t *Timeout) Duration() time.Duration {
	if t == nil {
		return 0
	}
	return t.timeout
}
