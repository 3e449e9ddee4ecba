package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"
)

// Policy controls the backoff envelope. The zero value is not usable;
// start from DefaultPolicy.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Factor     float64
}

// DefaultPolicy waits 1s, 2s, 4s between attempts before giving up.
var DefaultPolicy = Policy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	Factor:     2,
}

// TerminalError wraps the last cause after the retry budget is exhausted.
type TerminalError struct {
	Attempts int
	Err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// transienter is implemented by errors that are safe to retry: network
// timeouts, transient HTTP statuses, rate-limit signals.
type transienter interface {
	Transient() bool
}

// Transient reports whether err is worth retrying. Structural failures
// (malformed input, auth) must not implement the marker and therefore
// propagate immediately without consuming the budget.
func Transient(err error) bool {
	var t transienter
	if errors.As(err, &t) {
		return t.Transient()
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// transientErr marks an arbitrary error as retryable.
type transientErr struct{ err error }

func (e *transientErr) Error() string   { return e.err.Error() }
func (e *transientErr) Unwrap() error   { return e.err }
func (e *transientErr) Transient() bool { return true }

// MarkTransient wraps err so Do will retry it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientErr{err: err}
}

// Do runs op under the policy. On a transient failure it waits
// BaseDelay * Factor^(attempt-1) and tries again; after MaxRetries
// consecutive failures it returns a *TerminalError wrapping the last
// cause. Non-transient errors and context cancellation return
// immediately.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	var lastErr error
	delay := p.BaseDelay

	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Transient(lastErr) {
			return lastErr
		}

		log.Printf("retry: attempt %d/%d failed: %v (next in %s)", attempt, p.MaxRetries, lastErr, delay)
		if err := wait(ctx, delay); err != nil {
			return err
		}
		delay = time.Duration(float64(delay) * p.Factor)
	}

	return &TerminalError{Attempts: p.MaxRetries, Err: lastErr}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
