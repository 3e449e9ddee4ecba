package throttle

import (
	"context"
	"log"
	"sync"
	"time"
)

// Throttle enforces a requests-per-minute ceiling per source key using a
// sliding window of request timestamps. Each source has an independent
// window; callers blocked on one source never affect another.
type Throttle struct {
	mu      sync.Mutex
	limit   int
	limits  map[string]int
	window  time.Duration
	sources map[string][]time.Time
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// New creates a throttle allowing limit requests per source per minute.
func New(limit int) *Throttle {
	return NewWithWindow(limit, time.Minute)
}

// NewWithWindow is New with an explicit window size.
func NewWithWindow(limit int, window time.Duration) *Throttle {
	return &Throttle{
		limit:   limit,
		limits:  make(map[string]int),
		window:  window,
		sources: make(map[string][]time.Time),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// SetSourceLimit overrides the default ceiling for one source key.
func (t *Throttle) SetSourceLimit(sourceKey string, limit int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit > 0 {
		t.limits[sourceKey] = limit
	}
}

// limitFor returns the effective ceiling for a key. Caller holds the lock.
func (t *Throttle) limitFor(sourceKey string) int {
	if limit, ok := t.limits[sourceKey]; ok {
		return limit
	}
	return t.limit
}

// Acquire blocks until issuing one more request for sourceKey stays within
// the ceiling, then records the request. The lock is never held while
// sleeping; concurrent callers on the same key re-check after waking.
func (t *Throttle) Acquire(ctx context.Context, sourceKey string) error {
	for {
		t.mu.Lock()
		now := t.now()
		window := t.prune(sourceKey, now)

		if len(window) < t.limitFor(sourceKey) {
			t.sources[sourceKey] = append(window, now)
			t.mu.Unlock()
			return nil
		}

		// Window is full: wait until the oldest entry ages out.
		wait := window[0].Add(t.window).Sub(now)
		t.mu.Unlock()

		if wait <= 0 {
			continue
		}
		log.Printf("throttle: %s at capacity, waiting %s", sourceKey, wait.Round(time.Millisecond))
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops timestamps older than the window. Caller holds the lock.
func (t *Throttle) prune(sourceKey string, now time.Time) []time.Time {
	window := t.sources[sourceKey]
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	window = window[i:]
	t.sources[sourceKey] = window
	return window
}

// Pending reports how many requests are currently inside the window for a
// source key.
func (t *Throttle) Pending(sourceKey string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.prune(sourceKey, t.now()))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
