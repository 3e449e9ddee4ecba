package throttle

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests advance time manually; the injected sleep advances
// the clock instead of blocking.
type fakeClock struct {
	t      time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestThrottle(limit int, window time.Duration, clock *fakeClock) *Throttle {
	th := NewWithWindow(limit, window)
	th.now = clock.now
	th.sleep = clock.sleep
	return th
}

func TestAcquireUnderLimit(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottle(3, time.Minute, clock)

	for i := 0; i < 3; i++ {
		if err := th.Acquire(context.Background(), "zillow"); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps under the limit, got %v", clock.sleeps)
	}
	if got := th.Pending("zillow"); got != 3 {
		t.Fatalf("pending = %d, want 3", got)
	}
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottle(2, time.Minute, clock)

	ctx := context.Background()
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}
	clock.t = clock.t.Add(10 * time.Second)
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}

	// Third request must wait until the first timestamp ages out: the
	// oldest entry is 10s old, so 50s remain.
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected exactly one sleep, got %v", clock.sleeps)
	}
	if clock.sleeps[0] != 50*time.Second {
		t.Fatalf("slept %v, want 50s", clock.sleeps[0])
	}
}

func TestSourcesAreIndependent(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottle(1, time.Minute, clock)

	ctx := context.Background()
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}
	// A full zillow window must not delay realtytrac.
	if err := th.Acquire(ctx, "realtytrac"); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleeps across independent sources, got %v", clock.sleeps)
	}
}

func TestWindowSlides(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottle(2, time.Minute, clock)

	ctx := context.Background()
	th.Acquire(ctx, "zillow")
	th.Acquire(ctx, "zillow")

	clock.t = clock.t.Add(61 * time.Second)
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no sleep after window slid, got %v", clock.sleeps)
	}
	if got := th.Pending("zillow"); got != 1 {
		t.Fatalf("pending = %d, want 1 after pruning", got)
	}
}

func TestSourceLimitOverride(t *testing.T) {
	clock := newFakeClock()
	th := newTestThrottle(1, time.Minute, clock)
	th.SetSourceLimit("zillow", 3)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := th.Acquire(ctx, "zillow"); err != nil {
			t.Fatal(err)
		}
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("override limit not applied, slept %v", clock.sleeps)
	}

	// Other sources keep the default ceiling of 1.
	th.Acquire(ctx, "realtytrac")
	th.Acquire(ctx, "realtytrac")
	if len(clock.sleeps) != 1 {
		t.Fatalf("default limit not enforced, sleeps = %v", clock.sleeps)
	}
}

func TestAcquireCancellation(t *testing.T) {
	th := NewWithWindow(1, time.Hour)

	ctx := context.Background()
	if err := th.Acquire(ctx, "zillow"); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := th.Acquire(cancelled, "zillow"); err != context.Canceled {
		t.Fatalf("expected context.Canceled while blocked, got %v", err)
	}
}
