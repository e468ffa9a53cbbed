package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errUpstream = errors.New("upstream down")
	errNotFound = errors.New("not found")
)

func newTestBreaker(clock *time.Time) *Breaker {
	b := New("test", Config{FailureThreshold: 2, SuccessThreshold: 1, Cooldown: time.Minute},
		func(err error) bool { return !errors.Is(err, errNotFound) })
	b.now = func() time.Time { return *clock }
	return b
}

func fail(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	ctx := context.Background()

	_ = b.Execute(ctx, fail(errUpstream))
	if b.State() != StateClosed {
		t.Fatalf("state after one failure = %s, want CLOSED", b.State())
	}
	_ = b.Execute(ctx, fail(errUpstream))
	if b.State() != StateOpen {
		t.Fatalf("state after two failures = %s, want OPEN", b.State())
	}

	called := false
	err := b.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) || called {
		t.Fatalf("open breaker should reject without calling, got err=%v called=%v", err, called)
	}
	if got := b.Stats().Rejected; got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	ctx := context.Background()

	_ = b.Execute(ctx, fail(errUpstream))
	_ = b.Execute(ctx, fail(errUpstream))

	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(ctx, fail(errUpstream)); !errors.Is(err, errUpstream) {
		t.Fatalf("probe should reach the provider, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("failed probe should reopen, got %s", b.State())
	}

	clock = clock.Add(2 * time.Minute)
	v, err := Do(ctx, b, func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("Do = %d, %v", v, err)
	}
	if b.State() != StateClosed {
		t.Errorf("successful probe should close, got %s", b.State())
	}
}

func TestBreakerIgnoresUncountedErrors(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTestBreaker(&clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = b.Execute(ctx, fail(errNotFound))
	}
	if b.State() != StateClosed {
		t.Errorf("missing symbols should not open the breaker, got %s", b.State())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	for i := 0; i < 5; i++ {
		_ = b.Execute(cancelled, fail(context.Canceled))
	}
	if b.State() != StateClosed {
		t.Errorf("cancelled calls should not open the breaker, got %s", b.State())
	}
}
