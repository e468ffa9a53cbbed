// Package resilience guards calls to upstream data providers.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the state of a breaker.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// ErrOpen is returned while a breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold int `mapstructure:"failure_threshold"`
	// SuccessThreshold is the number of half-open successes that closes it again.
	SuccessThreshold int `mapstructure:"success_threshold"`
	// Cooldown is how long an open breaker waits before letting a probe through.
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
	}
}

// Stats is a point-in-time view of a breaker.
type Stats struct {
	Name      string
	State     State
	Failures  int
	Requests  int64
	Rejected  int64
	ChangedAt time.Time
}

// Breaker stops calling a provider after repeated failures. Errors for
// which the counted predicate returns false (a missing symbol, say) pass
// through without moving the breaker.
type Breaker struct {
	name    string
	config  Config
	counted func(error) bool
	now     func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	changedAt time.Time
	requests  int64
	rejected  int64
}

// New creates a closed breaker. A nil counted predicate counts every error.
func New(name string, config Config, counted func(error) bool) *Breaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	if counted == nil {
		counted = func(error) bool { return true }
	}
	b := &Breaker{
		name:    name,
		config:  config,
		counted: counted,
		now:     time.Now,
		state:   StateClosed,
	}
	b.changedAt = b.now()
	return b
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	_, err := Do(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do runs fn through b and returns its result.
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	result, err := fn(ctx)
	switch {
	case err == nil:
		b.recordSuccess()
	case ctx.Err() != nil:
		// the caller gave up; that says nothing about the provider
	case b.counted(err):
		b.recordFailure()
	default:
		b.recordSuccess()
	}
	return result, err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.rejected++
			return ErrOpen
		}
		b.transition(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// transition must be called with mu held.
func (b *Breaker) transition(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.successes = 0
	if s == StateClosed {
		b.failures = 0
	}
	b.changedAt = b.now()
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns counters for diagnostics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:      b.name,
		State:     b.state,
		Failures:  b.failures,
		Requests:  b.requests,
		Rejected:  b.rejected,
		ChangedAt: b.changedAt,
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}
