// Package resilience wraps calls to external nutrition providers with a
// three-state circuit breaker and an ordered fallback chain, so one slow or
// failing provider cannot stall meal analysis.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Do] while the breaker is
// open and the reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's current mode.
type State int

const (
	// StateClosed passes calls through normally.
	StateClosed State = iota
	// StateOpen rejects calls immediately.
	StateOpen
	// StateHalfOpen admits a limited number of probe calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// BreakerConfig configures a [CircuitBreaker]. Zero values select the
// defaults noted per field.
type BreakerConfig struct {
	// Name identifies the protected dependency in errors and logs.
	Name string

	// MaxFailures is the consecutive-failure count that opens the breaker.
	// Default 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before admitting
	// half-open probes. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of consecutive probe successes required to
	// close the breaker again. Default 2.
	HalfOpenMax int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MaxFailures <= 0 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.HalfOpenMax <= 0 {
		c.HalfOpenMax = 2
	}
	return c
}

// CircuitBreaker is a standard three-state breaker. It is safe for
// concurrent use.
type CircuitBreaker struct {
	cfg BreakerConfig

	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	lastFailedAt time.Time
}

// NewCircuitBreaker returns a closed breaker with cfg's defaults applied.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults()}
}

// Do runs fn under the breaker. While open it returns [ErrCircuitOpen]
// wrapped with the breaker name without invoking fn.
func (b *CircuitBreaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *CircuitBreaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if time.Since(b.lastFailedAt) < b.cfg.ResetTimeout {
			return fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
		}
		b.state = StateHalfOpen
		b.successes = 0
	}
	return nil
}

func (b *CircuitBreaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailedAt = time.Now()
	if b.state == StateHalfOpen || b.failures >= b.cfg.MaxFailures {
		b.state = StateOpen
	}
}

func (b *CircuitBreaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.HalfOpenMax {
			b.state = StateClosed
			b.failures = 0
		}
	default:
		b.failures = 0
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the breaker closed and clears its counters.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
