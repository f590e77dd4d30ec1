package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ChainEntry is one member of a fallback [Chain]: a named value guarded by
// its own circuit breaker.
type ChainEntry[T any] struct {
	Name    string
	Value   T
	breaker *CircuitBreaker
}

// Chain tries a fixed, ordered list of alternatives until one succeeds.
// Each entry has an independent circuit breaker, so a persistently failing
// entry is skipped cheaply while the rest stay live. Chain is safe for
// concurrent use.
type Chain[T any] struct {
	entries []ChainEntry[T]
	log     *slog.Logger
}

// ChainOption is a functional option for configuring a [Chain].
type ChainOption[T any] func(*Chain[T])

// WithChainLogger sets the logger used for per-entry failure notes.
func WithChainLogger[T any](log *slog.Logger) ChainOption[T] {
	return func(c *Chain[T]) {
		c.log = log
	}
}

// NewChain builds a chain over the named values in priority order, creating
// a breaker per entry from cfg (the entry name overrides cfg.Name).
func NewChain[T any](cfg BreakerConfig, entries []ChainEntry[T], opts ...ChainOption[T]) *Chain[T] {
	c := &Chain[T]{
		entries: make([]ChainEntry[T], len(entries)),
		log:     slog.Default(),
	}
	for i, e := range entries {
		entryCfg := cfg
		entryCfg.Name = e.Name
		e.breaker = NewCircuitBreaker(entryCfg)
		c.entries[i] = e
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Len returns the number of entries in the chain.
func (c *Chain[T]) Len() int {
	return len(c.entries)
}

// Names returns the entry names in priority order.
func (c *Chain[T]) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Do runs fn against each entry in order until one call succeeds or the
// context is cancelled. Entries whose breakers are open are skipped. When
// every entry fails, the joined per-entry errors are returned.
func (c *Chain[T]) Do(ctx context.Context, fn func(ctx context.Context, name string, v T) error) error {
	var errs []error
	for _, e := range c.entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := e.breaker.Do(func() error {
			return fn(ctx, e.Name, e.Value)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrCircuitOpen) {
			c.log.Debug("chain entry failed", "entry", e.Name, "error", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
	}
	if len(errs) == 0 {
		return errors.New("chain has no entries")
	}
	return errors.Join(errs...)
}

// DoWithResult is [Chain.Do] for functions that produce a value. The first
// successful entry's result and name are returned.
func DoWithResult[T, R any](ctx context.Context, c *Chain[T], fn func(ctx context.Context, name string, v T) (R, error)) (R, string, error) {
	var (
		result R
		winner string
	)
	err := c.Do(ctx, func(ctx context.Context, name string, v T) error {
		r, err := fn(ctx, name, v)
		if err != nil {
			return err
		}
		result = r
		winner = name
		return nil
	})
	if err != nil {
		var zero R
		return zero, "", err
	}
	return result, winner, nil
}
