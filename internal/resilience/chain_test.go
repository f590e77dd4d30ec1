package resilience_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/platewise/platewise/internal/resilience"
)

func TestChain_FirstSuccessWins(t *testing.T) {
	t.Parallel()

	chain := resilience.NewChain(resilience.BreakerConfig{}, []resilience.ChainEntry[string]{
		{Name: "primary", Value: "a"},
		{Name: "fallback", Value: "b"},
	})

	var called []string
	err := chain.Do(context.Background(), func(_ context.Context, name, _ string) error {
		called = append(called, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Do: got %v, want nil", err)
	}
	if len(called) != 1 || called[0] != "primary" {
		t.Fatalf("Do: called %v, want only the primary", called)
	}
}

func TestChain_FallsThroughOnFailure(t *testing.T) {
	t.Parallel()

	chain := resilience.NewChain(resilience.BreakerConfig{}, []resilience.ChainEntry[string]{
		{Name: "primary", Value: "a"},
		{Name: "fallback", Value: "b"},
	})

	result, winner, err := resilience.DoWithResult(context.Background(), chain,
		func(_ context.Context, name, v string) (string, error) {
			if name == "primary" {
				return "", errBoom
			}
			return strings.ToUpper(v), nil
		})
	if err != nil {
		t.Fatalf("DoWithResult: got %v, want nil", err)
	}
	if winner != "fallback" || result != "B" {
		t.Fatalf("DoWithResult: winner=%q result=%q, want fallback/B", winner, result)
	}
}

func TestChain_AllFailuresJoined(t *testing.T) {
	t.Parallel()

	chain := resilience.NewChain(resilience.BreakerConfig{}, []resilience.ChainEntry[string]{
		{Name: "primary", Value: "a"},
		{Name: "fallback", Value: "b"},
	})

	err := chain.Do(context.Background(), func(_ context.Context, _, _ string) error {
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Do: got %v, want joined errBoom", err)
	}
	if !strings.Contains(err.Error(), "primary") || !strings.Contains(err.Error(), "fallback") {
		t.Errorf("Do: error %q should name both entries", err)
	}
}

func TestChain_OpenBreakerSkipsEntry(t *testing.T) {
	t.Parallel()

	chain := resilience.NewChain(resilience.BreakerConfig{MaxFailures: 1}, []resilience.ChainEntry[string]{
		{Name: "primary", Value: "a"},
		{Name: "fallback", Value: "b"},
	})

	// Trip the primary's breaker.
	_ = chain.Do(context.Background(), func(_ context.Context, name, _ string) error {
		if name == "primary" {
			return errBoom
		}
		return nil
	})

	var called []string
	err := chain.Do(context.Background(), func(_ context.Context, name, _ string) error {
		called = append(called, name)
		return nil
	})
	if err != nil {
		t.Fatalf("Do: got %v, want nil", err)
	}
	if len(called) != 1 || called[0] != "fallback" {
		t.Fatalf("Do: called %v, want only the fallback while primary is open", called)
	}
}

func TestChain_CancelledContext(t *testing.T) {
	t.Parallel()

	chain := resilience.NewChain(resilience.BreakerConfig{}, []resilience.ChainEntry[string]{
		{Name: "primary", Value: "a"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := chain.Do(ctx, func(_ context.Context, _, _ string) error {
		t.Fatal("fn invoked with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do: got %v, want context.Canceled", err)
	}
}
