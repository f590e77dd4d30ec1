// Package mock provides a scripted in-memory food provider for tests.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
)

// Client is a scripted food provider. Zero value is usable; populate
// Candidates and Foods, or set SearchErr/FetchErr to force failures.
// Safe for concurrent use.
type Client struct {
	// SourceTag reported by Source. Defaults to "mock".
	SourceTag nutrition.Source

	// Candidates maps a lowercased query to its scripted search results.
	// Queries with no entry return the Fallback list.
	Candidates map[string][]food.Candidate

	// Fallback is returned for queries absent from Candidates.
	Fallback []food.Candidate

	// Foods maps food IDs to their scripted detail.
	Foods map[string]*nutrition.ResolvedFood

	// SearchErr and FetchErr, when set, fail the corresponding call.
	SearchErr error
	FetchErr  error

	mu          sync.Mutex
	searchCalls []string
	fetchCalls  []string
}

var _ food.Client = (*Client)(nil)

// Source reports the scripted source tag.
func (c *Client) Source() nutrition.Source {
	if c.SourceTag == "" {
		return "mock"
	}
	return c.SourceTag
}

// Search returns the scripted candidates for query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]food.Candidate, error) {
	c.mu.Lock()
	c.searchCalls = append(c.searchCalls, query)
	c.mu.Unlock()

	if c.SearchErr != nil {
		return nil, c.SearchErr
	}
	candidates, ok := c.Candidates[strings.ToLower(query)]
	if !ok {
		candidates = c.Fallback
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// FetchDetail returns the scripted detail for foodID, or [food.ErrNoMatch]
// when none is scripted.
func (c *Client) FetchDetail(ctx context.Context, foodID string) (*nutrition.ResolvedFood, error) {
	c.mu.Lock()
	c.fetchCalls = append(c.fetchCalls, foodID)
	c.mu.Unlock()

	if c.FetchErr != nil {
		return nil, c.FetchErr
	}
	f, ok := c.Foods[foodID]
	if !ok {
		return nil, food.ErrNoMatch
	}
	return f, nil
}

// SearchCalls returns the queries passed to Search, in call order.
func (c *Client) SearchCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.searchCalls...)
}

// FetchCalls returns the food IDs passed to FetchDetail, in call order.
func (c *Client) FetchCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.fetchCalls...)
}
