// Package food defines the capability interface every nutrition provider
// client implements: a free-text search returning candidate summaries and a
// detail fetch by provider food ID returning a fully adapted
// [nutrition.ResolvedFood].
//
// Raw provider payloads never leak past a client: each implementation owns
// an adapter that maps its provider's response shape into the fixed
// ResolvedFood/ServingOption types. Clients must be safe for concurrent use.
package food

import (
	"context"
	"errors"

	"github.com/platewise/platewise/pkg/nutrition"
)

// ErrNoMatch is returned by [Client.Search] when the provider produced zero
// candidates for a query. Callers treat it as "try the next provider", not
// as a hard failure.
var ErrNoMatch = errors.New("no candidates found")

// ErrNotConfigured is returned by client constructors when required
// credentials are missing. The resolution engine's fallback chain absorbs
// it; only direct callers see it as an error.
var ErrNotConfigured = errors.New("provider credentials not configured")

// Candidate is a lightweight search-result summary, scored and ranked
// before a single detail fetch is made for the winner.
type Candidate struct {
	// ID is the provider's food identifier, used for [Client.FetchDetail].
	ID string

	// Name is the food's display name.
	Name string

	// Brand is the brand or restaurant name. Empty for generic foods.
	Brand string

	// FoodType is the provider's food classification when available
	// (e.g. "Brand", "Restaurant", "Generic").
	FoodType string

	// Calories is the calories parsed from the summary, 0 when unknown.
	// Used only to deprioritise placeholder entries during ranking.
	Calories float64

	// Source is the provider this candidate came from.
	Source nutrition.Source
}

// Client is the uniform capability interface over nutrition providers.
// The engine tries clients in configured order (primary first) and falls
// back on error or empty results.
type Client interface {
	// Source returns the provider tag stamped on items resolved through
	// this client.
	Source() nutrition.Source

	// Search queries the provider's search endpoint and returns up to limit
	// candidate summaries in provider ranking order. Returns [ErrNoMatch]
	// when the provider has no results for the query.
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)

	// FetchDetail retrieves the full food record, including all serving
	// options, for a food previously returned by Search. The returned food
	// always has at least one serving option.
	FetchDetail(ctx context.Context, foodID string) (*nutrition.ResolvedFood, error)
}
