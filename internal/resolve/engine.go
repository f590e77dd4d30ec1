// Package resolve composes the parsing, ranking, and scaling stages into
// the three request-level operations: Analyze (transcript to items),
// Reprice (edited items to re-resolved items), and Log (items to a
// persisted entry). Every operation is a single-shot stateless
// transformation; all request state is local to the call.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platewise/platewise/internal/brand"
	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/internal/macro"
	"github.com/platewise/platewise/internal/observe"
	"github.com/platewise/platewise/internal/parse"
	"github.com/platewise/platewise/internal/rank"
	"github.com/platewise/platewise/internal/resilience"
	"github.com/platewise/platewise/pkg/nutrition"
	"github.com/platewise/platewise/pkg/provider/food"
)

const (
	// maxChunks bounds the provider round-trips of one analyze call; excess
	// chunks are ignored.
	maxChunks = 8

	// searchLimit is the maximum candidate summaries requested per provider
	// search.
	searchLimit = 10

	// defaultParallelism bounds concurrent provider round-trips per request.
	defaultParallelism = 4

	// Match confidence levels. A brand-confirmed match is near certain, a
	// plain ranked match is good, an unmatched item is a placeholder.
	confidenceBranded   = 0.9
	confidenceMatched   = 0.75
	confidenceUnmatched = 0.25
)

// ErrNoStore is returned by Log when the engine was built without a
// persistence store.
var ErrNoStore = errors.New("resolve: no log store configured")

// resolved carries one provider resolution through the fallback chain.
type resolved struct {
	food *nutrition.ResolvedFood
}

// Engine is the resolution orchestrator. It is safe for concurrent use;
// all its tables are immutable after construction.
type Engine struct {
	segmenter *parse.Segmenter
	brands    *brand.Resolver
	chain     *resilience.Chain[food.Client]
	clients   map[nutrition.Source]food.Client

	store       logstore.Store
	metrics     *observe.Metrics
	log         *slog.Logger
	parallelism int
}

// Option is a functional option for configuring an [Engine].
type Option func(*Engine)

// WithStore sets the persistence store used by Log.
func WithStore(store logstore.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithMetrics sets the metrics sink. A nil sink records nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithParallelism bounds concurrent provider round-trips per request.
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithSegmenter replaces the default transcript segmenter.
func WithSegmenter(s *parse.Segmenter) Option {
	return func(e *Engine) {
		e.segmenter = s
	}
}

// WithBrandResolver replaces the default brand alias resolver.
func WithBrandResolver(r *brand.Resolver) Option {
	return func(e *Engine) {
		e.brands = r
	}
}

// NewEngine builds an engine over the provider clients in priority order:
// the first client is the primary, the rest are fallbacks tried in
// sequence when a preceding provider errors or has no match.
func NewEngine(clients []food.Client, opts ...Option) *Engine {
	e := &Engine{
		segmenter:   parse.NewSegmenter(),
		brands:      brand.NewResolver(),
		clients:     make(map[nutrition.Source]food.Client, len(clients)),
		log:         slog.Default(),
		parallelism: defaultParallelism,
	}
	for _, o := range opts {
		o(e)
	}

	entries := make([]resilience.ChainEntry[food.Client], len(clients))
	for i, c := range clients {
		entries[i] = resilience.ChainEntry[food.Client]{
			Name:  string(c.Source()),
			Value: c,
		}
		e.clients[c.Source()] = c
	}
	e.chain = resilience.NewChain(resilience.BreakerConfig{}, entries,
		resilience.WithChainLogger[food.Client](e.log))
	return e
}

// Analyze resolves a meal transcript into quantified, macro-priced items.
// Chunks beyond the per-call cap are ignored; a chunk with no provider
// match degrades to a zero-macro unmatched item rather than failing the
// call. Items preserve transcript order regardless of provider completion
// order.
func (e *Engine) Analyze(ctx context.Context, transcript string) (*nutrition.MealAnalysis, error) {
	start := time.Now()

	segments := e.segmenter.Segment(transcript)
	chunks := parse.ParseAll(segments)
	if len(chunks) > maxChunks {
		e.log.Warn("transcript chunk cap applied", "chunks", len(chunks), "cap", maxChunks)
		chunks = chunks[:maxChunks]
	}

	items := make([]nutrition.MealItem, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, chunk := range chunks {
		g.Go(func() error {
			items[i] = e.resolveChunk(gctx, chunk)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve: analyze: %w", err)
	}

	analysis := &nutrition.MealAnalysis{
		TranscriptOriginal: transcript,
		Assumptions:        collectAssumptions(items),
		Totals:             macro.Sum(items),
		Items:              items,
		QuestionsNeeded:    []string{},
	}
	e.metrics.RecordAnalyze(ctx, time.Since(start), len(items))
	return analysis, nil
}

// resolveChunk resolves one parsed chunk into a meal item, degrading to an
// unmatched item when no provider yields a confident match.
func (e *Engine) resolveChunk(ctx context.Context, chunk parse.Chunk) nutrition.MealItem {
	query := parse.NormalizeQuery(chunk.Query)
	if query == "" {
		return e.unmatchedItem(chunk, chunk.Query)
	}

	brandMatch := e.brands.Resolve(chunk.Query)
	wantBrand := ""
	if brandMatch != nil {
		wantBrand = brandMatch.Canonical
	}
	expr := e.brands.SearchExpression(query, brandMatch)

	res, provider, err := resilience.DoWithResult(ctx, e.chain,
		func(ctx context.Context, name string, client food.Client) (resolved, error) {
			candidates, err := client.Search(ctx, expr, searchLimit)
			e.metrics.ProviderRequest(ctx, name, err)
			if err != nil {
				return resolved{}, err
			}
			if len(candidates) == 0 {
				return resolved{}, food.ErrNoMatch
			}
			top := rank.Rank(candidates, query, wantBrand)[0]
			detail, err := client.FetchDetail(ctx, top.ID)
			e.metrics.ProviderRequest(ctx, name, err)
			if err != nil {
				return resolved{}, err
			}
			return resolved{food: detail}, nil
		})
	if err != nil {
		e.log.Debug("no provider match", "query", query, "error", err)
		e.metrics.ItemResolved(ctx, false)
		return e.unmatchedItem(chunk, query)
	}
	e.metrics.ItemResolved(ctx, true)

	detail := res.food
	branded := detail.IsBranded || wantBrand != ""
	base := rank.SelectServing(detail.ServingOptions, branded)
	baseGrams := macro.BaseGrams(base, detail.ServingOptions, chunk.Unit)
	scaled := macro.Scale(base, baseGrams, chunk.Qty, chunk.Unit)

	confidence := confidenceMatched
	if wantBrand != "" {
		confidence = confidenceBranded
	}

	return nutrition.MealItem{
		ID:            nutrition.NewItemID(),
		DisplayName:   detail.Name,
		Qty:           chunk.Qty,
		Unit:          chunk.Unit,
		GramsResolved: scaled.GramsResolved,
		Source: nutrition.ItemSource{
			Provider: nutrition.Source(provider),
			FoodID:   detail.ID,
			Label:    base.Description,
		},
		Macros:          scaled.Macros,
		Confidence:      confidence,
		AssumptionsUsed: chunk.Assumptions,
	}
}

// unmatchedItem builds the zero-macro placeholder for a chunk no provider
// could match.
func (e *Engine) unmatchedItem(chunk parse.Chunk, query string) nutrition.MealItem {
	display := strings.TrimSpace(query)
	if display == "" {
		display = "unknown item"
	}
	assumptions := append(append([]string(nil), chunk.Assumptions...),
		fmt.Sprintf("Couldn't confidently match %q", display))
	return nutrition.MealItem{
		ID:              nutrition.NewItemID(),
		DisplayName:     display,
		Qty:             chunk.Qty,
		Unit:            chunk.Unit,
		Confidence:      confidenceUnmatched,
		AssumptionsUsed: assumptions,
	}
}

// Reprice re-resolves previously parsed items against fresh provider data
// without re-parsing any text. Each item's provider detail is re-fetched
// and its macros re-scaled with the item's current quantity and unit; on
// fetch failure the item keeps its previously held macros unchanged.
// Calling Reprice twice with no edits in between yields identical output.
func (e *Engine) Reprice(ctx context.Context, items []nutrition.MealItem) (*nutrition.MealAnalysis, error) {
	start := time.Now()

	repriced := make([]nutrition.MealItem, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, item := range items {
		g.Go(func() error {
			repriced[i] = e.repriceItem(gctx, item)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve: reprice: %w", err)
	}

	analysis := &nutrition.MealAnalysis{
		Assumptions:     collectAssumptions(repriced),
		Totals:          macro.Sum(repriced),
		Items:           repriced,
		QuestionsNeeded: []string{},
	}
	e.metrics.RecordReprice(ctx, time.Since(start))
	return analysis, nil
}

// repriceItem re-fetches one item's provider detail and re-scales its
// macros. Unknown providers and fetch failures both take the keep-stale
// path: the item is returned unchanged apart from a stale-reprice note.
func (e *Engine) repriceItem(ctx context.Context, item nutrition.MealItem) nutrition.MealItem {
	if item.Source.FoodID == "" {
		// Unmatched items have nothing to re-fetch.
		return item
	}
	client, ok := e.clients[item.Source.Provider]
	if !ok {
		return e.staleItem(item)
	}

	detail, err := client.FetchDetail(ctx, item.Source.FoodID)
	e.metrics.ProviderRequest(ctx, string(item.Source.Provider), err)
	if err != nil {
		e.log.Debug("reprice fetch failed, keeping macros",
			"item", item.DisplayName, "provider", item.Source.Provider, "error", err)
		return e.staleItem(item)
	}

	base := servingByLabel(detail, item.Source.Label)
	baseGrams := macro.BaseGrams(base, detail.ServingOptions, item.Unit)
	scaled := macro.Scale(base, baseGrams, item.Qty, item.Unit)

	out := item
	out.DisplayName = detail.Name
	out.GramsResolved = scaled.GramsResolved
	out.Macros = scaled.Macros
	out.Source.Label = base.Description
	out.AssumptionsUsed = withoutStaleNote(item.AssumptionsUsed)
	return out
}

// staleItem returns item unchanged apart from a single stale-reprice note.
// The note is added at most once so repeated reprice calls stay identical.
func (e *Engine) staleItem(item nutrition.MealItem) nutrition.MealItem {
	note := staleNote(item.DisplayName)
	for _, a := range item.AssumptionsUsed {
		if a == note {
			return item
		}
	}
	out := item
	out.AssumptionsUsed = append(append([]string(nil), item.AssumptionsUsed...), note)
	return out
}

// servingByLabel finds the serving option matching the item's recorded
// serving label, falling back to the default selection when the label no
// longer exists in the provider's option list.
func servingByLabel(detail *nutrition.ResolvedFood, label string) nutrition.ServingOption {
	if label != "" {
		for _, opt := range detail.ServingOptions {
			if strings.EqualFold(opt.Description, label) {
				return opt
			}
		}
	}
	return rank.SelectServing(detail.ServingOptions, detail.IsBranded)
}

// Log persists a finalized item list. Caller-supplied totals are trusted
// when nonzero, otherwise recomputed from the items. Persistence failure
// is returned to the caller; no retries happen here.
func (e *Engine) Log(ctx context.Context, entry logstore.Entry) error {
	if e.store == nil {
		return ErrNoStore
	}
	if entry.Totals.IsZero() {
		entry.Totals = macro.Sum(entry.Items)
	}
	if err := e.store.Insert(ctx, entry); err != nil {
		return fmt.Errorf("resolve: log meal: %w", err)
	}
	e.log.Info("meal logged", "user", entry.UserID, "meal_type", entry.MealType,
		"items", len(entry.Items), "calories", entry.Totals.Calories)
	return nil
}

// collectAssumptions flattens per-item assumption notes into typed,
// deduplicated assumptions, preserving first-occurrence order.
func collectAssumptions(items []nutrition.MealItem) []nutrition.Assumption {
	seen := make(map[string]struct{})
	out := []nutrition.Assumption{}
	for _, item := range items {
		for _, note := range item.AssumptionsUsed {
			if _, dup := seen[note]; dup {
				continue
			}
			seen[note] = struct{}{}
			out = append(out, nutrition.Assumption{
				Type:   assumptionType(note),
				Detail: note,
			})
		}
	}
	return out
}

// assumptionType classifies a free-text assumption note into the
// well-known assumption types.
func assumptionType(note string) string {
	switch {
	case strings.HasPrefix(note, "Couldn't confidently match"):
		return nutrition.AssumptionUnmatchedItem
	case strings.HasPrefix(note, "Kept previous macros"):
		return nutrition.AssumptionStaleReprice
	default:
		return nutrition.AssumptionAssumedServing
	}
}

func staleNote(displayName string) string {
	return fmt.Sprintf("Kept previous macros for %q", displayName)
}

// withoutStaleNote drops a previously added stale-reprice note once a
// fresh provider fetch succeeds.
func withoutStaleNote(notes []string) []string {
	var out []string
	for _, n := range notes {
		if strings.HasPrefix(n, "Kept previous macros") {
			continue
		}
		out = append(out, n)
	}
	return out
}
