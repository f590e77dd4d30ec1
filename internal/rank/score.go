// Package rank orders provider search candidates and serving options using
// additive keyword heuristics. All scoring is deterministic: ties are broken
// by provider result order, never by map iteration or randomness.
package rank

import (
	"sort"
	"strings"

	"github.com/platewise/platewise/internal/brand"
	"github.com/platewise/platewise/pkg/provider/food"
)

// Candidate scoring weights. Token overlap dominates among unbranded
// candidates; the brand bonus and penalty are sized so that a detected brand
// outranks any achievable token-overlap score.
const (
	tokenOverlapWeight   = 40
	brandMatchBonus      = 1000
	brandMismatchPenalty = -200
	hasBrandBonus        = 15
	restaurantTypeBonus  = 8
	brandTypeBonus       = 6
	nonzeroCaloriesBonus = 2
)

// queryStopwords are tokens ignored when computing token overlap between the
// query and a candidate name.
var queryStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "with": {}, "and": {},
	"from": {}, "my": {}, "some": {},
}

// scoreRule is one named additive contribution to a candidate's score.
// Rules are applied in declaration order; order does not affect the sum but
// keeps trace logging stable.
type scoreRule struct {
	name  string
	apply func(c food.Candidate, queryTokens map[string]struct{}, wantBrand string) float64
}

var scoreRules = []scoreRule{
	{
		name: "token-overlap",
		apply: func(c food.Candidate, qt map[string]struct{}, _ string) float64 {
			name := brand.Normalize(c.Name + " " + c.Brand)
			overlap := 0
			seen := make(map[string]struct{}, len(qt))
			for _, tok := range strings.Fields(name) {
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				if _, ok := qt[tok]; ok {
					overlap++
				}
			}
			return float64(overlap) * tokenOverlapWeight
		},
	},
	{
		name: "brand-bias",
		apply: func(c food.Candidate, _ map[string]struct{}, wantBrand string) float64 {
			if wantBrand == "" {
				return 0
			}
			candBrand := brand.Normalize(c.Brand)
			if candBrand == "" {
				candBrand = brand.Normalize(c.Name)
			}
			if strings.Contains(candBrand, wantBrand) {
				return brandMatchBonus
			}
			return brandMismatchPenalty
		},
	},
	{
		name: "has-brand-field",
		apply: func(c food.Candidate, _ map[string]struct{}, _ string) float64 {
			if c.Brand != "" {
				return hasBrandBonus
			}
			return 0
		},
	},
	{
		name: "food-type",
		apply: func(c food.Candidate, _ map[string]struct{}, _ string) float64 {
			switch strings.ToLower(c.FoodType) {
			case "restaurant":
				return restaurantTypeBonus
			case "brand", "branded":
				return brandTypeBonus
			}
			return 0
		},
	},
	{
		name: "nonzero-calories",
		apply: func(c food.Candidate, _ map[string]struct{}, _ string) float64 {
			if c.Calories > 0 {
				return nonzeroCaloriesBonus
			}
			return 0
		},
	},
}

// Scored pairs a candidate with its score and original provider position.
type Scored struct {
	food.Candidate

	// Score is the summed rule contributions.
	Score float64

	// Index is the candidate's position in the provider response, used as
	// the deterministic tie-break.
	Index int
}

// Score computes the additive rule score of one candidate against the query
// and the optional detected canonical brand (empty string means no brand).
func Score(c food.Candidate, query, wantBrand string) float64 {
	qt := queryTokens(query)
	var total float64
	for _, rule := range scoreRules {
		total += rule.apply(c, qt, wantBrand)
	}
	return total
}

// Rank scores all candidates and returns them ordered by descending score,
// ties broken by ascending provider position. The input slice is not
// modified.
func Rank(candidates []food.Candidate, query, wantBrand string) []Scored {
	qt := queryTokens(query)
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		var total float64
		for _, rule := range scoreRules {
			total += rule.apply(c, qt, wantBrand)
		}
		scored[i] = Scored{Candidate: c, Score: total, Index: i}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})
	return scored
}

// queryTokens normalises the query and drops stopwords, returning the token
// set used for overlap scoring.
func queryTokens(query string) map[string]struct{} {
	tokens := strings.Fields(brand.Normalize(query))
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := queryStopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}
