package rank

import (
	"regexp"
	"strings"

	"github.com/platewise/platewise/pkg/nutrition"
)

// Serving-option scoring weights. Branded foods get stronger item-keyword
// pull because a restaurant item's natural portion is "1 sandwich", while a
// generic food's portion is more often a measured ingredient amount.
const (
	weightDescPenalty               = -120
	startsWithOneBonus              = 14
	servingWordBrandedBonus         = 24
	servingWordGenericBonus         = 8
	itemKeywordBrandedBonus         = 70
	itemKeywordGenericBonus         = 25
	ingredientKeywordBrandedPenalty = -90
	ingredientKeywordGenericPenalty = -12
)

// weightDescRe detects pure weight/volume serving descriptions ("100 g",
// "1 oz"), which are the least natural portion for a spoken food mention.
var weightDescRe = regexp.MustCompile(`\b(g|gram|grams|oz|ounce|ounces|ml|lb|lbs|kg)\b`)

// itemKeywords mark a serving description as one discrete consumable item.
var itemKeywords = []string{
	"item", "each", "sandwich", "burger", "piece", "slice", "container",
	"bottle", "cookie", "bar", "burrito", "taco", "wrap", "roll", "patty",
	"nugget", "packet", "pouch", "can", "donut", "muffin", "bagel", "order",
}

// ingredientKeywords mark a serving description as a measured ingredient
// amount rather than a whole item.
var ingredientKeywords = []string{
	"egg", "tbsp", "tablespoon", "tsp", "teaspoon", "cup", "scoop", "clove",
	"fillet", "breast", "thigh", "stick", "pat", "wedge", "head",
}

// ServingScore scores one serving option as the default portion for a food.
// branded selects the stronger keyword weights used for restaurant and
// packaged foods.
func ServingScore(opt nutrition.ServingOption, branded bool) float64 {
	desc := strings.ToLower(opt.Description)
	var score float64

	if weightDescRe.MatchString(desc) {
		score += weightDescPenalty
	}
	if strings.HasPrefix(desc, "1 ") {
		score += startsWithOneBonus
	}
	if strings.Contains(desc, "serving") {
		if branded {
			score += servingWordBrandedBonus
		} else {
			score += servingWordGenericBonus
		}
	}
	for _, kw := range itemKeywords {
		if strings.Contains(desc, kw) {
			if branded {
				score += itemKeywordBrandedBonus
			} else {
				score += itemKeywordGenericBonus
			}
			break
		}
	}
	for _, kw := range ingredientKeywords {
		if strings.Contains(desc, kw) {
			if branded {
				score += ingredientKeywordBrandedPenalty
			} else {
				score += ingredientKeywordGenericPenalty
			}
			break
		}
	}
	return score
}

// SelectServing picks the default serving option: highest [ServingScore],
// first-listed wins ties. An empty option list yields a zero-macro
// "1 serving" placeholder so callers always have a base to scale from.
func SelectServing(opts []nutrition.ServingOption, branded bool) nutrition.ServingOption {
	if len(opts) == 0 {
		return nutrition.ServingOption{Description: "1 serving", NumberOfUnits: 1}
	}
	best := opts[0]
	bestScore := ServingScore(opts[0], branded)
	for _, opt := range opts[1:] {
		if s := ServingScore(opt, branded); s > bestScore {
			best = opt
			bestScore = s
		}
	}
	return best
}
