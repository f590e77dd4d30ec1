// Package macro converts a resolved food's base serving into the macros for
// the quantity and unit the user actually spoke, and aggregates item macros
// into meal totals. All functions are pure; totals are always re-derived
// from items, never patched incrementally.
package macro

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/platewise/platewise/pkg/nutrition"
)

const (
	gramsPerOunce = 28.3495
	gramsPerPound = 453.592

	// descMatchThreshold is the Jaro-Winkler similarity above which a
	// serving description is considered the same portion the user named.
	descMatchThreshold = 0.88
)

// gramsInDescRe extracts an embedded gram amount from a serving description
// such as "1 cup (240 g)".
var gramsInDescRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:g|grams?)\b`)

// BaseGrams determines the gram weight of the base serving, trying in order:
// an exact description match against the spoken unit, a fuzzy description
// match, the first option carrying metric grams, and finally a gram amount
// embedded in the base description. Returns 0 when the weight is unknown.
func BaseGrams(base nutrition.ServingOption, all []nutrition.ServingOption, spokenUnit nutrition.UnitTag) float64 {
	if base.MetricGrams > 0 {
		return base.MetricGrams
	}

	want := strings.ToLower(string(spokenUnit))
	if want != "" && want != string(nutrition.UnitServing) && want != string(nutrition.UnitCount) {
		var bestGrams, bestSim float64
		for _, opt := range all {
			if opt.MetricGrams <= 0 {
				continue
			}
			desc := strings.ToLower(opt.Description)
			if strings.Contains(desc, want) {
				return opt.MetricGrams
			}
			if sim := matchr.JaroWinkler(want, desc, false); sim >= descMatchThreshold && sim > bestSim {
				bestSim = sim
				bestGrams = opt.MetricGrams
			}
		}
		if bestGrams > 0 {
			return bestGrams
		}
	}

	for _, opt := range all {
		if opt.MetricGrams > 0 {
			return opt.MetricGrams
		}
	}

	if m := gramsInDescRe.FindStringSubmatch(strings.ToLower(base.Description)); m != nil {
		if g, err := strconv.ParseFloat(m[1], 64); err == nil && g > 0 {
			return g
		}
	}
	return 0
}

// Scaled is the result of scaling a base serving to a spoken quantity.
type Scaled struct {
	// Macros are the scaled macros for the full quantity.
	Macros nutrition.MacroSet

	// GramsResolved is the resolved gram weight of the full quantity,
	// 0 when unknown.
	GramsResolved float64
}

// Scale converts the base serving's macros to the spoken quantity and unit.
//
// Weight units (g, oz, lb) convert the quantity to grams and scale by
// grams/baseGrams. When the base serving's gram weight is unknown the
// requested weight cannot be honoured; the base serving's macros are kept
// unchanged rather than multiplying macros by a raw gram count.
// Non-weight units treat qty as a serving multiplier.
func Scale(base nutrition.ServingOption, baseGrams, qty float64, unit nutrition.UnitTag) Scaled {
	if unit.IsWeight() {
		grams := qty
		switch unit {
		case nutrition.UnitOunce:
			grams = qty * gramsPerOunce
		case nutrition.UnitPound:
			grams = qty * gramsPerPound
		}
		if baseGrams <= 0 {
			return Scaled{Macros: base.Macros, GramsResolved: grams}
		}
		mult := grams / baseGrams
		return Scaled{Macros: base.Macros.Scale(mult), GramsResolved: grams}
	}

	scaled := Scaled{Macros: base.Macros.Scale(qty)}
	if baseGrams > 0 {
		scaled.GramsResolved = baseGrams * qty
	}
	return scaled
}
