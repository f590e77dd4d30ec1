// Package nutrition defines the core domain types shared by the Platewise
// meal-transcript resolution engine: macro sets, serving options, resolved
// foods, meal items, and meal analyses.
//
// All types are plain immutable-by-convention values. A [MealItem] is only
// ever mutated by full replacement so that quantity, unit, and macros stay
// consistent; callers must never patch individual macro fields in place.
package nutrition

import "github.com/google/uuid"

// Source identifies the external nutrition database a food was resolved from.
type Source string

const (
	// SourceFatSecret is the primary provider with rich serving data and
	// brand/food-type metadata.
	SourceFatSecret Source = "fatsecret"

	// SourceUSDA is the fallback provider. Its servings are weight-based only.
	SourceUSDA Source = "usda"

	// SourceNutritionix is accepted on inbound items for reprice but has no
	// built-in client; a client can be registered via the provider registry.
	SourceNutritionix Source = "nutritionix"
)

// IsValid reports whether s is a recognised provider source.
func (s Source) IsValid() bool {
	switch s {
	case SourceFatSecret, SourceUSDA, SourceNutritionix:
		return true
	}
	return false
}

// UnitTag is the closed unit vocabulary produced by the quantity parser.
// Any other literal unit token passes through normalised to lowercase.
type UnitTag string

const (
	UnitServing UnitTag = "serving"
	UnitCount   UnitTag = "count"
	UnitGram    UnitTag = "g"
	UnitOunce   UnitTag = "oz"
	UnitPound   UnitTag = "lb"
	UnitCup     UnitTag = "cup"
	UnitTbsp    UnitTag = "tbsp"
	UnitTsp     UnitTag = "tsp"
	UnitSlice   UnitTag = "slice"
)

// IsWeight reports whether the unit expresses a direct gram-convertible
// weight. Weight units scale macros by grams requested over base grams;
// all other units scale by quantity directly.
func (u UnitTag) IsWeight() bool {
	return u == UnitGram || u == UnitOunce || u == UnitPound
}

// MacroSet holds the four tracked macronutrient values. All fields are
// non-negative; an all-zero set is the valid "unmatched" sentinel.
type MacroSet struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

// Add returns the field-wise sum of m and other.
func (m MacroSet) Add(other MacroSet) MacroSet {
	return MacroSet{
		Calories: m.Calories + other.Calories,
		Protein:  m.Protein + other.Protein,
		Carbs:    m.Carbs + other.Carbs,
		Fats:     m.Fats + other.Fats,
	}
}

// Scale returns m with every field multiplied by factor. No rounding is
// applied; totals and reprice consistency depend on carrying full precision
// through aggregation.
func (m MacroSet) Scale(factor float64) MacroSet {
	return MacroSet{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fats:     m.Fats * factor,
	}
}

// IsZero reports whether all four fields are zero.
func (m MacroSet) IsZero() bool {
	return m.Calories == 0 && m.Protein == 0 && m.Carbs == 0 && m.Fats == 0
}

// ServingOption is one of possibly several ways a food's nutrition can be
// expressed (e.g. "1 sandwich", "100 g", "1 cup").
type ServingOption struct {
	// ID is the provider's serving identifier. Empty when the provider does
	// not assign one (synthetic backfill servings have no ID).
	ID string `json:"id,omitempty"`

	// Description is the human-readable serving label (e.g. "1 cup").
	Description string `json:"description"`

	// MetricGrams is the serving weight in grams. Zero means the provider
	// did not supply a weight for this serving.
	MetricGrams float64 `json:"metric_grams,omitempty"`

	// NumberOfUnits is how many units the serving represents. Defaults to 1.
	NumberOfUnits float64 `json:"number_of_units"`

	// Macros are the macro values for exactly one of this serving.
	Macros MacroSet `json:"macros"`
}

// ResolvedFood is an immutable snapshot of a provider food, fetched per
// request. It is never cached across requests inside the engine.
type ResolvedFood struct {
	ID        string  `json:"id"`
	Source    Source  `json:"source"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand,omitempty"`
	FoodType  string  `json:"food_type,omitempty"`
	IsBranded bool    `json:"is_branded"`

	// ServingOptions always holds at least one option. Provider adapters
	// backfill a synthetic "1 serving" option from the food's base macros
	// when the provider returns none.
	ServingOptions []ServingOption `json:"serving_options"`
}

// BackfillServing appends a synthetic "1 serving" option built from base
// when the food has no serving options. It upholds the at-least-one-option
// invariant and is called by every provider adapter.
func (f *ResolvedFood) BackfillServing(base MacroSet) {
	if len(f.ServingOptions) > 0 {
		return
	}
	f.ServingOptions = []ServingOption{{
		Description:   "1 serving",
		NumberOfUnits: 1,
		Macros:        base,
	}}
}

// ItemSource records which provider food a meal item was resolved from.
type ItemSource struct {
	Provider Source `json:"provider"`
	FoodID   string `json:"food_id"`

	// Label is the serving description the item's macros are based on.
	Label string `json:"label"`
}

// MealItem is one resolved (or unmatched) food line in a meal. Items are
// created by Analyze or Reprice and replaced wholesale on edit.
type MealItem struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	Qty           float64   `json:"qty"`
	Unit          UnitTag   `json:"unit"`
	GramsResolved float64   `json:"grams_resolved,omitempty"`
	RawCooked     string    `json:"raw_cooked,omitempty"`
	Source        ItemSource `json:"source"`
	Macros        MacroSet  `json:"macros"`

	// Confidence is the engine's confidence in the provider match, in [0, 1].
	// Unmatched items carry 0.25.
	Confidence float64 `json:"confidence"`

	AssumptionsUsed []string `json:"assumptions_used,omitempty"`
}

// NewItemID returns a fresh UUID for a meal item.
func NewItemID() string {
	return uuid.NewString()
}

// Well-known assumption types surfaced to the caller.
const (
	AssumptionAssumedServing = "assumed_serving"
	AssumptionUnmatchedItem  = "unmatched_item"
	AssumptionStaleReprice   = "stale_reprice"
)

// Assumption is a user-visible note about a heuristic decision the engine
// made while resolving a meal.
type Assumption struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// MealAnalysis is the uniform result shape of Analyze and Reprice. Totals
// are always the field-wise sum of Items' macros, recomputed rather than
// accumulated.
type MealAnalysis struct {
	TranscriptOriginal string       `json:"transcript_original"`
	Assumptions        []Assumption `json:"assumptions"`
	Totals             MacroSet     `json:"totals"`
	Items              []MealItem   `json:"items"`
	QuestionsNeeded    []string     `json:"questions_needed"`
}
