package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/platewise/platewise/pkg/nutrition"
)

// numberWords maps spoken quantity words to numeric values. "a couple" and
// "a few" are deliberately unmapped; they fall through to the assumed-serving
// path until real transcript data justifies values for them.
var numberWords = map[string]float64{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"half": 0.5, "quarter": 0.25,
}

// unitAliases normalises spoken unit tokens into the closed [nutrition.UnitTag]
// vocabulary. Tokens matched by the unit pattern but absent here pass through
// lowercased.
var unitAliases = map[string]nutrition.UnitTag{
	"serving": nutrition.UnitServing, "servings": nutrition.UnitServing,
	"gram": nutrition.UnitGram, "grams": nutrition.UnitGram, "g": nutrition.UnitGram,
	"ounce": nutrition.UnitOunce, "ounces": nutrition.UnitOunce, "oz": nutrition.UnitOunce,
	"pound": nutrition.UnitPound, "pounds": nutrition.UnitPound,
	"lb": nutrition.UnitPound, "lbs": nutrition.UnitPound,
	"cup": nutrition.UnitCup, "cups": nutrition.UnitCup,
	"tablespoon": nutrition.UnitTbsp, "tablespoons": nutrition.UnitTbsp,
	"tbsp": nutrition.UnitTbsp, "tbsps": nutrition.UnitTbsp,
	"teaspoon": nutrition.UnitTsp, "teaspoons": nutrition.UnitTsp,
	"tsp": nutrition.UnitTsp, "tsps": nutrition.UnitTsp,
	"slice": nutrition.UnitSlice, "slices": nutrition.UnitSlice,
	"piece": nutrition.UnitCount, "pieces": nutrition.UnitCount,

	// Passthrough units kept as-is (singularised) outside the closed tags.
	"scoop": "scoop", "scoops": "scoop",
	"can": "can", "cans": "can",
	"bottle": "bottle", "bottles": "bottle",
	"glass": "glass", "glasses": "glass",
	"side": "side", "sides": "side",
	"bowl": "bowl", "bowls": "bowl",
	"plate": "plate", "plates": "plate",
	"order": "order", "orders": "order",
	"bar": "bar", "bars": "bar",
	"shot": "shot", "shots": "shot",
	"stick": "stick", "sticks": "stick",
}

// chunkRe matches "<quantity> <unit>? (of)? <food text>". The quantity
// accepts digits, decimals, simple fractions, and number words; the unit is
// a fixed token alternation so that ordinary adjectives ("grilled") are
// never mistaken for units.
var chunkRe = regexp.MustCompile(`(?i)^\s*` +
	`(\d+(?:\.\d+)?|\d+\s*/\s*\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten|half|quarter)\s+` +
	`(?:(servings?|grams?|g|ounces?|oz|pounds?|lbs?|lb|cups?|tablespoons?|tbsps?|tbsp|teaspoons?|tsps?|tsp|slices?|pieces?|scoops?|cans?|bottles?|glasses|glass|sides?|bowls?|plates?|orders?|bars?|shots?|sticks?)\s+)?` +
	`(?:of\s+)?(.+)$`)

var fractionRe = regexp.MustCompile(`^(\d+)\s*/\s*(\d+)$`)

// ParseChunk extracts the leading quantity and unit from one segmented food
// mention and returns a [Chunk].
//
// Defaulting rules:
//   - No unit token but an explicit quantity → unit "count".
//   - Quantity present, unit token present → unit normalised via the alias
//     table, unknown tokens passed through lowercased.
//   - No quantity pattern at all → the whole segment becomes the food query
//     with qty 1, unit "serving", and an assumed-serving note.
//   - A quantity that fails to parse (e.g. a zero-denominator fraction)
//     defaults to 1 with the same note.
func ParseChunk(segment string) Chunk {
	segment = strings.TrimSpace(segment)

	m := chunkRe.FindStringSubmatch(segment)
	if m == nil {
		query := strings.TrimSpace(segment)
		return Chunk{
			Query:       query,
			Qty:         1,
			Unit:        nutrition.UnitServing,
			Assumptions: []string{assumedServingNote(query)},
		}
	}

	qtyToken := strings.ToLower(strings.TrimSpace(m[1]))
	unitToken := strings.ToLower(strings.TrimSpace(m[2]))
	query := strings.TrimSpace(m[3])

	chunk := Chunk{Query: query}

	qty, ok := parseQuantity(qtyToken)
	if !ok {
		qty = 1
		chunk.Assumptions = append(chunk.Assumptions, assumedServingNote(query))
	}
	if qty < minQty {
		qty = minQty
	}
	chunk.Qty = qty

	if unitToken == "" {
		// A spoken count like "two eggs" means two of the item, not two
		// provider servings.
		chunk.Unit = nutrition.UnitCount
	} else if tag, known := unitAliases[unitToken]; known {
		chunk.Unit = tag
	} else {
		chunk.Unit = nutrition.UnitTag(strings.TrimSuffix(unitToken, "s"))
	}
	return chunk
}

// ParseAll runs [ParseChunk] over already-segmented mentions and folds
// exact duplicates via [Dedupe].
func ParseAll(segments []string) []Chunk {
	chunks := make([]Chunk, 0, len(segments))
	for _, seg := range segments {
		chunks = append(chunks, ParseChunk(seg))
	}
	return Dedupe(chunks)
}

// Dedupe folds chunks with identical (query, unit, qty) triples, case
// insensitively, keeping first-occurrence order. Repeated mentions of the
// same food within one transcript would otherwise double-count.
func Dedupe(chunks []Chunk) []Chunk {
	seen := make(map[string]struct{}, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		key := fmt.Sprintf("%s|%s|%g", strings.ToLower(c.Query), c.Unit, c.Qty)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// parseQuantity converts a quantity token (digits, decimal, fraction, or
// number word) into a float. Reports false when the token cannot be parsed
// to a positive value.
func parseQuantity(token string) (float64, bool) {
	if v, ok := numberWords[token]; ok {
		return v, true
	}
	if m := fractionRe.FindStringSubmatch(token); m != nil {
		num, err1 := strconv.ParseFloat(m[1], 64)
		den, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func assumedServingNote(query string) string {
	return fmt.Sprintf("Assumed 1 serving for %q", query)
}
