package parse

import (
	"strings"
)

// protectedMark temporarily replaces the " and " inside a protected compound
// phrase so connector splitting cannot break the phrase apart.
const protectedMark = " \x01 "

// defaultProtectedPhrases are compound dish names whose interior "and" must
// never be treated as a food separator.
var defaultProtectedPhrases = []string{
	"mac and cheese",
	"macaroni and cheese",
	"peanut butter and jelly",
	"fish and chips",
	"chicken and waffles",
	"chicken and rice",
	"beans and rice",
	"rice and beans",
	"ham and cheese",
	"bangers and mash",
	"biscuits and gravy",
	"surf and turf",
	"bread and butter",
	"salt and vinegar",
	"sweet and sour",
	"half and half",
}

// defaultModifierPrefixes mark a clause as a quantity/ingredient modifier of
// the food to its left ("no mayo", "extra cheese") rather than a separate
// food. A clause starting with one of these stays merged.
var defaultModifierPrefixes = []string{
	"no", "without", "extra", "light", "hold", "less", "more", "add",
	"minus", "substitute",
}

// defaultModifierWords are single tokens that, as the right side of a
// " with " clause, describe a topping or condiment of the left-side food and
// therefore stay merged into the same chunk.
var defaultModifierWords = []string{
	"sauce", "gravy", "dressing", "mayo", "mayonnaise", "cheese", "onion",
	"onions", "butter", "syrup", "salt", "pepper", "ketchup", "mustard",
	"salsa", "guacamole", "sriracha", "ranch", "honey", "sugar", "cream",
	"sprinkles", "ice", "lemon", "lime",
}

// defaultStandaloneFoods are single tokens that are foods in their own right
// even when introduced with " with "; they split off as their own chunk.
// Listed explicitly because a few of them could otherwise read as toppings.
var defaultStandaloneFoods = []string{
	"fries", "rice", "soda", "juice", "salad", "milk", "water", "coffee",
	"tea", "chips", "toast", "eggs", "bacon", "beans", "soup", "bread",
	"coleslaw", "pasta", "noodles",
}

// leadPhrases are conversational openers stripped from the front of a chunk.
var leadPhrases = []string{
	"i just had ", "i had ", "i ate ", "i drank ", "i got ", "had ",
	"ate ", "drank ",
}

// mealSuffixes are trailing meal-slot phrases stripped from the end of a chunk.
var mealSuffixes = []string{
	" for breakfast", " for lunch", " for dinner", " for snack",
	" for a snack", " this morning", " tonight",
}

// SegmenterOption is a functional option for configuring a [Segmenter].
type SegmenterOption func(*Segmenter)

// WithProtectedPhrases replaces the default protected compound-food phrases.
// Phrases must be lowercase and contain " and ".
func WithProtectedPhrases(phrases ...string) SegmenterOption {
	return func(s *Segmenter) {
		s.protected = append([]string(nil), phrases...)
	}
}

// WithModifierWords replaces the default single-token modifier vocabulary
// used by the " with " rule. The lists are a starting heuristic; extend them
// from transcript corpus review rather than guessing.
func WithModifierWords(words ...string) SegmenterOption {
	return func(s *Segmenter) {
		s.modifierWords = toSet(words)
	}
}

// WithStandaloneFoods replaces the default single-token stand-alone food
// vocabulary used by the " with " rule.
func WithStandaloneFoods(words ...string) SegmenterOption {
	return func(s *Segmenter) {
		s.standalone = toSet(words)
	}
}

// Segmenter splits one transcript into an ordered list of food mentions.
//
// The splitting rules, applied per comma-separated segment:
//
//   - " and then ", " then ", " plus ", "+", "&" always split.
//   - " and " splits unless the two sides form a protected compound phrase
//     or the right side is a modifier clause ("no mayo", "extra cheese").
//   - " with " splits unless the right side is a modifier clause or a single
//     known modifier token; multi-word right sides and known stand-alone
//     foods split off as their own chunk.
//
// Naive comma/and splitting breaks compound dish names and side-modifier
// phrases; the protected-phrase and modifier-word lists are the minimal
// heuristic covering those two failure classes.
//
// Segmenter is immutable after construction and safe for concurrent use.
type Segmenter struct {
	protected     []string
	modifierWords map[string]struct{}
	standalone    map[string]struct{}
}

// NewSegmenter returns a [Segmenter] with the supplied options applied over
// the default word lists.
func NewSegmenter(opts ...SegmenterOption) *Segmenter {
	s := &Segmenter{
		protected:     append([]string(nil), defaultProtectedPhrases...),
		modifierWords: toSet(defaultModifierWords),
		standalone:    toSet(defaultStandaloneFoods),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Segment splits transcript into ordered food mentions. When no usable
// segment survives the rules, the whole cleaned transcript is returned as a
// single fallback segment so that the quantity parser can still produce one
// assumed-serving chunk. An empty or all-punctuation transcript takes the
// same fallback path; it never yields zero segments.
func (s *Segmenter) Segment(transcript string) []string {
	lower := strings.ToLower(strings.TrimSpace(transcript))

	// Semicolons, pipes, and newlines behave like commas.
	r := strings.NewReplacer(";", ",", "|", ",", "\n", ",", "\r", ",")
	prepared := r.Replace(lower)

	var out []string
	for _, seg := range strings.Split(prepared, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		for _, chunk := range s.splitConnectors(seg) {
			chunk = stripLeadAndSuffix(chunk)
			if chunk != "" {
				out = append(out, chunk)
			}
		}
	}

	if len(out) == 0 {
		return []string{stripLeadAndSuffix(strings.Join(strings.Fields(lower), " "))}
	}
	return out
}

// splitConnectors applies the connector rules to one comma-free segment.
func (s *Segmenter) splitConnectors(seg string) []string {
	seg = s.maskProtected(seg)

	// Unconditional connectors first.
	parts := []string{seg}
	for _, sep := range []string{" and then ", " then ", " plus ", "+", "&"} {
		parts = splitAll(parts, sep)
	}

	// " and " splits unless the right side is a modifier clause.
	var andParts []string
	for _, p := range parts {
		pieces := strings.Split(p, " and ")
		cur := pieces[0]
		for _, right := range pieces[1:] {
			if s.isModifierClause(right) {
				cur += " and " + right
				continue
			}
			andParts = append(andParts, cur)
			cur = right
		}
		andParts = append(andParts, cur)
	}

	// " with " splits unless the right side modifies the left-side food.
	var out []string
	for _, p := range andParts {
		pieces := strings.Split(p, " with ")
		cur := pieces[0]
		for _, right := range pieces[1:] {
			if s.keepsWithClause(right) {
				cur += " with " + right
				continue
			}
			out = append(out, cur)
			cur = right
		}
		out = append(out, cur)
	}

	for i, p := range out {
		out[i] = strings.TrimSpace(s.unmaskProtected(p))
	}
	return out
}

// maskProtected hides the " and " inside protected compound phrases so the
// connector passes cannot split them.
func (s *Segmenter) maskProtected(seg string) string {
	for _, phrase := range s.protected {
		if strings.Contains(seg, phrase) {
			masked := strings.ReplaceAll(phrase, " and ", protectedMark)
			seg = strings.ReplaceAll(seg, phrase, masked)
		}
	}
	return seg
}

func (s *Segmenter) unmaskProtected(seg string) string {
	return strings.ReplaceAll(seg, protectedMark, " and ")
}

// isModifierClause reports whether clause starts with a modifier prefix
// ("no mayo", "extra pickles") and therefore belongs to the food on its left.
func (s *Segmenter) isModifierClause(clause string) bool {
	fields := strings.Fields(clause)
	if len(fields) == 0 {
		return true
	}
	for _, prefix := range defaultModifierPrefixes {
		if fields[0] == prefix {
			return true
		}
	}
	return false
}

// keepsWithClause decides whether the right side of " with " stays merged.
// Modifier clauses and single known modifier tokens merge; everything else
// — multi-word clauses and stand-alone foods — splits off.
func (s *Segmenter) keepsWithClause(right string) bool {
	if s.isModifierClause(right) {
		return true
	}
	tokens := strings.Fields(NormalizeQuery(s.unmaskProtected(right)))
	if len(tokens) != 1 {
		return false
	}
	if _, ok := s.standalone[tokens[0]]; ok {
		return false
	}
	_, ok := s.modifierWords[tokens[0]]
	return ok
}

// stripLeadAndSuffix removes conversational openers and trailing meal-slot
// phrases from a chunk.
func stripLeadAndSuffix(chunk string) string {
	chunk = strings.TrimSpace(chunk)
	for changed := true; changed; {
		changed = false
		for _, lead := range leadPhrases {
			if strings.HasPrefix(chunk, lead) {
				chunk = strings.TrimSpace(strings.TrimPrefix(chunk, lead))
				changed = true
			}
		}
	}
	for _, suffix := range mealSuffixes {
		if strings.HasSuffix(chunk, suffix) {
			chunk = strings.TrimSpace(strings.TrimSuffix(chunk, suffix))
		}
	}
	return chunk
}

// splitAll splits every part on sep and flattens the result, dropping
// empty pieces.
func splitAll(parts []string, sep string) []string {
	var out []string
	for _, p := range parts {
		for _, piece := range strings.Split(p, sep) {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
