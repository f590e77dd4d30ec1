// Package brand maps spoken brand variants in a food query to one canonical
// brand key. A detected brand both rewrites the provider search expression
// and adds a strong ranking bias toward candidates of that brand.
//
// The alias table is immutable after construction; a [Resolver] is safe for
// concurrent use and fully deterministic — the same input always yields the
// same match regardless of call order.
package brand

import (
	"regexp"
	"sort"
	"strings"
)

// defaultAliases maps each canonical brand key to the spoken and typed
// variants users produce for it. Keys and aliases are stored in normalised
// form (lowercase, "&" → "and", non-alphanumeric → space).
var defaultAliases = map[string][]string{
	"chick fil a":     {"chick fil a", "chickfila", "chick filet", "chic fil a", "chick fillet"},
	"mcdonalds":       {"mcdonalds", "mcdonald s", "mickey ds", "maccas"},
	"burger king":     {"burger king"},
	"taco bell":       {"taco bell"},
	"chipotle":        {"chipotle"},
	"starbucks":       {"starbucks", "starbuck s"},
	"subway":          {"subway"},
	"wendys":          {"wendys", "wendy s"},
	"dunkin":          {"dunkin", "dunkin donuts", "dunkin doughnuts"},
	"kfc":             {"kfc", "kentucky fried chicken"},
	"panera bread":    {"panera", "panera bread"},
	"five guys":       {"five guys"},
	"in n out":        {"in n out", "in and out"},
	"shake shack":     {"shake shack"},
	"panda express":   {"panda express"},
	"olive garden":    {"olive garden"},
	"dominos":         {"dominos", "domino s"},
	"pizza hut":       {"pizza hut"},
	"popeyes":         {"popeyes", "popeye s"},
	"quest":           {"quest", "quest bar"},
	"premier protein": {"premier protein"},
	"fairlife":        {"fairlife", "fair life"},
	"chobani":         {"chobani"},
	"clif":            {"clif", "clif bar", "cliff bar"},
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9\s]`)

// Normalize lowers text, rewrites "&" to "and", replaces non-alphanumeric
// runs with spaces, and collapses whitespace. The alias table and all
// queries are compared in this form.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = strings.ReplaceAll(s, "&", " and ")
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Match is a successful brand detection.
type Match struct {
	// Canonical is the canonical brand key.
	Canonical string

	// MatchedAlias is the alias (normalised form) that triggered the match.
	MatchedAlias string
}

// aliasEntry is one precompiled alias pattern.
type aliasEntry struct {
	canonical string
	alias     string
	wordRe    *regexp.Regexp
	squashed  string // alias with spaces stripped, for no-space typing
}

// Resolver detects brand mentions in food queries against a fixed alias
// table. Longest aliases are tried first so "dunkin donuts" wins over
// "dunkin" when both would match.
type Resolver struct {
	entries []aliasEntry
}

// ResolverOption is a functional option for configuring a [Resolver].
type ResolverOption func(*map[string][]string)

// WithAliases replaces the default alias table entirely.
func WithAliases(table map[string][]string) ResolverOption {
	return func(t *map[string][]string) {
		*t = table
	}
}

// WithBrand adds (or extends) a single canonical brand's alias list on top
// of the current table.
func WithBrand(canonical string, aliases ...string) ResolverOption {
	return func(t *map[string][]string) {
		merged := make(map[string][]string, len(*t)+1)
		for k, v := range *t {
			merged[k] = v
		}
		merged[canonical] = append(append([]string(nil), merged[canonical]...), aliases...)
		*t = merged
	}
}

// NewResolver builds a [Resolver] from the default alias table plus any
// options. Alias patterns are compiled once at construction.
func NewResolver(opts ...ResolverOption) *Resolver {
	table := defaultAliases
	for _, o := range opts {
		o(&table)
	}

	var entries []aliasEntry
	for canonical, aliases := range table {
		normCanonical := Normalize(canonical)
		for _, alias := range aliases {
			normAlias := Normalize(alias)
			if normAlias == "" {
				continue
			}
			entries = append(entries, aliasEntry{
				canonical: normCanonical,
				alias:     normAlias,
				wordRe:    regexp.MustCompile(`\b` + regexp.QuoteMeta(normAlias) + `\b`),
				squashed:  strings.ReplaceAll(normAlias, " ", ""),
			})
		}
	}

	// Longest alias first; ties broken alphabetically so iteration over the
	// table map can never influence the result.
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].alias) != len(entries[j].alias) {
			return len(entries[i].alias) > len(entries[j].alias)
		}
		return entries[i].alias < entries[j].alias
	})

	return &Resolver{entries: entries}
}

// Resolve detects a brand mention in query. It first tries a whole-word
// match of each alias (longest first); if none match, it retries with a
// space-stripped containment check to handle brands typed without spaces
// ("chickfila"). Returns nil when no alias matches.
func (r *Resolver) Resolve(query string) *Match {
	norm := Normalize(query)
	if norm == "" {
		return nil
	}

	for _, e := range r.entries {
		if e.wordRe.MatchString(norm) {
			return &Match{Canonical: e.canonical, MatchedAlias: e.alias}
		}
	}

	squashedQuery := strings.ReplaceAll(norm, " ", "")
	for _, e := range r.entries {
		if strings.Contains(squashedQuery, e.squashed) {
			return &Match{Canonical: e.canonical, MatchedAlias: e.alias}
		}
	}
	return nil
}

// SearchExpression rewrites query for provider search: the matched alias is
// substituted with its canonical form, which improves provider hit rates
// for misspelled or abbreviated brand mentions. When m is nil the
// normalised query is returned unchanged.
func (r *Resolver) SearchExpression(query string, m *Match) string {
	norm := Normalize(query)
	if m == nil || m.MatchedAlias == m.Canonical {
		return norm
	}
	if strings.Contains(norm, m.MatchedAlias) {
		return strings.Join(strings.Fields(strings.ReplaceAll(norm, m.MatchedAlias, m.Canonical)), " ")
	}
	// The alias matched via the space-stripped path; substitute the squashed
	// form when present, otherwise prepend the canonical brand.
	squashed := strings.ReplaceAll(m.MatchedAlias, " ", "")
	if strings.Contains(norm, squashed) {
		return strings.Join(strings.Fields(strings.ReplaceAll(norm, squashed, m.Canonical)), " ")
	}
	return m.Canonical + " " + norm
}
