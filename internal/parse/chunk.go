// Package parse turns a raw meal transcript into ordered, quantified food
// chunks. It is a pragmatic heuristic pipeline, not a linguistic parser:
//
//  1. [NormalizeQuery] cleans arbitrary text into a compact search query.
//  2. [Segmenter.Segment] splits a transcript into one segment per food
//     mention using comma/connector rules that protect compound dish names
//     ("mac and cheese") and side-modifier phrases ("with no mayo").
//  3. [ParseChunk] extracts a leading quantity and unit from each segment,
//     defaulting with an emitted assumption when absent.
//  4. [Dedupe] folds repeated identical mentions within one transcript.
//
// Everything in this package is pure, synchronous, and CPU-only; the word
// lists are immutable after construction.
package parse

import "github.com/platewise/platewise/pkg/nutrition"

// Chunk is one quantified food mention extracted from a transcript.
// Chunks are created once per analyze call and never mutated.
type Chunk struct {
	// Query is the food text to search providers with.
	Query string

	// Qty is the parsed quantity. Always > 0 (floored at 0.01).
	Qty float64

	// Unit is the normalised unit tag. Unknown literal unit tokens pass
	// through lowercased.
	Unit nutrition.UnitTag

	// Assumptions are user-visible notes about defaults applied while
	// parsing this chunk.
	Assumptions []string
}

// minQty is the floor applied to parsed quantities so that a degenerate
// fraction like "0/4" can never zero out an item's macros.
const minQty = 0.01
