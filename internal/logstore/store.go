// Package logstore persists finalized meal entries. The resolution engine
// only ever writes; nothing in this service reads logs back.
package logstore

import (
	"context"
	"time"

	"github.com/platewise/platewise/pkg/nutrition"
)

// Entry is one finalized meal ready for persistence.
type Entry struct {
	UserID     string
	LoggedAt   time.Time
	MealType   string
	Transcript string
	Items      []nutrition.MealItem
	Totals     nutrition.MacroSet
}

// Store accepts finalized meal entries. Implementations report failure via
// the returned error; retry policy belongs to the caller's collaborator,
// not to this interface.
type Store interface {
	Insert(ctx context.Context, entry Entry) error
}
