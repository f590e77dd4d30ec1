package macro

import "github.com/platewise/platewise/pkg/nutrition"

// Sum re-derives meal totals from the item list. Totals are never patched
// in place when an item changes; callers recompute with Sum so the items
// and totals can never drift apart.
func Sum(items []nutrition.MealItem) nutrition.MacroSet {
	var totals nutrition.MacroSet
	for _, item := range items {
		totals = totals.Add(item.Macros)
	}
	return totals
}
