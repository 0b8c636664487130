// Package goals tracks donated quantities against per-category targets.
package goals

import (
	"math"

	"github.com/okian/gincana/internal/domain/model"
	"github.com/okian/gincana/internal/domain/normalize"
)

// Progress returns one entry per distinct category of rules, in first-seen
// order. The target is the first goal listed for the category; later goals
// for the same category are ignored.
func Progress(rules []model.CategoryRule, view model.DonationTable) []model.GoalProgress {
	achieved := map[string]float64{}
	if view.Columns.Has(model.ColCategory) && view.Columns.Has(model.ColQuantity) {
		for _, r := range view.Records {
			achieved[r.Category] += r.Quantity
		}
	}

	seen := make(map[string]bool, len(rules))
	out := make([]model.GoalProgress, 0, len(rules))
	for _, rule := range rules {
		if normalize.IsPlaceholder(rule.Category) || seen[rule.Category] {
			continue
		}
		seen[rule.Category] = true
		got := achieved[rule.Category]
		out = append(out, model.GoalProgress{
			Category: rule.Category,
			Target:   rule.GroupGoal,
			Achieved: got,
			Percent:  Percent(got, rule.GroupGoal),
		})
	}
	return out
}

// Percent is achieved/target as a percentage clamped to [0, 100]. A
// non-positive target yields 0.
func Percent(achieved, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Max(0, math.Min(achieved/target*100, 100))
}
