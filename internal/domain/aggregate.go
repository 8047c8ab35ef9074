package domain

import (
	"math"
	"strings"
)

type ingredientKey struct {
	name string
	unit string
}

// Aggregate consolidates all ingredient lines across the given recipes into a
// single shopping list. Lines are keyed by (lowercased name, unit) and their
// quantities summed; the same name in different units stays as separate lines
// because no unit-conversion table exists (a documented limitation, not a
// bug). Output order is first-seen, so the list is reproducible for a given
// input. Quantities are treated as whole-recipe amounts and are not scaled by
// serving counts.
func Aggregate(recipes []Recipe) ([]Ingredient, error) {
	totals := make(map[ingredientKey]float64)
	units := make(map[ingredientKey]string)
	order := make([]ingredientKey, 0)

	for _, r := range recipes {
		for _, line := range r.Ingredients {
			name := strings.ToLower(strings.TrimSpace(line.Name))
			if name == "" {
				return nil, &AggregationError{Recipe: r.Name, Message: "ingredient line without a name"}
			}
			if line.Qty < 0 {
				return nil, &AggregationError{Recipe: r.Name, Message: "negative quantity for " + name}
			}
			key := ingredientKey{name: name, unit: strings.TrimSpace(line.Unit)}
			if _, ok := totals[key]; !ok {
				order = append(order, key)
				units[key] = key.unit
			}
			totals[key] += line.Qty
		}
	}

	out := make([]Ingredient, 0, len(order))
	for _, key := range order {
		out = append(out, Ingredient{
			Name: key.name,
			Qty:  math.Round(totals[key]*100) / 100,
			Unit: units[key],
		})
	}
	return out, nil
}
