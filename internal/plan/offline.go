package plan

import (
	"context"
	"fmt"
	"math"
	"strings"

	"nutrition-coach/internal/domain"
)

// Fallback dishes when the user's like-lists are short.
var (
	defaultBreakfasts = []string{"Overnight oats", "Tofu scramble"}
	defaultMains      = []string{"Chickpea curry", "Lentil tacos", "Veggie stir fry"}
)

// OfflineGenerator builds a deterministic plan straight from the liked
// dishes, no network. It is selected when no LLM provider is configured and
// keeps the rest of the flow identical to the live path.
type OfflineGenerator struct{}

// NewOfflineGenerator creates the offline Generator.
func NewOfflineGenerator() *OfflineGenerator { return &OfflineGenerator{} }

// Generate turns each liked dish into a simple recipe. A day is one
// breakfast plus two mains, so breakfasts get a quarter of the daily target
// and each main three eighths.
func (g *OfflineGenerator) Generate(_ context.Context, target, tdee int, prefs domain.FoodPrefs) (domain.WeekPlan, error) {
	breakfasts := padList(prefs.BreakfastLikes, defaultBreakfasts, 2)
	mains := padList(prefs.MainLikes, defaultMains, 3)

	breakfastCal := target / 4
	mainCal := (target - breakfastCal) * 3 / 8

	weekPlan := domain.WeekPlan{
		TargetCalories: target,
		TDEE:           tdee,
	}
	for _, name := range breakfasts {
		weekPlan.Breakfasts = append(weekPlan.Breakfasts, recipeFromName(name, breakfastCal, domain.MealBreakfast))
	}
	for _, name := range mains {
		weekPlan.Mains = append(weekPlan.Mains, recipeFromName(name, mainCal, domain.MealMain))
	}

	if err := Validate(weekPlan); err != nil {
		return domain.WeekPlan{}, err
	}
	return weekPlan, nil
}

func recipeFromName(name string, calories int, mealType domain.MealType) domain.Recipe {
	title := titleCase(name)
	return domain.Recipe{
		Name:        title,
		Description: fmt.Sprintf("Prep the ingredients for %s, cook until ready and serve.", title),
		Servings:    2,
		Nutrition: domain.Nutrition{
			Calories:     calories,
			GramsProtein: roundGrams(float64(calories) * 0.30 / 4),
			GramsCarbs:   roundGrams(float64(calories) * 0.40 / 4),
			GramsFat:     roundGrams(float64(calories) * 0.30 / 9),
		},
		MealType: mealType,
		Ingredients: []domain.Ingredient{
			{Name: title, Qty: 1, Unit: "serving"},
			{Name: "Mixed veggies", Qty: 1, Unit: "cup"},
			{Name: "Olive oil", Qty: 1, Unit: "tbsp"},
		},
	}
}

func padList(likes, defaults []string, n int) []string {
	out := append([]string(nil), likes...)
	for _, d := range defaults {
		if len(out) >= n {
			break
		}
		out = append(out, d)
	}
	return out[:n]
}

func roundGrams(v float64) float64 {
	return math.Round(v*10) / 10
}

func titleCase(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
