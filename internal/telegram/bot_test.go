package telegram

import (
	"strings"
	"testing"

	"nutrition-coach/internal/coach"
	"nutrition-coach/internal/domain"
)

func TestFormatPlanParts(t *testing.T) {
	reply := coach.Reply{
		TDEE:           2046,
		TargetCalories: 1546,
		Plan: &domain.WeekPlan{
			Breakfasts: []domain.Recipe{
				{Name: "Overnight Oats", Nutrition: domain.Nutrition{Calories: 386}},
				{Name: "Greek Yogurt Bowl", Nutrition: domain.Nutrition{Calories: 386}},
			},
			Mains: []domain.Recipe{
				{Name: "Chicken Stir Fry", Nutrition: domain.Nutrition{Calories: 435}},
				{Name: "Salmon Bowls", Nutrition: domain.Nutrition{Calories: 435}},
				{Name: "Lentil Curry", Nutrition: domain.Nutrition{Calories: 435}},
			},
		},
		ShoppingList: []domain.Ingredient{
			{Name: "Mixed veggies", Qty: 5, Unit: "cup"},
			{Name: "Olive oil", Qty: 5, Unit: "tbsp"},
		},
		CheckoutURL:  "https://groceries.example.com/cart?items=2",
		CheckoutMode: "mock",
	}

	planText, shoppingText := formatPlanParts(reply)

	if !strings.Contains(planText, "📅 *Your Week*") {
		t.Error("missing plan header")
	}
	if !strings.Contains(planText, "Target: 1546 kcal/day") {
		t.Error("missing calorie target")
	}
	if !strings.Contains(planText, "• Chicken Stir Fry (435 kcal/serving)") {
		t.Error("missing main recipe line")
	}

	if !strings.Contains(shoppingText, "🛒 *Shopping List*") {
		t.Error("missing shopping list header")
	}
	if !strings.Contains(shoppingText, "• Mixed veggies 5 cup") {
		t.Error("missing shopping item")
	}
	if !strings.Contains(shoppingText, "(demo cart)") {
		t.Error("missing mock cart marker")
	}
}
