// Package plan synthesizes a week of recipes from the calorie target and the
// user's preferences. Output from the generation capability is untrusted: it
// crosses a schema + domain validation boundary before becoming a WeekPlan.
package plan

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/llm"
)

//go:embed week_plan_schema.json
var weekPlanSchema string

// Generator is the recipe-generation capability.
type Generator interface {
	Generate(ctx context.Context, target, tdee int, prefs domain.FoodPrefs) (domain.WeekPlan, error)
}

const (
	maxUpstreamTries = 3
	contractAttempts = 2
)

const generatePrompt = `You are an expert meal planner.
Generate exactly two breakfast recipes and three lunch/dinner recipes for one week.
Daily calories should land close to the target; a day is one breakfast plus mains from the rotation.

Target: %d kcal/day (maintenance is about %d kcal/day).
Breakfast ideas the user likes: %s.
Lunch/dinner ideas the user likes: %s.
Allergies (never include these): %s.
Dislikes (avoid these): %s.

Return ONLY a raw JSON object, no markdown fences, shaped like:
{
  "say": "one short sentence",
  "breakfasts": [<recipe>, <recipe>],
  "mains": [<recipe>, <recipe>, <recipe>]
}
where each <recipe> is:
{
  "name": "...", "description": "...", "servings": 2,
  "nutrition": {"calories": 0, "grams_protein": 0, "grams_carbs": 0, "grams_fat": 0},
  "meal_type": "breakfast" or "lunch/dinner",
  "diet_type": "...", "allergens": ["..."],
  "ingredients": [{"name": "...", "qty": 0, "unit": "g"}]
}`

const strictRestatement = `

IMPORTANT: your previous answer violated the contract: %s.
Return exactly 2 breakfasts and exactly 3 mains. Every recipe needs servings >= 1,
all four nutrition fields with non-negative values, a meal_type of "breakfast" or
"lunch/dinner", and at least one ingredient with numeric qty and unit. Raw JSON only.`

// LLMGenerator generates recipes with a text-generation model.
type LLMGenerator struct {
	textGen llm.TextGenerator
	schema  *gojsonschema.Schema
}

// NewLLMGenerator creates a Generator backed by the given model.
func NewLLMGenerator(textGen llm.TextGenerator) (*LLMGenerator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(weekPlanSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile week plan schema: %w", err)
	}
	return &LLMGenerator{textGen: textGen, schema: schema}, nil
}

// Generate prompts the capability and validates its answer. Transport
// failures are retried with exponential backoff before surfacing as an
// UpstreamError; a contract violation earns one retry with a stricter
// restatement appended, then surfaces as a ContractError.
func (g *LLMGenerator) Generate(ctx context.Context, target, tdee int, prefs domain.FoodPrefs) (domain.WeekPlan, error) {
	prompt := fmt.Sprintf(generatePrompt,
		target, tdee,
		joinOr(prefs.BreakfastLikes, "surprise the user"),
		joinOr(prefs.MainLikes, "surprise the user"),
		joinOr(prefs.Allergies, "none"),
		joinOr(prefs.Dislikes, "none"),
	)

	var lastContract *ContractError
	for attempt := 1; attempt <= contractAttempts; attempt++ {
		resp, err := g.call(ctx, prompt)
		if err != nil {
			return domain.WeekPlan{}, &UpstreamError{Cause: err}
		}

		weekPlan, err := g.parseAndValidate(resp.Content, target, tdee)
		if err == nil {
			return weekPlan, nil
		}

		cerr, ok := err.(*ContractError)
		if !ok {
			return domain.WeekPlan{}, err
		}
		lastContract = cerr
		log.Warn().Int("attempt", attempt).Str("reason", cerr.Reason).Msg("generation contract violated")
		prompt += fmt.Sprintf(strictRestatement, cerr.Reason)
	}
	return domain.WeekPlan{}, lastContract
}

func (g *LLMGenerator) call(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	operation := func() (llm.ContentResponse, error) {
		return g.textGen.GenerateContent(ctx, prompt)
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxUpstreamTries),
	)
}

// parseAndValidate is the trust boundary between "received structure" and a
// domain WeekPlan.
func (g *LLMGenerator) parseAndValidate(raw string, target, tdee int) (domain.WeekPlan, error) {
	cleaned := llm.CleanJSONBlock(raw)

	result, err := g.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		return domain.WeekPlan{}, &ContractError{Reason: "response is not valid JSON", Raw: cleaned}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return domain.WeekPlan{}, &ContractError{Reason: strings.Join(reasons, "; "), Raw: cleaned}
	}

	var wire struct {
		Say        string          `json:"say"`
		Breakfasts []domain.Recipe `json:"breakfasts"`
		Mains      []domain.Recipe `json:"mains"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return domain.WeekPlan{}, &ContractError{Reason: fmt.Sprintf("failed to decode recipes: %v", err), Raw: cleaned}
	}

	weekPlan := domain.WeekPlan{
		Breakfasts:     wire.Breakfasts,
		Mains:          wire.Mains,
		TargetCalories: target,
		TDEE:           tdee,
	}
	if err := Validate(weekPlan); err != nil {
		return domain.WeekPlan{}, err
	}
	return weekPlan, nil
}

// Validate checks the WeekPlan invariant: exactly five recipes in a 2/3
// breakfast/main split with correctly tagged, non-negative entries. It backs
// the schema check for plans built outside the LLM path.
func Validate(p domain.WeekPlan) error {
	if len(p.Breakfasts) != 2 || len(p.Mains) != 3 {
		return &ContractError{Reason: fmt.Sprintf("expected 2 breakfasts and 3 mains, got %d and %d", len(p.Breakfasts), len(p.Mains))}
	}
	for _, r := range p.Breakfasts {
		if r.MealType != domain.MealBreakfast {
			return &ContractError{Reason: fmt.Sprintf("recipe %q tagged %q in the breakfast slot", r.Name, r.MealType)}
		}
		if err := validateRecipe(r); err != nil {
			return err
		}
	}
	for _, r := range p.Mains {
		if r.MealType != domain.MealMain {
			return &ContractError{Reason: fmt.Sprintf("recipe %q tagged %q in the mains slot", r.Name, r.MealType)}
		}
		if err := validateRecipe(r); err != nil {
			return err
		}
	}
	return nil
}

func validateRecipe(r domain.Recipe) error {
	if r.Name == "" {
		return &ContractError{Reason: "recipe without a name"}
	}
	if r.Servings <= 0 {
		return &ContractError{Reason: fmt.Sprintf("recipe %q has servings %d", r.Name, r.Servings)}
	}
	n := r.Nutrition
	if n.Calories < 0 || n.GramsProtein < 0 || n.GramsCarbs < 0 || n.GramsFat < 0 {
		return &ContractError{Reason: fmt.Sprintf("recipe %q has negative nutrition values", r.Name)}
	}
	if len(r.Ingredients) == 0 {
		return &ContractError{Reason: fmt.Sprintf("recipe %q has no ingredients", r.Name)}
	}
	for _, ing := range r.Ingredients {
		if ing.Name == "" || ing.Qty < 0 {
			return &ContractError{Reason: fmt.Sprintf("recipe %q has a malformed ingredient line", r.Name)}
		}
	}
	return nil
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
