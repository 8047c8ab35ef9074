// Package domain holds the nutrition-coach entities and pure calculation
// helpers. Nothing in here performs I/O.
package domain

// Sex is the biological sex used by the basal metabolic rate formula.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Activity is a self-reported activity level.
type Activity string

const (
	ActivitySedentary  Activity = "sedentary"
	ActivityLight      Activity = "light"
	ActivityModerate   Activity = "moderate"
	ActivityActive     Activity = "active"
	ActivityVeryActive Activity = "very_active"
)

// activityFactor is the single source of truth for valid activity levels and
// their TDEE multipliers.
var activityFactor = map[Activity]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

// Direction is the target direction of a goal.
type Direction string

const (
	DirectionLose     Direction = "lose"
	DirectionMaintain Direction = "maintain"
	DirectionGain     Direction = "gain"
)

// Rate is how quickly the user wants to move toward the goal.
type Rate string

const (
	RateSlow       Rate = "slow"
	RateModerate   Rate = "moderate"
	RateAggressive Rate = "aggressive"
)

// Profile holds the physical attributes needed for calorie math. Zero values
// mean "not captured yet"; completeness is checked before any computation.
type Profile struct {
	Sex      Sex      `json:"sex,omitempty" validate:"required,oneof=male female"`
	Age      int      `json:"age,omitempty" validate:"required,gt=0,lte=120"`
	HeightCM float64  `json:"height_cm,omitempty" validate:"required,gt=0"`
	WeightKG float64  `json:"weight_kg,omitempty" validate:"required,gt=0"`
	Activity Activity `json:"activity,omitempty" validate:"required,oneof=sedentary light moderate active very_active"`
}

// Complete reports whether every profile slot has been captured.
func (p Profile) Complete() bool {
	return p.Sex != "" && p.Age > 0 && p.HeightCM > 0 && p.WeightKG > 0 && p.Activity != ""
}

// Goal describes the desired weight direction and pace.
type Goal struct {
	Direction Direction `json:"direction,omitempty" validate:"required,oneof=lose maintain gain"`
	Rate      Rate      `json:"rate,omitempty" validate:"required,oneof=slow moderate aggressive"`
}

// Complete reports whether both goal slots have been captured.
func (g Goal) Complete() bool {
	return g.Direction != "" && g.Rate != ""
}

// FoodPrefs captures what the user likes to eat and what to avoid.
// BreakfastLikes and MainLikes are ordered; Allergies and Dislikes are
// lowercase, deduplicated token sets.
type FoodPrefs struct {
	BreakfastLikes []string `json:"breakfast_likes,omitempty"`
	MainLikes      []string `json:"main_likes,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
	Dislikes       []string `json:"dislikes,omitempty"`
}

// Complete reports whether the preference lists are full: exactly two
// breakfast-likes and three main-likes.
func (p FoodPrefs) Complete() bool {
	return len(p.BreakfastLikes) == breakfastsPerWeek && len(p.MainLikes) == mainsPerWeek
}

// Ingredient is a single shopping-list line. Name is matched
// case-insensitively for aggregation; unit strings are matched exactly.
type Ingredient struct {
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
	Unit string  `json:"unit"`
}

// Nutrition holds per-serving nutrition facts for a recipe.
type Nutrition struct {
	Calories     int     `json:"calories"`
	GramsProtein float64 `json:"grams_protein"`
	GramsCarbs   float64 `json:"grams_carbs"`
	GramsFat     float64 `json:"grams_fat"`
}

// MealType tags a recipe as a breakfast or a main (lunch/dinner) dish.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealMain      MealType = "lunch/dinner"
)

// Recipe is one generated dish with its ingredient lines.
type Recipe struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Servings    int          `json:"servings"`
	Nutrition   Nutrition    `json:"nutrition"`
	MealType    MealType     `json:"meal_type"`
	DietType    string       `json:"diet_type,omitempty"`
	Allergens   []string     `json:"allergens,omitempty"`
	Ingredients []Ingredient `json:"ingredients"`
}

const (
	breakfastsPerWeek = 2
	mainsPerWeek      = 3
)

// WeekPlan is one planning cycle's output: exactly two breakfast recipes and
// three mains, plus the calorie context they were generated for.
type WeekPlan struct {
	Breakfasts     []Recipe `json:"breakfasts"`
	Mains          []Recipe `json:"mains"`
	TargetCalories int      `json:"target_calories"`
	TDEE           int      `json:"tdee"`
}

// Recipes returns all plan recipes, breakfasts first.
func (w WeekPlan) Recipes() []Recipe {
	out := make([]Recipe, 0, len(w.Breakfasts)+len(w.Mains))
	out = append(out, w.Breakfasts...)
	out = append(out, w.Mains...)
	return out
}

// Stage is a session's position in the coaching conversation.
type Stage int

const (
	StageIntake Stage = iota
	StagePrefs
	StagePlanning
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIntake:
		return "intake"
	case StagePrefs:
		return "prefs"
	case StagePlanning:
		return "planning"
	case StageDone:
		return "done"
	}
	return "unknown"
}

// CoachState is the aggregate root for one session. TDEE and TargetCalories
// are zero until the profile and goal are complete; Plan is nil until
// generated. Stage only moves forward, except on reset.
type CoachState struct {
	Profile        Profile   `json:"profile"`
	Goal           Goal      `json:"goal"`
	Prefs          FoodPrefs `json:"prefs"`
	TDEE           int       `json:"tdee,omitempty"`
	TargetCalories int       `json:"target_calories,omitempty"`
	Plan           *WeekPlan `json:"plan,omitempty"`
	CartURL        string    `json:"cart_url,omitempty"`
	Stage          Stage     `json:"stage"`
}

// Clone returns a deep copy so callers can mutate freely before committing.
func (s CoachState) Clone() CoachState {
	out := s
	out.Prefs.BreakfastLikes = append([]string(nil), s.Prefs.BreakfastLikes...)
	out.Prefs.MainLikes = append([]string(nil), s.Prefs.MainLikes...)
	out.Prefs.Allergies = append([]string(nil), s.Prefs.Allergies...)
	out.Prefs.Dislikes = append([]string(nil), s.Prefs.Dislikes...)
	if s.Plan != nil {
		plan := *s.Plan
		plan.Breakfasts = cloneRecipes(s.Plan.Breakfasts)
		plan.Mains = cloneRecipes(s.Plan.Mains)
		out.Plan = &plan
	}
	return out
}

func cloneRecipes(in []Recipe) []Recipe {
	out := append([]Recipe(nil), in...)
	for i := range out {
		out[i].Allergens = append([]string(nil), out[i].Allergens...)
		out[i].Ingredients = append([]Ingredient(nil), out[i].Ingredients...)
	}
	return out
}
