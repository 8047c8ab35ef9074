package domain

import (
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinTargetCalories is the safety floor: ComputeTarget never returns a daily
// target below this, regardless of how aggressive the requested deficit is.
const MinTargetCalories = 1200

// Fixed daily deltas (kcal) per rate category.
var (
	lossDelta = map[Rate]int{RateSlow: 250, RateModerate: 500, RateAggressive: 750}
	gainDelta = map[Rate]int{RateSlow: 125, RateModerate: 250, RateAggressive: 500}
)

var validate = validator.New()

// ComputeBasal returns the resting metabolic rate (kcal/day) via
// Mifflin-St Jeor. The constant term branches on sex.
func ComputeBasal(p Profile) (float64, error) {
	if err := validateStruct("profile", p); err != nil {
		return 0, err
	}
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.Age)
	if p.Sex == SexMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	return bmr, nil
}

// ComputeTarget returns the daily calorie target and the maintenance (TDEE)
// calories for a complete profile and goal. The target is the maintenance
// calories shifted by the goal's fixed daily delta and clamped to
// MinTargetCalories.
func ComputeTarget(p Profile, g Goal) (target, tdee int, err error) {
	bmr, err := ComputeBasal(p)
	if err != nil {
		return 0, 0, err
	}
	if err := validateStruct("goal", g); err != nil {
		return 0, 0, err
	}

	tdee = int(math.Round(bmr * activityFactor[p.Activity]))

	switch g.Direction {
	case DirectionLose:
		target = tdee - lossDelta[g.Rate]
	case DirectionGain:
		target = tdee + gainDelta[g.Rate]
	default:
		target = tdee
	}
	if target < MinTargetCalories {
		target = MinTargetCalories
	}
	return target, tdee, nil
}

// validateStruct maps the first validator failure onto a ValidationError with
// a caller-friendly field path.
func validateStruct(name string, v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ValidationError{Field: name, Message: err.Error()}
	}
	fe := verrs[0]
	field := name + "." + strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return &ValidationError{Field: field, Message: "missing required value"}
	}
	return &ValidationError{Field: field, Message: "value out of range (" + fe.Tag() + ")"}
}
