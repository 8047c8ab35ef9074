// Package intake turns user replies into state updates. Extraction is a
// pluggable capability (LLM-backed or rule-based); merging and completeness
// checks are pure and provider-independent.
package intake

import (
	"strings"

	"nutrition-coach/internal/domain"
)

// Completeness tells the caller which stage gates the merged state passes.
// Merging never advances the stage counter itself.
type Completeness struct {
	ProfileGoal bool
	Prefs       bool
}

// Merge applies an extracted patch to the state field by field: present
// fields overwrite, absent fields leave captured values untouched. Repeated
// merges of the same patch are idempotent.
func Merge(state domain.CoachState, patch domain.IntakePatch) (domain.CoachState, Completeness) {
	patch = Normalize(patch)
	state.Profile = domain.ApplyProfile(state.Profile, patch.Profile)
	state.Goal = domain.ApplyGoal(state.Goal, patch.Goal)
	state.Prefs = domain.ApplyPrefs(state.Prefs, patch.Prefs)
	return state, Completeness{
		ProfileGoal: state.Profile.Complete() && state.Goal.Complete(),
		Prefs:       state.Prefs.Complete(),
	}
}

// MissingProfileSlots lists the profile/goal slots still unfilled, in a fixed
// order, for "need more info" replies.
func MissingProfileSlots(state domain.CoachState) []string {
	var missing []string
	if state.Profile.Sex == "" {
		missing = append(missing, "sex")
	}
	if state.Profile.Age <= 0 {
		missing = append(missing, "age")
	}
	if state.Profile.HeightCM <= 0 {
		missing = append(missing, "height (cm)")
	}
	if state.Profile.WeightKG <= 0 {
		missing = append(missing, "weight (kg)")
	}
	if state.Profile.Activity == "" {
		missing = append(missing, "activity level")
	}
	if state.Goal.Direction == "" {
		missing = append(missing, "goal (lose/maintain/gain)")
	}
	if state.Goal.Rate == "" {
		missing = append(missing, "pace (slow/moderate/aggressive)")
	}
	return missing
}

// Normalize maps common extractor shorthand onto the domain enums: "f"/"m"
// for sex, arbitrary casing, "loss" for "lose". Unknown values are passed
// through for validation to reject later.
func Normalize(patch domain.IntakePatch) domain.IntakePatch {
	if patch.Profile.Sex != nil {
		sex := normalizeSex(string(*patch.Profile.Sex))
		patch.Profile.Sex = &sex
	}
	if patch.Profile.Activity != nil {
		act := domain.Activity(canon(string(*patch.Profile.Activity)))
		patch.Profile.Activity = &act
	}
	if patch.Goal.Direction != nil {
		dir := normalizeDirection(string(*patch.Goal.Direction))
		patch.Goal.Direction = &dir
	}
	if patch.Goal.Rate != nil {
		rate := domain.Rate(canon(string(*patch.Goal.Rate)))
		patch.Goal.Rate = &rate
	}
	return patch
}

func normalizeSex(raw string) domain.Sex {
	switch canon(raw) {
	case "f", "female", "woman":
		return domain.SexFemale
	case "m", "male", "man":
		return domain.SexMale
	}
	return domain.Sex(canon(raw))
}

func normalizeDirection(raw string) domain.Direction {
	switch canon(raw) {
	case "lose", "loss", "cut", "deficit":
		return domain.DirectionLose
	case "gain", "bulk", "surplus":
		return domain.DirectionGain
	case "maintain", "maintenance":
		return domain.DirectionMaintain
	}
	return domain.Direction(canon(raw))
}

func canon(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}
