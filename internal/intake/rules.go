package intake

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"nutrition-coach/internal/domain"
)

// RuleExtractor is the offline slot extractor: plain regex and keyword
// matching over the reply, no network. It is selected when no LLM provider is
// configured and doubles as the deterministic extractor in tests.
type RuleExtractor struct{}

// NewRuleExtractor creates a rule-based Extractor.
func NewRuleExtractor() *RuleExtractor { return &RuleExtractor{} }

var (
	ageRe    = regexp.MustCompile(`(\d{1,3})\s*(?:years?|yo\b|yrs?\b)`)
	heightRe = regexp.MustCompile(`(\d{3})\s*(?:cm|centimet)`)
	weightRe = regexp.MustCompile(`(\d{2,3}(?:\.\d+)?)\s*(?:kg|kilo)`)
	splitRe  = regexp.MustCompile(`[\n,;]+`)
)

// Extract fills profile and goal slots while the session is in intake, and
// preference slots afterwards. The follow-up question is left to the caller.
func (e *RuleExtractor) Extract(_ context.Context, state domain.CoachState, text string) (domain.IntakePatch, string, error) {
	if state.Stage >= domain.StagePrefs {
		return domain.IntakePatch{Prefs: parsePrefs(text)}, "", nil
	}
	patch := parseProfileGoal(text)
	return patch, "", nil
}

func parseProfileGoal(text string) domain.IntakePatch {
	lower := strings.ToLower(text)
	var patch domain.IntakePatch

	// "female" contains "male", so check it first.
	if strings.Contains(lower, "female") || strings.Contains(lower, "woman") {
		sex := domain.SexFemale
		patch.Profile.Sex = &sex
	} else if strings.Contains(lower, "male") || strings.Contains(lower, " man") {
		sex := domain.SexMale
		patch.Profile.Sex = &sex
	}

	if m := ageRe.FindStringSubmatch(lower); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil {
			patch.Profile.Age = &age
		}
	}
	if m := heightRe.FindStringSubmatch(lower); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			patch.Profile.HeightCM = &h
		}
	}
	if m := weightRe.FindStringSubmatch(lower); m != nil {
		if w, err := strconv.ParseFloat(m[1], 64); err == nil {
			patch.Profile.WeightKG = &w
		}
	}

	if act, ok := matchActivity(lower); ok {
		patch.Profile.Activity = &act
	}

	directionSet := false
	switch {
	case containsAny(lower, "lose", "deficit", "cut", "fat loss"):
		dir := domain.DirectionLose
		patch.Goal.Direction = &dir
		directionSet = true
	case containsAny(lower, "gain", "bulk", "surplus"):
		dir := domain.DirectionGain
		patch.Goal.Direction = &dir
		directionSet = true
	case containsAny(lower, "maintain", "keep my weight"):
		dir := domain.DirectionMaintain
		patch.Goal.Direction = &dir
		directionSet = true
	}

	switch {
	case containsAny(lower, "aggressive", "fast", "quick"):
		rate := domain.RateAggressive
		patch.Goal.Rate = &rate
	case containsAny(lower, "slow", "steady", "gradual"):
		rate := domain.RateSlow
		patch.Goal.Rate = &rate
	case directionSet:
		// A stated goal without a pace defaults to a moderate one.
		rate := domain.RateModerate
		patch.Goal.Rate = &rate
	}

	return patch
}

func matchActivity(lower string) (domain.Activity, bool) {
	switch {
	case strings.Contains(lower, "very active") || strings.Contains(lower, "very_active"):
		return domain.ActivityVeryActive, true
	case strings.Contains(lower, "sedentary"):
		return domain.ActivitySedentary, true
	case strings.Contains(lower, "light"):
		return domain.ActivityLight, true
	case strings.Contains(lower, "moderate"):
		return domain.ActivityModerate, true
	case strings.Contains(lower, "active"):
		return domain.ActivityActive, true
	}
	return "", false
}

// parsePrefs splits the reply into items: "no X" marks a dislike, anything
// mentioning an allergy goes to allergies, the first two remaining foods
// become breakfasts and the next three mains.
func parsePrefs(text string) domain.PrefsPatch {
	var patch domain.PrefsPatch
	var foods []string

	for _, raw := range splitRe.Split(text, -1) {
		item := strings.Trim(raw, " .")
		if item == "" {
			continue
		}
		lower := strings.ToLower(item)
		if strings.HasPrefix(lower, "no ") {
			patch.Dislikes = append(patch.Dislikes, strings.TrimSpace(item[3:]))
			continue
		}
		if strings.Contains(lower, "allerg") {
			patch.Allergies = append(patch.Allergies, allergyToken(item))
			continue
		}
		foods = append(foods, item)
	}

	if len(foods) > 0 {
		if len(foods) > 5 {
			foods = foods[:5]
		}
		if len(foods) <= 2 {
			patch.BreakfastLikes = foods
		} else {
			patch.BreakfastLikes = foods[:2]
			patch.MainLikes = foods[2:]
		}
	}
	return patch
}

// allergyToken strips the "allergic to" phrasing so only the allergen is kept.
func allergyToken(item string) string {
	lower := strings.ToLower(item)
	for _, prefix := range []string{"allergic to ", "allergy to ", "allergies:", "allergy:"} {
		if idx := strings.Index(lower, prefix); idx >= 0 {
			return strings.TrimSpace(item[idx+len(prefix):])
		}
	}
	return strings.TrimSpace(item)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
