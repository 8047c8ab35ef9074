package domain

import "strings"

// Patch types mirror the entities with all-optional fields. A nil (or empty)
// patch field leaves the corresponding state field untouched; merging the
// same patch twice is a no-op. This keeps slot-filling independent of any
// particular extractor's output shape.

// ProfilePatch is a partial Profile update.
type ProfilePatch struct {
	Sex      *Sex      `json:"sex,omitempty"`
	Age      *int      `json:"age,omitempty"`
	HeightCM *float64  `json:"height_cm,omitempty"`
	WeightKG *float64  `json:"weight_kg,omitempty"`
	Activity *Activity `json:"activity,omitempty"`
}

// GoalPatch is a partial Goal update.
type GoalPatch struct {
	Direction *Direction `json:"direction,omitempty"`
	Rate      *Rate      `json:"rate,omitempty"`
}

// PrefsPatch is a partial FoodPrefs update. The like-lists replace the state
// lists when non-empty; allergies and dislikes are unioned.
type PrefsPatch struct {
	BreakfastLikes []string `json:"breakfast_likes,omitempty"`
	MainLikes      []string `json:"main_likes,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
	Dislikes       []string `json:"dislikes,omitempty"`
}

// IntakePatch bundles everything one extraction turn may produce.
type IntakePatch struct {
	Profile ProfilePatch `json:"profile"`
	Goal    GoalPatch    `json:"goal"`
	Prefs   PrefsPatch   `json:"prefs"`
}

// ApplyProfile merges a patch into a profile. Present fields overwrite,
// absent fields never clear captured values.
func ApplyProfile(p Profile, patch ProfilePatch) Profile {
	if patch.Sex != nil {
		p.Sex = *patch.Sex
	}
	if patch.Age != nil {
		p.Age = *patch.Age
	}
	if patch.HeightCM != nil {
		p.HeightCM = *patch.HeightCM
	}
	if patch.WeightKG != nil {
		p.WeightKG = *patch.WeightKG
	}
	if patch.Activity != nil {
		p.Activity = *patch.Activity
	}
	return p
}

// ApplyGoal merges a patch into a goal.
func ApplyGoal(g Goal, patch GoalPatch) Goal {
	if patch.Direction != nil {
		g.Direction = *patch.Direction
	}
	if patch.Rate != nil {
		g.Rate = *patch.Rate
	}
	return g
}

// ApplyPrefs merges a patch into food preferences. Like-lists are trimmed to
// the plan shape (two breakfasts, three mains); a later partial merge with
// empty lists never truncates lists a previous turn filled.
func ApplyPrefs(p FoodPrefs, patch PrefsPatch) FoodPrefs {
	if len(patch.BreakfastLikes) > 0 {
		p.BreakfastLikes = capList(dedupe(patch.BreakfastLikes), breakfastsPerWeek)
	}
	if len(patch.MainLikes) > 0 {
		p.MainLikes = capList(dedupe(patch.MainLikes), mainsPerWeek)
	}
	p.Allergies = mergeTokens(p.Allergies, patch.Allergies)
	p.Dislikes = mergeTokens(p.Dislikes, patch.Dislikes)
	return p
}

func capList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		key := strings.ToLower(it)
		if it == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// mergeTokens unions incoming free-text tokens into an existing set,
// lowercased and deduplicated, preserving first-seen order.
func mergeTokens(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range incoming {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
