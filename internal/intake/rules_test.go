package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-coach/internal/domain"
)

func TestRuleExtractorProfile(t *testing.T) {
	e := NewRuleExtractor()

	patch, _, err := e.Extract(context.Background(),
		domain.CoachState{},
		"I'm a 30 year old female, 165cm, 60kg, moderate activity, want to lose weight")
	require.NoError(t, err)

	state, done := Merge(domain.CoachState{}, patch)
	assert.Equal(t, domain.SexFemale, state.Profile.Sex)
	assert.Equal(t, 30, state.Profile.Age)
	assert.Equal(t, 165.0, state.Profile.HeightCM)
	assert.Equal(t, 60.0, state.Profile.WeightKG)
	assert.Equal(t, domain.ActivityModerate, state.Profile.Activity)
	assert.Equal(t, domain.DirectionLose, state.Goal.Direction)
	assert.Equal(t, domain.RateModerate, state.Goal.Rate) // defaulted
	assert.True(t, done.ProfileGoal)
}

func TestRuleExtractorPartialProfile(t *testing.T) {
	e := NewRuleExtractor()

	patch, _, err := e.Extract(context.Background(), domain.CoachState{}, "male, 80kg")
	require.NoError(t, err)

	require.NotNil(t, patch.Profile.Sex)
	assert.Equal(t, domain.SexMale, *patch.Profile.Sex)
	require.NotNil(t, patch.Profile.WeightKG)
	assert.Equal(t, 80.0, *patch.Profile.WeightKG)
	assert.Nil(t, patch.Profile.Age)
	assert.Nil(t, patch.Goal.Direction)
}

func TestRuleExtractorRateKeywords(t *testing.T) {
	e := NewRuleExtractor()

	patch, _, err := e.Extract(context.Background(), domain.CoachState{}, "I want to bulk, slow and steady")
	require.NoError(t, err)
	require.NotNil(t, patch.Goal.Direction)
	assert.Equal(t, domain.DirectionGain, *patch.Goal.Direction)
	require.NotNil(t, patch.Goal.Rate)
	assert.Equal(t, domain.RateSlow, *patch.Goal.Rate)
}

func TestRuleExtractorPrefs(t *testing.T) {
	e := NewRuleExtractor()
	inPrefs := domain.CoachState{Stage: domain.StagePrefs}

	patch, _, err := e.Extract(context.Background(), inPrefs,
		"overnight oats, scrambled eggs, chickpea curry, lentil tacos, veggie stir fry, no olives, allergic to nuts")
	require.NoError(t, err)

	assert.Equal(t, []string{"overnight oats", "scrambled eggs"}, patch.Prefs.BreakfastLikes)
	assert.Equal(t, []string{"chickpea curry", "lentil tacos", "veggie stir fry"}, patch.Prefs.MainLikes)
	assert.Equal(t, []string{"olives"}, patch.Prefs.Dislikes)
	assert.Equal(t, []string{"nuts"}, patch.Prefs.Allergies)

	state, done := Merge(inPrefs, patch)
	assert.True(t, done.Prefs)
	assert.Equal(t, []string{"nuts"}, state.Prefs.Allergies)
}

func TestRuleExtractorPrefsIncomplete(t *testing.T) {
	e := NewRuleExtractor()
	inPrefs := domain.CoachState{Stage: domain.StagePrefs}

	patch, _, err := e.Extract(context.Background(), inPrefs, "porridge, toast")
	require.NoError(t, err)
	assert.Equal(t, []string{"porridge", "toast"}, patch.Prefs.BreakfastLikes)
	assert.Empty(t, patch.Prefs.MainLikes)

	_, done := Merge(inPrefs, patch)
	assert.False(t, done.Prefs)
}
