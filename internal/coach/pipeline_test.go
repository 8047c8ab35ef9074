package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/grocery"
	"nutrition-coach/internal/intake"
	"nutrition-coach/internal/plan"
	"nutrition-coach/internal/session"
)

type failingGenerator struct {
	err error
}

func (g *failingGenerator) Generate(_ context.Context, _, _ int, _ domain.FoodPrefs) (domain.WeekPlan, error) {
	return domain.WeekPlan{}, g.err
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []string
}

func (r *memoryRecorder) RecordRun(_ context.Context, op string, _ time.Duration, success bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !success {
		op += ":failed"
	}
	r.runs = append(r.runs, op)
	return nil
}

func newTestPipeline(t *testing.T, generator plan.Generator, metrics Recorder) *Pipeline {
	t.Helper()
	store := session.NewStore(0)
	t.Cleanup(store.Close)
	if generator == nil {
		generator = plan.NewOfflineGenerator()
	}
	checkout := grocery.NewCheckout(nil, "https://groceries.example.com/cart")
	return NewPipeline(store, intake.NewRuleExtractor(), generator, checkout, metrics)
}

const intakeMessage = "I'm a 30 year old female, 165cm, 60kg, moderate activity, want to lose weight"

const prefsMessage = "overnight oats, greek yogurt, chicken stir fry, salmon bowls, lentil curry, allergic to nuts, no cilantro"

func TestPipelineFullConversation(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	reply, err := p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)
	assert.Equal(t, "prefs", reply.Stage)
	assert.Equal(t, 2046, reply.TDEE)
	assert.Equal(t, 1546, reply.TargetCalories)
	assert.Empty(t, reply.Missing)
	assert.Contains(t, reply.Say, "1546")

	reply, err = p.SubmitPrefs(ctx, "s1", prefsMessage)
	require.NoError(t, err)
	assert.Equal(t, "planning", reply.Stage)
	assert.Empty(t, reply.Missing)

	reply, err = p.RequestPlan(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "done", reply.Stage)
	require.NotNil(t, reply.Plan)
	assert.Len(t, reply.Plan.Breakfasts, 2)
	assert.Len(t, reply.Plan.Mains, 3)
	assert.NotEmpty(t, reply.ShoppingList)
	assert.Equal(t, grocery.ModeMock, reply.CheckoutMode)
	assert.Contains(t, reply.CheckoutURL, "https://groceries.example.com/cart")

	// The shopping list is consolidated: no repeated name and unit pair.
	seen := map[[2]string]bool{}
	for _, line := range reply.ShoppingList {
		key := [2]string{line.Name, line.Unit}
		assert.False(t, seen[key], "duplicate shopping line %v", key)
		seen[key] = true
	}

	state := p.Snapshot("s1")
	assert.Equal(t, domain.StageDone, state.Stage)
	require.NotNil(t, state.Plan)
	assert.Equal(t, reply.CheckoutURL, state.CartURL)
}

func TestPipelineIncrementalIntake(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	reply, err := p.SubmitIntake(ctx, "s1", "I'm 30 years old, 165cm and 60kg")
	require.NoError(t, err)
	assert.Equal(t, "intake", reply.Stage)
	assert.Contains(t, reply.Missing, "sex")
	assert.Contains(t, reply.Missing, "activity level")
	assert.Contains(t, reply.Say, "sex")
	assert.Zero(t, reply.TDEE)

	reply, err = p.SubmitIntake(ctx, "s1", "female, moderate activity, I want to lose weight at a moderate pace")
	require.NoError(t, err)
	assert.Equal(t, "prefs", reply.Stage)
	assert.Equal(t, 2046, reply.TDEE)

	// Earlier answers survived the second message.
	state := p.Snapshot("s1")
	assert.Equal(t, 30, state.Profile.Age)
	assert.Equal(t, 165.0, state.Profile.HeightCM)
}

func TestPipelineStageViolations(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	var stageErr *StageViolationError

	_, err := p.SubmitPrefs(ctx, "s1", prefsMessage)
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StageIntake, stageErr.Current)
	assert.Equal(t, domain.StagePrefs, stageErr.Required)

	_, err = p.RequestPlan(ctx, "s1")
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, domain.StagePlanning, stageErr.Required)

	_, err = p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)
	_, err = p.SubmitIntake(ctx, "s1", intakeMessage)
	require.ErrorAs(t, err, &stageErr, "intake is closed once the target is set")
}

func TestPipelinePartialPrefs(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	_, err := p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)

	reply, err := p.SubmitPrefs(ctx, "s1", "I'm allergic to nuts")
	require.NoError(t, err)
	assert.Equal(t, "prefs", reply.Stage)
	require.NotEmpty(t, reply.Missing)
	assert.Contains(t, reply.Missing[0], "breakfast")

	reply, err = p.SubmitPrefs(ctx, "s1", "overnight oats, greek yogurt, chicken stir fry, salmon bowls, lentil curry")
	require.NoError(t, err)
	assert.Equal(t, "planning", reply.Stage)

	state := p.Snapshot("s1")
	assert.Equal(t, []string{"nuts"}, state.Prefs.Allergies)
}

func TestPipelineGenerationFailureKeepsState(t *testing.T) {
	genErr := &plan.UpstreamError{Cause: errors.New("provider down")}
	p := newTestPipeline(t, &failingGenerator{err: genErr}, nil)
	ctx := context.Background()

	_, err := p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)
	_, err = p.SubmitPrefs(ctx, "s1", prefsMessage)
	require.NoError(t, err)

	_, err = p.RequestPlan(ctx, "s1")
	var upstream *plan.UpstreamError
	require.ErrorAs(t, err, &upstream)

	// The failure did not consume the session: still at planning, no plan.
	state := p.Snapshot("s1")
	assert.Equal(t, domain.StagePlanning, state.Stage)
	assert.Nil(t, state.Plan)
	assert.Empty(t, state.CartURL)
}

func TestPipelineReset(t *testing.T) {
	p := newTestPipeline(t, nil, nil)
	ctx := context.Background()

	_, err := p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)

	p.Reset("s1")

	state := p.Snapshot("s1")
	assert.Equal(t, domain.StageIntake, state.Stage)
	assert.False(t, state.Profile.Complete())
}

func TestPipelineRecordsMetrics(t *testing.T) {
	rec := &memoryRecorder{}
	p := newTestPipeline(t, nil, rec)
	ctx := context.Background()

	_, err := p.SubmitIntake(ctx, "s1", intakeMessage)
	require.NoError(t, err)
	_, err = p.RequestPlan(ctx, "s1")
	require.Error(t, err)

	assert.Equal(t, []string{"intake", "plan:failed"}, rec.runs)
}
