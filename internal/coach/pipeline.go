// Package coach drives the staged coaching conversation: intake, food
// preferences, then plan generation with a shopping cart. Each session moves
// through the stages in order and each operation runs under the session's
// lock, so concurrent messages for the same session serialize into turns.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/grocery"
	"nutrition-coach/internal/intake"
	"nutrition-coach/internal/plan"
	"nutrition-coach/internal/session"
)

// Recorder receives per-operation execution metrics. Implementations must
// tolerate being called concurrently.
type Recorder interface {
	RecordRun(ctx context.Context, op string, latency time.Duration, success bool) error
}

// Reply is what a stage operation hands back to the front-end. Fields beyond
// Say and Stage are populated only when the stage that produces them has run.
type Reply struct {
	Say            string              `json:"say"`
	Stage          string              `json:"stage"`
	Missing        []string            `json:"missing,omitempty"`
	TDEE           int                 `json:"tdee,omitempty"`
	TargetCalories int                 `json:"target_calories,omitempty"`
	Plan           *domain.WeekPlan    `json:"plan,omitempty"`
	ShoppingList   []domain.Ingredient `json:"shopping_list,omitempty"`
	CheckoutURL    string              `json:"checkout_url,omitempty"`
	CheckoutMode   string              `json:"checkout_mode,omitempty"`
}

// Pipeline wires the session store to the extraction, generation and
// checkout capabilities.
type Pipeline struct {
	sessions  *session.Store
	extractor intake.Extractor
	generator plan.Generator
	checkout  *grocery.Checkout
	metrics   Recorder
}

// NewPipeline creates the coordinator. metrics may be nil.
func NewPipeline(sessions *session.Store, extractor intake.Extractor, generator plan.Generator, checkout *grocery.Checkout, metrics Recorder) *Pipeline {
	return &Pipeline{
		sessions:  sessions,
		extractor: extractor,
		generator: generator,
		checkout:  checkout,
		metrics:   metrics,
	}
}

// SubmitIntake merges profile and goal details from one user message. When
// the profile and goal become complete it computes the calorie target and
// advances the session to the preferences stage; otherwise it reports which
// slots are still missing. Partial messages are fine, captured values
// survive later messages that do not mention them.
func (p *Pipeline) SubmitIntake(ctx context.Context, sessionID, text string) (Reply, error) {
	return p.timed(ctx, "intake", func() (Reply, error) {
		var reply Reply
		_, err := p.sessions.Update(sessionID, func(state *domain.CoachState) error {
			if state.Stage != domain.StageIntake {
				return &StageViolationError{Op: "intake", Current: state.Stage, Required: domain.StageIntake}
			}

			patch, say, err := p.extractor.Extract(ctx, *state, text)
			if err != nil {
				return fmt.Errorf("intake extraction: %w", err)
			}

			merged, done := intake.Merge(*state, patch)
			if done.ProfileGoal {
				target, tdee, err := domain.ComputeTarget(merged.Profile, merged.Goal)
				if err != nil {
					return err
				}
				merged.TargetCalories = target
				merged.TDEE = tdee
				merged.Stage = domain.StagePrefs
				reply = Reply{
					Say:            targetSummary(tdee, target),
					TDEE:           tdee,
					TargetCalories: target,
				}
			} else {
				missing := intake.MissingProfileSlots(merged)
				reply = Reply{
					Say:     needMoreInfo(say, missing),
					Missing: missing,
				}
			}
			*state = merged
			reply.Stage = merged.Stage.String()
			return nil
		})
		return reply, err
	})
}

// SubmitPrefs merges food preferences from one user message and advances to
// the planning stage once two breakfast and three main preferences are in.
func (p *Pipeline) SubmitPrefs(ctx context.Context, sessionID, text string) (Reply, error) {
	return p.timed(ctx, "prefs", func() (Reply, error) {
		var reply Reply
		_, err := p.sessions.Update(sessionID, func(state *domain.CoachState) error {
			if state.Stage < domain.StagePrefs {
				return &StageViolationError{Op: "preferences", Current: state.Stage, Required: domain.StagePrefs}
			}

			patch, say, err := p.extractor.Extract(ctx, *state, text)
			if err != nil {
				return fmt.Errorf("preference extraction: %w", err)
			}

			merged, done := intake.Merge(*state, patch)
			if done.Prefs && merged.Stage == domain.StagePrefs {
				merged.Stage = domain.StagePlanning
			}
			*state = merged
			reply = Reply{Stage: merged.Stage.String()}
			if done.Prefs {
				reply.Say = orDefault(say, "Preferences noted. Say the word and I will put the week's plan together.")
			} else {
				reply.Missing = missingPrefs(merged.Prefs)
				reply.Say = needMoreInfo(say, reply.Missing)
			}
			return nil
		})
		return reply, err
	})
}

// RequestPlan generates the week plan, consolidates the shopping list and
// creates a cart. A generation or aggregation failure leaves the session in
// the planning stage with its state untouched, so the user can simply retry.
func (p *Pipeline) RequestPlan(ctx context.Context, sessionID string) (Reply, error) {
	return p.timed(ctx, "plan", func() (Reply, error) {
		var reply Reply
		_, err := p.sessions.Update(sessionID, func(state *domain.CoachState) error {
			if state.Stage < domain.StagePlanning {
				return &StageViolationError{Op: "planning", Current: state.Stage, Required: domain.StagePlanning}
			}

			weekPlan, err := p.generator.Generate(ctx, state.TargetCalories, state.TDEE, state.Prefs)
			if err != nil {
				return err
			}

			shoppingList, err := domain.Aggregate(weekPlan.Recipes())
			if err != nil {
				return err
			}

			cart := p.checkout.Run(ctx, shoppingList)

			state.Plan = &weekPlan
			state.CartURL = cart.URL
			state.Stage = domain.StageDone
			reply = Reply{
				Say:            planSummary(weekPlan, cart),
				Stage:          domain.StageDone.String(),
				TDEE:           state.TDEE,
				TargetCalories: state.TargetCalories,
				Plan:           &weekPlan,
				ShoppingList:   shoppingList,
				CheckoutURL:    cart.URL,
				CheckoutMode:   cart.Mode,
			}
			return nil
		})
		return reply, err
	})
}

// Reset discards the session. The next message starts a fresh intake.
func (p *Pipeline) Reset(sessionID string) {
	p.sessions.Reset(sessionID)
}

// Snapshot returns a copy of the session's current state.
func (p *Pipeline) Snapshot(sessionID string) domain.CoachState {
	return p.sessions.GetOrCreate(sessionID)
}

func (p *Pipeline) timed(ctx context.Context, op string, fn func() (Reply, error)) (Reply, error) {
	start := time.Now()
	reply, err := fn()
	if p.metrics != nil {
		if recErr := p.metrics.RecordRun(ctx, op, time.Since(start), err == nil); recErr != nil {
			log.Warn().Str("op", op).Err(recErr).Msg("failed to record execution metrics")
		}
	}
	return reply, err
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// targetSummary always states the computed numbers; the extractor's reply
// cannot know them.
func targetSummary(tdee, target int) string {
	return fmt.Sprintf("Your estimated daily burn is %d kcal, so we will aim for %d kcal a day. Now tell me two breakfasts and three lunch or dinner dishes you enjoy, plus any allergies or foods to avoid.", tdee, target)
}

func needMoreInfo(say string, missing []string) string {
	if say != "" {
		return say
	}
	if len(missing) == 0 {
		return "Got it."
	}
	return "I still need a few details: " + strings.Join(missing, ", ") + "."
}

func missingPrefs(prefs domain.FoodPrefs) []string {
	var missing []string
	if n := 2 - len(prefs.BreakfastLikes); n > 0 {
		missing = append(missing, fmt.Sprintf("%d more breakfast idea(s)", n))
	}
	if n := 3 - len(prefs.MainLikes); n > 0 {
		missing = append(missing, fmt.Sprintf("%d more lunch/dinner idea(s)", n))
	}
	return missing
}

func planSummary(weekPlan domain.WeekPlan, cart grocery.Result) string {
	names := make([]string, 0, len(weekPlan.Breakfasts)+len(weekPlan.Mains))
	for _, r := range weekPlan.Recipes() {
		names = append(names, r.Name)
	}
	summary := fmt.Sprintf("Your week is planned: %s. Groceries are ready at %s", strings.Join(names, ", "), cart.URL)
	if cart.Mode == grocery.ModeMock {
		summary += " (demo cart)"
	}
	return summary + "."
}
