package intake

import (
	"context"
	"encoding/json"
	"fmt"

	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/llm"
)

// Extractor is the slot-extraction capability: best effort, fields it cannot
// infer are simply omitted from the patch, never null-overwritten.
type Extractor interface {
	Extract(ctx context.Context, state domain.CoachState, text string) (domain.IntakePatch, string, error)
}

const extractPrompt = `You are a concise nutrition intake assistant.
Update only the profile, goal, and food preference fields you can infer from the latest reply.
Ask exactly one short follow-up question when mandatory data is missing.
Mandatory before planning: sex (male/female), age, height_cm, weight_kg,
activity (sedentary/light/moderate/active/very_active),
direction (lose/maintain/gain), rate (slow/moderate/aggressive).
For preferences, elicit exactly two breakfasts and three lunch/dinner ideas, plus allergies or dislikes.

Return ONLY a raw JSON object, no markdown, with this shape (omit fields you cannot infer):
{
  "say": "one short sentence or question",
  "profile": {"sex": "...", "age": 0, "height_cm": 0, "weight_kg": 0, "activity": "..."},
  "goal": {"direction": "...", "rate": "..."},
  "prefs": {"breakfast_likes": [], "main_likes": [], "allergies": [], "dislikes": []}
}

Known state: %s
New user reply: %q`

// LLMExtractor extracts slots with a text-generation model.
type LLMExtractor struct {
	textGen llm.TextGenerator
}

// NewLLMExtractor creates an Extractor backed by the given model.
func NewLLMExtractor(textGen llm.TextGenerator) *LLMExtractor {
	return &LLMExtractor{textGen: textGen}
}

// Extract prompts the model with the known state and the new reply and parses
// the returned patch.
func (e *LLMExtractor) Extract(ctx context.Context, state domain.CoachState, text string) (domain.IntakePatch, string, error) {
	known, err := summarizeState(state)
	if err != nil {
		return domain.IntakePatch{}, "", err
	}

	resp, err := e.textGen.GenerateContent(ctx, fmt.Sprintf(extractPrompt, known, text))
	if err != nil {
		return domain.IntakePatch{}, "", fmt.Errorf("slot extraction failed: %w", err)
	}

	var out struct {
		Say string `json:"say"`
		domain.IntakePatch
	}
	cleaned := llm.CleanJSONBlock(resp.Content)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return domain.IntakePatch{}, "", fmt.Errorf("failed to parse extraction response: %w. Response: %s", err, cleaned)
	}
	return out.IntakePatch, out.Say, nil
}

// summarizeState keeps the prompt payload small: the plan and cart link are
// irrelevant to slot extraction.
func summarizeState(state domain.CoachState) (string, error) {
	state.Plan = nil
	state.CartURL = ""
	data, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to summarize state: %w", err)
	}
	return string(data), nil
}
