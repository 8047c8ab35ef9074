package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-coach/internal/domain"
	"nutrition-coach/internal/llm"
)

type stubTextGen struct {
	content string
	err     error
	prompts []string
}

func (s *stubTextGen) GenerateContent(_ context.Context, prompt string) (llm.ContentResponse, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return llm.ContentResponse{}, s.err
	}
	return llm.ContentResponse{Content: s.content}, nil
}

func TestLLMExtractor(t *testing.T) {
	gen := &stubTextGen{content: "```json\n" + `{
		"say": "What's your height?",
		"profile": {"sex": "female", "age": 30},
		"goal": {"direction": "lose"}
	}` + "\n```"}

	e := NewLLMExtractor(gen)
	patch, say, err := e.Extract(context.Background(), domain.CoachState{}, "I'm a 30 year old woman")
	require.NoError(t, err)

	assert.Equal(t, "What's your height?", say)
	require.NotNil(t, patch.Profile.Sex)
	assert.Equal(t, domain.SexFemale, *patch.Profile.Sex)
	require.NotNil(t, patch.Profile.Age)
	assert.Equal(t, 30, *patch.Profile.Age)
	assert.Nil(t, patch.Profile.HeightCM)

	// The known state goes into the prompt, the plan does not.
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "I'm a 30 year old woman")
	assert.NotContains(t, gen.prompts[0], "breakfasts\":")
}

func TestLLMExtractorUpstreamError(t *testing.T) {
	e := NewLLMExtractor(&stubTextGen{err: errors.New("timeout")})
	_, _, err := e.Extract(context.Background(), domain.CoachState{}, "hi")
	require.Error(t, err)
}

func TestLLMExtractorMalformedJSON(t *testing.T) {
	e := NewLLMExtractor(&stubTextGen{content: "sorry, I can't"})
	_, _, err := e.Extract(context.Background(), domain.CoachState{}, "hi")
	require.Error(t, err)
}
