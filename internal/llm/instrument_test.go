package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutrition-coach/internal/shared"
)

type stubGenerator struct {
	resp ContentResponse
	err  error
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string) (ContentResponse, error) {
	return s.resp, s.err
}

type stubRecorder struct {
	metas []shared.AgentMeta
}

func (r *stubRecorder) RecordMeta(_ context.Context, meta shared.AgentMeta) error {
	r.metas = append(r.metas, meta)
	return nil
}

func TestWithUsageRecording(t *testing.T) {
	inner := &stubGenerator{resp: ContentResponse{
		Content: "ok",
		Usage:   shared.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Model: "test-model"},
	}}
	rec := &stubRecorder{}

	gen := WithUsageRecording("coach", inner, rec)
	resp, err := gen.GenerateContent(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	require.Len(t, rec.metas, 1)
	assert.Equal(t, "coach", rec.metas[0].AgentName)
	assert.Equal(t, "test-model", rec.metas[0].Usage.Model)
	assert.Equal(t, 10, rec.metas[0].Usage.PromptTokens)
}

func TestWithUsageRecordingSkipsFailedCalls(t *testing.T) {
	inner := &stubGenerator{err: errors.New("boom")}
	rec := &stubRecorder{}

	gen := WithUsageRecording("coach", inner, rec)
	_, err := gen.GenerateContent(context.Background(), "prompt")
	require.Error(t, err)
	assert.Empty(t, rec.metas)
}
