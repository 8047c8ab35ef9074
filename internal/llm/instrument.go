package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"nutrition-coach/internal/shared"
)

// UsageRecorder receives the token accounting of one capability call.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

type instrumentedGenerator struct {
	name     string
	inner    TextGenerator
	recorder UsageRecorder
}

// WithUsageRecording wraps a TextGenerator so every call's token usage and
// latency are recorded under the given agent name. Recording failures are
// logged, never surfaced to the caller.
func WithUsageRecording(name string, inner TextGenerator, recorder UsageRecorder) TextGenerator {
	return &instrumentedGenerator{name: name, inner: inner, recorder: recorder}
}

func (g *instrumentedGenerator) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	start := time.Now()
	resp, err := g.inner.GenerateContent(ctx, prompt)
	if err != nil {
		return resp, err
	}

	meta := shared.AgentMeta{
		AgentName: g.name,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if recErr := g.recorder.RecordMeta(ctx, meta); recErr != nil {
		log.Warn().Str("agent", g.name).Err(recErr).Msg("failed to record token usage")
	}
	return resp, nil
}

// Close closes the wrapped generator when it holds resources.
func (g *instrumentedGenerator) Close() error {
	if closer, ok := g.inner.(Closer); ok {
		return closer.Close()
	}
	return nil
}
