package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LoggingProvider is a decorator that writes one structured log line per
// LLM request.
type LoggingProvider struct {
	inner  Provider
	logger zerolog.Logger
}

// WithLogging wraps a Provider with request logging.
func WithLogging(p Provider, logger zerolog.Logger) Provider {
	return &LoggingProvider{
		inner:  p,
		logger: logger.With().Str("component", "llm").Logger(),
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	model := l.inner.ModelID()
	if resp != nil && resp.Model != "" {
		model = resp.Model
	}

	evt := l.logger.Info()
	if err != nil {
		evt = l.logger.Warn().Err(err)
	}
	evt = evt.
		Str("purpose", PurposeFrom(ctx)).
		Str("model", model).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Int("system_chars", len(req.System)).
		Bool("success", err == nil)
	if date := DateFrom(ctx); date != "" {
		evt = evt.Str("date", date)
	}

	if resp != nil {
		evt = evt.
			Int("input_tokens", resp.Usage.InputTokens).
			Int("output_tokens", resp.Usage.OutputTokens).
			Str("stop_reason", resp.StopReason)
		if cost := LookupCost(model); cost != nil {
			evt = evt.Float64("cost_usd", cost.Cost(resp.Usage.InputTokens, resp.Usage.OutputTokens))
		}
	}
	evt.Msg("llm request")

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
