package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/dailyq/dailyq/internal/logging"
)

// RetryProvider re-sends a request after transient failures, waiting with
// jittered exponential backoff. An unusable answer gets one more attempt;
// rate limits, outages and network errors get up to MaxAttempts.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps p. MaxAttempts below 1 means a single attempt.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	log := logging.FromContext(ctx)
	retriedInvalid := false

	for attempt := 1; ; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if attempt == r.config.MaxAttempts || !Retryable(err) {
			return nil, err
		}

		var invalid *ErrInvalidResponse
		if errors.As(err, &invalid) {
			if retriedInvalid {
				return nil, err
			}
			retriedInvalid = true
		}

		wait := r.wait(attempt, err)
		log.Debug().Err(err).
			Str("purpose", PurposeFrom(ctx)).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("llm request failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

// wait returns the pause before the attempt after the given one. A
// vendor-supplied Retry-After wins over the computed backoff.
func (r *RetryProvider) wait(attempt int, err error) time.Duration {
	var limited *ErrRateLimit
	if errors.As(err, &limited) && limited.RetryAfter > 0 {
		return limited.RetryAfter
	}
	d := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt-1))
	d = math.Min(d, float64(r.config.MaxWait))
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(d * jitter)
}
