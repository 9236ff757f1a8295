package engine

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

const (
	retryAttempts  = 3
	retryBaseDelay = time.Second
	retryMaxDelay  = 20 * time.Second
)

// retryingEvaluator retries transient provider failures with exponential
// backoff. Non-retryable failures surface immediately.
type retryingEvaluator struct {
	base      ai.Evaluator
	metrics   *metrics.Metrics
	attempts  int
	baseDelay time.Duration
	maxDelay  time.Duration
}

func newRetryingEvaluator(base ai.Evaluator, m *metrics.Metrics) *retryingEvaluator {
	return &retryingEvaluator{
		base:      base,
		metrics:   m,
		attempts:  retryAttempts,
		baseDelay: retryBaseDelay,
		maxDelay:  retryMaxDelay,
	}
}

func (r *retryingEvaluator) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	delay := r.baseDelay
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		evaluation, err := r.base.Evaluate(ctx, p, req, correlationID)
		if err == nil {
			return evaluation, nil
		}
		lastErr = err
		if !ai.Retryable(err) || attempt == r.attempts {
			break
		}

		r.metrics.IncAIRetry()
		telemetry.Info("engine.ai_retry", map[string]any{
			"profile_id":     p.ID,
			"correlation_id": correlationID,
			"attempt":        attempt,
			"error":          err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ai.Evaluation{}, ctx.Err()
		}
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
	return ai.Evaluation{}, lastErr
}

// limitedEvaluator bounds in-flight provider requests. Analyzer cache hits
// never reach this decorator, so cached work is not throttled.
type limitedEvaluator struct {
	base ai.Evaluator
	sem  *semaphore.Weighted
}

func newLimitedEvaluator(base ai.Evaluator, limit int64) *limitedEvaluator {
	return &limitedEvaluator{
		base: base,
		sem:  semaphore.NewWeighted(limit),
	}
}

func (l *limitedEvaluator) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ai.Evaluation{}, err
	}
	defer l.sem.Release(1)
	return l.base.Evaluate(ctx, p, req, correlationID)
}
