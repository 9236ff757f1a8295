// Package engine orchestrates profile analyses: concurrency limits, retry,
// request coalescing and batch fan-out around the analyzer core.
package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/analyzer"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

const (
	// batchSize is the fan-out window: at most this many profiles of a
	// batch are scored at once.
	batchSize = 50
	// maxConcurrentAnalyses bounds in-flight provider requests across all
	// callers.
	maxConcurrentAnalyses = 20
)

// Engine is the orchestration layer over the analyzer. Safe for concurrent
// use.
type Engine struct {
	analyzer *analyzer.Analyzer
	flight   singleflight.Group
}

// New wires the provider decorators (retry over concurrency limit) and the
// analyzer core into an Engine.
func New(matcher *match.Matcher, evaluator ai.Evaluator, m *metrics.Metrics) *Engine {
	wrapped := newRetryingEvaluator(newLimitedEvaluator(evaluator, maxConcurrentAnalyses), m)
	return &Engine{
		analyzer: analyzer.New(matcher, wrapped, m),
	}
}

// AnalyzeOne scores a single profile. Concurrent requests for the same
// profile/requirements pair are coalesced into one analysis.
func (e *Engine) AnalyzeOne(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (analyzer.Analysis, error) {
	key := analyzer.CacheKey(p.ID, req)
	v, err, _ := e.flight.Do(key, func() (any, error) {
		return e.analyzer.Analyze(ctx, p, req, correlationID)
	})
	if err != nil {
		return analyzer.Analysis{}, err
	}
	return v.(analyzer.Analysis), nil
}

// AnalyzeBatch scores profiles in windows of batchSize. Batch-level
// preconditions (a non-empty profile list, valid requirements) fail the call
// before any profile is scored. Past that point, individual failures do not
// abort the batch: successes are returned in input order together with the
// failure count. Batch outcome counters belong to the caller, which knows
// the terminal status.
func (e *Engine) AnalyzeBatch(ctx context.Context, profiles []*profile.Profile, req match.Requirements, correlationID string) ([]analyzer.Analysis, int, error) {
	if len(profiles) == 0 {
		return nil, 0, fmt.Errorf("%w: batch requires at least one profile", profile.ErrInvalid)
	}
	if err := req.Validate(); err != nil {
		return nil, 0, err
	}

	results := make([]analyzer.Analysis, 0, len(profiles))
	failed := 0

	for start := 0; start < len(profiles); start += batchSize {
		end := min(start+batchSize, len(profiles))
		chunk := profiles[start:end]
		chunkResults := make([]*analyzer.Analysis, len(chunk))

		var wg sync.WaitGroup
		for i, p := range chunk {
			wg.Add(1)
			go func(i int, p *profile.Profile) {
				defer wg.Done()
				result, err := e.AnalyzeOne(ctx, p, req, correlationID)
				if err != nil {
					telemetry.Error("engine.profile_failed", map[string]any{
						"profile_id":     p.ID,
						"correlation_id": correlationID,
						"error":          err.Error(),
					})
					return
				}
				chunkResults[i] = &result
			}(i, p)
		}
		wg.Wait()

		for _, result := range chunkResults {
			if result != nil {
				results = append(results, *result)
			} else {
				failed++
			}
		}
		if err := ctx.Err(); err != nil {
			return results, failed, err
		}
	}

	telemetry.Info("engine.batch_completed", map[string]any{
		"correlation_id": correlationID,
		"profile_count":  len(profiles),
		"succeeded":      len(results),
		"failed":         failed,
	})
	return results, failed, nil
}
