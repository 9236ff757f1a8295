package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/metrics"
)

type fakeEvaluator struct {
	mu      sync.Mutex
	calls   int
	failFor map[string]error
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	f.mu.Lock()
	f.calls++
	err := f.failFor[p.ID]
	f.mu.Unlock()
	if err != nil {
		return ai.Evaluation{}, err
	}
	return ai.Evaluation{
		MatchScore:      80,
		ConfidenceScore: 90,
		SkillAnalysis:   map[string]any{},
		Strengths:       []string{},
		Gaps:            []string{},
		Model:           "claude-test",
		Timestamp:       time.Now().UTC(),
	}, nil
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testProfiles(n int) []*profile.Profile {
	out := make([]*profile.Profile, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &profile.Profile{
			ID:       fmt.Sprintf("p-%d", i),
			FullName: fmt.Sprintf("Candidate %d", i),
			Skills:   []string{"golang"},
		})
	}
	return out
}

func TestAnalyzeBatchPartialFailure(t *testing.T) {
	evaluator := &fakeEvaluator{failFor: map[string]error{"p-1": ai.ErrInvalidResponse}}
	e := New(match.NewMatcher(), evaluator, metrics.New())
	req := match.Requirements{RequiredSkills: []string{"golang"}}

	results, failed, err := e.AnalyzeBatch(context.Background(), testProfiles(3), req, "corr-1")
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2 (one profile failed)", len(results))
	}
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if results[0].ProfileID != "p-0" || results[1].ProfileID != "p-2" {
		t.Fatalf("result order = %s,%s, want p-0,p-2", results[0].ProfileID, results[1].ProfileID)
	}
}

func TestAnalyzeBatchRejectsEmptyInput(t *testing.T) {
	evaluator := &fakeEvaluator{}
	e := New(match.NewMatcher(), evaluator, metrics.New())

	results, failed, err := e.AnalyzeBatch(context.Background(), nil, match.Requirements{RequiredSkills: []string{"golang"}}, "corr-1")
	if !errors.Is(err, profile.ErrInvalid) {
		t.Fatalf("error = %v, want ErrInvalid", err)
	}
	if len(results) != 0 || failed != 0 {
		t.Fatalf("empty batch: results=%d failed=%d, want no work", len(results), failed)
	}
	if got := evaluator.callCount(); got != 0 {
		t.Fatalf("evaluator calls = %d, want 0", got)
	}
}

func TestAnalyzeBatchRejectsInvalidRequirements(t *testing.T) {
	evaluator := &fakeEvaluator{}
	e := New(match.NewMatcher(), evaluator, metrics.New())

	results, failed, err := e.AnalyzeBatch(context.Background(), testProfiles(3), match.Requirements{}, "corr-1")
	if !errors.Is(err, match.ErrInvalidRequirements) {
		t.Fatalf("error = %v, want ErrInvalidRequirements", err)
	}
	if len(results) != 0 || failed != 0 {
		t.Fatalf("invalid requirements: results=%d failed=%d, want no work", len(results), failed)
	}
	if got := evaluator.callCount(); got != 0 {
		t.Fatalf("evaluator calls = %d, want 0 (no profile scored)", got)
	}
}

func TestAnalyzeOneCachedAcrossCalls(t *testing.T) {
	evaluator := &fakeEvaluator{}
	e := New(match.NewMatcher(), evaluator, metrics.New())
	req := match.Requirements{RequiredSkills: []string{"golang"}}
	p := testProfiles(1)[0]

	if _, err := e.AnalyzeOne(context.Background(), p, req, "corr-1"); err != nil {
		t.Fatalf("first AnalyzeOne: %v", err)
	}
	if _, err := e.AnalyzeOne(context.Background(), p, req, "corr-2"); err != nil {
		t.Fatalf("second AnalyzeOne: %v", err)
	}
	if got := evaluator.callCount(); got != 1 {
		t.Fatalf("evaluator calls = %d, want 1 (second scoring served from cache)", got)
	}

	changed := match.Requirements{RequiredSkills: []string{"golang", "terraform"}}
	if _, err := e.AnalyzeOne(context.Background(), p, changed, "corr-3"); err != nil {
		t.Fatalf("changed AnalyzeOne: %v", err)
	}
	if got := evaluator.callCount(); got != 2 {
		t.Fatalf("evaluator calls = %d, want 2 after requirements change", got)
	}
}

type flakyEvaluator struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *flakyEvaluator) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return ai.Evaluation{}, f.err
	}
	return ai.Evaluation{MatchScore: 80, ConfidenceScore: 90, Timestamp: time.Now().UTC()}, nil
}

func TestRetryingEvaluatorRecoversFromTransientFailures(t *testing.T) {
	base := &flakyEvaluator{failures: 2, err: ai.ErrTransient}
	r := newRetryingEvaluator(base, metrics.New())
	r.baseDelay = time.Millisecond

	_, err := r.Evaluate(context.Background(), testProfiles(1)[0], match.Requirements{RequiredSkills: []string{"golang"}}, "corr-1")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryingEvaluatorGivesUpAfterMaxAttempts(t *testing.T) {
	base := &flakyEvaluator{failures: 10, err: ai.ErrTransient}
	r := newRetryingEvaluator(base, metrics.New())
	r.baseDelay = time.Millisecond

	_, err := r.Evaluate(context.Background(), testProfiles(1)[0], match.Requirements{RequiredSkills: []string{"golang"}}, "corr-1")
	if !errors.Is(err, ai.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if base.calls != retryAttempts {
		t.Fatalf("calls = %d, want %d", base.calls, retryAttempts)
	}
}

func TestRetryingEvaluatorDoesNotRetryPermanentFailures(t *testing.T) {
	base := &flakyEvaluator{failures: 10, err: ai.ErrInvalidResponse}
	r := newRetryingEvaluator(base, metrics.New())
	r.baseDelay = time.Millisecond

	_, err := r.Evaluate(context.Background(), testProfiles(1)[0], match.Requirements{RequiredSkills: []string{"golang"}}, "corr-1")
	if !errors.Is(err, ai.ErrInvalidResponse) {
		t.Fatalf("error = %v, want ErrInvalidResponse", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on permanent failure)", base.calls)
	}
}

type gaugeEvaluator struct {
	mu       sync.Mutex
	inFlight int
	peak     int
}

func (g *gaugeEvaluator) Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (ai.Evaluation, error) {
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return ai.Evaluation{MatchScore: 80, ConfidenceScore: 90, Timestamp: time.Now().UTC()}, nil
}

func TestLimitedEvaluatorBoundsConcurrency(t *testing.T) {
	base := &gaugeEvaluator{}
	l := newLimitedEvaluator(base, 4)
	req := match.Requirements{RequiredSkills: []string{"golang"}}
	profiles := testProfiles(32)

	var wg sync.WaitGroup
	for _, p := range profiles {
		wg.Add(1)
		go func(p *profile.Profile) {
			defer wg.Done()
			if _, err := l.Evaluate(context.Background(), p, req, "corr-1"); err != nil {
				t.Errorf("Evaluate: %v", err)
			}
		}(p)
	}
	wg.Wait()

	if base.peak > 4 {
		t.Fatalf("peak in-flight = %d, want <= 4", base.peak)
	}
}
