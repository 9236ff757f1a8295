// Package analyzer combines the experience, skill and AI signals into one
// scored profile analysis.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

// Signal weights. They sum to 1 so the combined score stays on the unit
// scale before presentation scaling.
const (
	weightExperience = 0.3
	weightSkills     = 0.4
	weightAI         = 0.3

	// minMatchScore is the experience threshold for meetsRequirements.
	minMatchScore = 0.7
	// minConfidenceScore is the presentation-scale floor below which a
	// low-confidence warning is logged.
	minConfidenceScore = 75.0

	cacheSize = 1000
	cacheTTL  = time.Hour
)

// ExperienceAnalysis reports the rule-based experience fit.
type ExperienceAnalysis struct {
	Score             float64 `json:"score"`
	TotalMonths       int     `json:"totalMonths"`
	MeetsRequirements bool    `json:"meetsRequirements"`
}

// SkillAnalysis reports the TF-IDF skill fit with its gap details.
type SkillAnalysis struct {
	Score            float64                `json:"score"`
	MatchedRequired  []string               `json:"matchedRequired"`
	MatchedPreferred []string               `json:"matchedPreferred"`
	MissingCritical  []string               `json:"missingCritical"`
	Recommendations  []match.Recommendation `json:"recommendations"`
}

// AIInsights reports the provider verdict.
type AIInsights struct {
	Score            float64        `json:"score"`
	Analysis         map[string]any `json:"analysis"`
	KeyStrengths     []string       `json:"keyStrengths"`
	ImprovementAreas []string       `json:"improvementAreas"`
}

// Metadata carries provenance for one analysis.
type Metadata struct {
	Timestamp      time.Time `json:"timestamp"`
	ModelVersion   string    `json:"modelVersion"`
	ProcessingTime float64   `json:"processingTime"`
}

// Analysis is the complete multi-signal result for one profile. Scores are on
// the presentation scale (0-100, two decimals).
type Analysis struct {
	ProfileID         string             `json:"profileId"`
	OverallMatchScore float64            `json:"overallMatchScore"`
	ConfidenceScore   float64            `json:"confidenceScore"`
	Experience        ExperienceAnalysis `json:"experienceAnalysis"`
	Skills            SkillAnalysis      `json:"skillAnalysis"`
	AIInsights        AIInsights         `json:"aiInsights"`
	Metadata          Metadata           `json:"metadata"`
}

// snapshot returns a copy that shares no slices or maps with the receiver.
// The cache stores and serves snapshots so callers own their result
// outright and cannot corrupt a cached entry.
func (a Analysis) snapshot() Analysis {
	out := a
	out.Skills.MatchedRequired = copyStrings(a.Skills.MatchedRequired)
	out.Skills.MatchedPreferred = copyStrings(a.Skills.MatchedPreferred)
	out.Skills.MissingCritical = copyStrings(a.Skills.MissingCritical)
	out.Skills.Recommendations = append([]match.Recommendation(nil), a.Skills.Recommendations...)
	for i := range out.Skills.Recommendations {
		out.Skills.Recommendations[i].Prerequisites = copyStrings(out.Skills.Recommendations[i].Prerequisites)
	}
	out.AIInsights.Analysis = copyAnyMap(a.AIInsights.Analysis)
	out.AIInsights.KeyStrengths = copyStrings(a.AIInsights.KeyStrengths)
	out.AIInsights.ImprovementAreas = copyStrings(a.AIInsights.ImprovementAreas)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = copyAnyValue(v)
	}
	return out
}

func copyAnyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyAnyMap(val)
	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = copyAnyValue(item)
		}
		return items
	default:
		return v
	}
}

// Analyzer scores profiles against requirements. Safe for concurrent use.
type Analyzer struct {
	matcher   *match.Matcher
	evaluator ai.Evaluator
	metrics   *metrics.Metrics
	cache     *expirable.LRU[string, Analysis]
}

// New constructs an Analyzer with a bounded TTL result cache.
func New(matcher *match.Matcher, evaluator ai.Evaluator, m *metrics.Metrics) *Analyzer {
	return &Analyzer{
		matcher:   matcher,
		evaluator: evaluator,
		metrics:   m,
		cache:     expirable.NewLRU[string, Analysis](cacheSize, nil, cacheTTL),
	}
}

// CacheKey returns the result-cache key for a profile/requirements pair.
func CacheKey(profileID string, req match.Requirements) string {
	return profileID + ":" + req.Fingerprint()
}

// Analyze validates the inputs, runs the three scoring signals and combines
// them. Results are cached per profile/requirements pair; failed analyses are
// never cached.
func (a *Analyzer) Analyze(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (Analysis, error) {
	if err := p.Validate(); err != nil {
		return Analysis{}, err
	}
	if err := req.Validate(); err != nil {
		return Analysis{}, err
	}

	key := CacheKey(p.ID, req)
	if cached, ok := a.cache.Get(key); ok {
		a.metrics.IncCacheHit()
		telemetry.Info("analysis.cache_hit", map[string]any{
			"profile_id":     p.ID,
			"correlation_id": correlationID,
		})
		return cached.snapshot(), nil
	}
	a.metrics.IncCacheMiss()

	a.metrics.IncAnalysisStarted()
	start := time.Now()

	totalMonths := p.TotalExperienceMonths()
	experienceScore := experienceMatch(totalMonths, req.MinExperienceMonths, req.MaxExperienceMonths)

	var (
		skillResult match.Result
		evaluation  ai.Evaluation
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		skillResult = a.matcher.Match(p.AllSkills(), req)
		return nil
	})
	group.Go(func() error {
		a.metrics.IncAIRequest()
		var err error
		evaluation, err = a.evaluator.Evaluate(groupCtx, p, req, correlationID)
		if err != nil {
			a.metrics.IncAIFailure()
			return fmt.Errorf("ai evaluation: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		a.metrics.IncAnalysisFailed()
		telemetry.Error("analysis.failed", map[string]any{
			"profile_id":     p.ID,
			"correlation_id": correlationID,
			"error":          err.Error(),
		})
		return Analysis{}, err
	}

	// Provider scores arrive on a 0-100 scale; bring them to the unit
	// scale before weighting.
	aiMatch := evaluation.MatchScore / 100
	aiConfidence := evaluation.ConfidenceScore / 100

	combined := experienceScore*weightExperience +
		skillResult.OverallMatchScore*weightSkills +
		aiMatch*weightAI
	confidence := math.Min(skillResult.ConfidenceScore, aiConfidence)

	result := Analysis{
		ProfileID:         p.ID,
		OverallMatchScore: round2(combined * 100),
		ConfidenceScore:   round2(confidence * 100),
		Experience: ExperienceAnalysis{
			Score:             round2(experienceScore * 100),
			TotalMonths:       totalMonths,
			MeetsRequirements: experienceScore >= minMatchScore,
		},
		Skills: SkillAnalysis{
			Score:            round2(skillResult.OverallMatchScore * 100),
			MatchedRequired:  skillResult.MatchedRequired,
			MatchedPreferred: skillResult.MatchedPreferred,
			MissingCritical:  skillResult.MissingCritical,
			Recommendations:  skillResult.Recommendations,
		},
		AIInsights: AIInsights{
			Score:            round2(evaluation.MatchScore),
			Analysis:         evaluation.SkillAnalysis,
			KeyStrengths:     evaluation.Strengths,
			ImprovementAreas: evaluation.Gaps,
		},
		Metadata: Metadata{
			Timestamp:      evaluation.Timestamp,
			ModelVersion:   evaluation.Model,
			ProcessingTime: evaluation.ProcessingTime,
		},
	}

	a.cache.Add(key, result.snapshot())
	a.metrics.IncAnalysisCompleted()
	a.metrics.ObserveAnalysisDurationMs(float64(time.Since(start).Milliseconds()))

	if result.ConfidenceScore < minConfidenceScore {
		telemetry.Info("analysis.low_confidence", map[string]any{
			"profile_id":       p.ID,
			"correlation_id":   correlationID,
			"confidence_score": result.ConfidenceScore,
		})
	}
	telemetry.Info("analysis.completed", map[string]any{
		"profile_id":       p.ID,
		"correlation_id":   correlationID,
		"match_score":      result.OverallMatchScore,
		"confidence_score": result.ConfidenceScore,
	})
	return result, nil
}

// experienceMatch scores total experience against the requirement band on
// the unit scale. Below the minimum the score ramps linearly; above the
// maximum it degrades linearly with a 0.7 floor.
func experienceMatch(totalMonths, minMonths, maxMonths int) float64 {
	if minMonths > 0 && totalMonths < minMonths {
		return math.Max(0, float64(totalMonths)/float64(minMonths))
	}
	if maxMonths > 0 && totalMonths > maxMonths {
		return math.Max(minMatchScore, 1-float64(totalMonths-maxMonths)/float64(maxMonths))
	}
	return 1.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
