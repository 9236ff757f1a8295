// Package ai abstracts the external AI evaluator used for profile analysis.
package ai

import (
	"context"
	"errors"
	"time"

	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
)

// Evaluator abstracts AI providers for candidate/job evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, p *profile.Profile, req match.Requirements, correlationID string) (Evaluation, error)
}

// Evaluation is one provider verdict. Scores are on the provider's 0-100
// scale; callers normalize before combining with other signals.
type Evaluation struct {
	MatchScore         float64        `json:"matchScore"`
	ConfidenceScore    float64        `json:"confidenceScore"`
	SkillAnalysis      map[string]any `json:"skillAnalysis"`
	ExperienceAnalysis map[string]any `json:"experienceAnalysis"`
	Strengths          []string       `json:"strengths"`
	Gaps               []string       `json:"gaps"`
	RequestID          string         `json:"requestId"`
	Model              string         `json:"model"`
	Timestamp          time.Time      `json:"timestamp"`
	ProcessingTime     float64        `json:"processingTime"`
}

// Failure taxonomy. Callers decide retry behavior with errors.Is; only
// ErrTransient and ErrTimeout are worth retrying.
var (
	// ErrTransient covers network failures and retryable provider statuses.
	ErrTransient = errors.New("ai: transient provider failure")
	// ErrTimeout covers deadline and client-timeout failures.
	ErrTimeout = errors.New("ai: provider timeout")
	// ErrInvalidResponse covers malformed or incomplete provider output.
	ErrInvalidResponse = errors.New("ai: invalid provider response")
)

// Retryable reports whether an evaluation error is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}
