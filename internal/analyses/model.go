package analyses

import (
	"time"

	"analysis-backend/internal/analyzer"
	"analysis-backend/internal/match"
)

// BatchAnalysis represents one batch scoring job and its stored outcome.
type BatchAnalysis struct {
	ID             string              `json:"id"`
	CorrelationID  string              `json:"correlationId"`
	Status         string              `json:"status"`
	ProfileCount   int                 `json:"profileCount"`
	SucceededCount int                 `json:"succeededCount"`
	FailedCount    int                 `json:"failedCount"`
	Requirements   match.Requirements  `json:"requirements"`
	Results        []analyzer.Analysis `json:"results,omitempty"`
	ErrorCode      *string             `json:"errorCode,omitempty"`
	ErrorMessage   *string             `json:"errorMessage,omitempty"`
	StartedAt      *time.Time          `json:"startedAt,omitempty"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}
