package analyses

import (
	"context"
	"time"

	"analysis-backend/internal/analyzer"
)

// Repo defines persistence operations for batch analyses.
type Repo interface {
	Create(ctx context.Context, batch BatchAnalysis) error
	GetByID(ctx context.Context, batchID string) (BatchAnalysis, error)
	UpdateStatus(ctx context.Context, batchID, status string, update StatusUpdate) error
	ListRecent(ctx context.Context, limit, offset int) ([]BatchAnalysis, error)
}

// StatusUpdate carries the optional fields of a status transition. Nil
// fields leave the stored value untouched.
type StatusUpdate struct {
	Results        []analyzer.Analysis
	SucceededCount *int
	FailedCount    *int
	ErrorCode      *string
	ErrorMessage   *string
	StartedAt      *time.Time
	CompletedAt    *time.Time
}
