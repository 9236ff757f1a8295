package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"analysis-backend/internal/analyzer"
	"analysis-backend/internal/engine"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/telemetry"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	// MaxBatchProfiles caps one batch request.
	MaxBatchProfiles = 10
)

// Service contains the business logic around batch analyses.
type Service struct {
	Repo    Repo
	Engine  *engine.Engine
	Metrics *metrics.Metrics
}

// AnalyzeProfile scores a single profile synchronously.
func (s *Service) AnalyzeProfile(ctx context.Context, p *profile.Profile, req match.Requirements) (analyzer.Analysis, error) {
	correlationID := correlationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return s.Engine.AnalyzeOne(ctx, p, req, correlationID)
}

// CreateBatch validates the batch inputs, persists a queued record and kicks
// off asynchronous completion.
func (s *Service) CreateBatch(ctx context.Context, profiles []*profile.Profile, req match.Requirements) (BatchAnalysis, error) {
	if len(profiles) == 0 {
		return BatchAnalysis{}, fmt.Errorf("%w: at least one profile is required", profile.ErrInvalid)
	}
	if len(profiles) > MaxBatchProfiles {
		return BatchAnalysis{}, fmt.Errorf("%w: limit is %d profiles", ErrBatchTooLarge, MaxBatchProfiles)
	}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return BatchAnalysis{}, err
		}
	}
	if err := req.Validate(); err != nil {
		return BatchAnalysis{}, err
	}

	correlationID := correlationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	batch := BatchAnalysis{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Status:        StatusQueued,
		ProfileCount:  len(profiles),
		Requirements:  req,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, batch); err != nil {
		return BatchAnalysis{}, err
	}
	s.Metrics.IncBatchStarted()

	go s.completeAsync(backgroundWithCorrelationID(ctx), batch.ID, profiles, req)

	return batch, nil
}

// Get returns a batch record by ID.
func (s *Service) Get(ctx context.Context, batchID string) (BatchAnalysis, error) {
	if strings.TrimSpace(batchID) == "" {
		return BatchAnalysis{}, errors.New("batchID is required")
	}
	return s.Repo.GetByID(ctx, batchID)
}

// List returns batch records newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]BatchAnalysis, error) {
	return s.Repo.ListRecent(ctx, limit, offset)
}

func (s *Service) completeAsync(ctx context.Context, batchID string, profiles []*profile.Profile, req match.Requirements) {
	defer func() {
		if r := recover(); r != nil {
			s.failBatch(ctx, batchID, fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.UpdateStatus(ctx, batchID, StatusProcessing, StatusUpdate{StartedAt: &startedAt}); err != nil {
		s.failBatch(ctx, batchID, fmt.Errorf("set processing failed: %w", err), &startedAt)
		return
	}
	telemetry.Info("batch.status", map[string]any{
		"correlation_id":    correlationIDFromContext(ctx),
		"batch_id":          batchID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
		"profile_count":     len(profiles),
	})

	results, failed, err := s.Engine.AnalyzeBatch(ctx, profiles, req, correlationIDFromContext(ctx))
	if err != nil {
		s.failBatch(ctx, batchID, fmt.Errorf("batch analysis: %w", err), &startedAt)
		return
	}
	if len(results) == 0 {
		s.failBatch(ctx, batchID, errors.New("batch analysis: all profiles failed"), &startedAt)
		return
	}

	succeeded := len(results)
	completedAt := time.Now().UTC()
	update := StatusUpdate{
		Results:        results,
		SucceededCount: &succeeded,
		FailedCount:    &failed,
		CompletedAt:    &completedAt,
	}
	if err := s.Repo.UpdateStatus(ctx, batchID, StatusCompleted, update); err != nil {
		s.failBatch(ctx, batchID, fmt.Errorf("set batch result failed: %w", err), &startedAt)
		return
	}
	s.Metrics.IncBatchCompleted()
	telemetry.Info("batch.status", map[string]any{
		"correlation_id":    correlationIDFromContext(ctx),
		"batch_id":          batchID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"succeeded":         succeeded,
		"failed":            failed,
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

func (s *Service) failBatch(ctx context.Context, batchID string, err error, startedAt *time.Time) {
	code := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	update := StatusUpdate{
		ErrorCode:    &code,
		ErrorMessage: &msg,
		CompletedAt:  &completedAt,
	}
	if updateErr := s.Repo.UpdateStatus(context.Background(), batchID, StatusFailed, update); updateErr != nil {
		telemetry.Error("batch.fail_update_failed", map[string]any{
			"batch_id": batchID,
			"error":    updateErr.Error(),
			"cause":    msg,
		})
	}
	s.Metrics.IncBatchFailed()
	telemetry.Info("batch.status", map[string]any{
		"correlation_id":    correlationIDFromContext(ctx),
		"batch_id":          batchID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             msg,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeAITimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return ErrorCodeAITimeout
	case strings.Contains(msg, "invalid provider response"):
		return ErrorCodeAIInvalid
	case strings.Contains(msg, "invalid profile") || strings.Contains(msg, "invalid job requirements"):
		return ErrorCodeValidation
	case strings.Contains(msg, "set processing") || strings.Contains(msg, "batch result"):
		return ErrorCodeStorage
	default:
		return ErrorCodeInternal
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
