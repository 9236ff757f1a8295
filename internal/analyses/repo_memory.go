package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores batch analyses in memory and is safe for concurrent use.
// It backs local development when no database is configured.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]BatchAnalysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]BatchAnalysis)}
}

// Create stores the batch record.
func (r *MemoryRepo) Create(ctx context.Context, batch BatchAnalysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[batch.ID] = batch
	return nil
}

// GetByID returns a batch record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, batchID string) (BatchAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return BatchAnalysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	batch, ok := r.byID[batchID]
	if !ok {
		return BatchAnalysis{}, ErrNotFound
	}
	return batch, nil
}

// UpdateStatus applies a status transition to an existing batch record.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, batchID, status string, update StatusUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.byID[batchID]
	if !ok {
		return ErrNotFound
	}

	batch.Status = status
	if update.Results != nil {
		batch.Results = update.Results
	}
	if update.SucceededCount != nil {
		batch.SucceededCount = *update.SucceededCount
	}
	if update.FailedCount != nil {
		batch.FailedCount = *update.FailedCount
	}
	if update.ErrorCode != nil {
		batch.ErrorCode = update.ErrorCode
	}
	if update.ErrorMessage != nil {
		batch.ErrorMessage = update.ErrorMessage
	}
	if update.StartedAt != nil {
		batch.StartedAt = update.StartedAt
	} else if status == StatusProcessing && batch.StartedAt == nil {
		now := time.Now().UTC()
		batch.StartedAt = &now
	}
	if update.CompletedAt != nil {
		batch.CompletedAt = update.CompletedAt
	} else if (status == StatusCompleted || status == StatusFailed) && batch.CompletedAt == nil {
		now := time.Now().UTC()
		batch.CompletedAt = &now
	}
	batch.UpdatedAt = time.Now().UTC()
	r.byID[batchID] = batch
	return nil
}

// ListRecent returns batch records newest-first with limit/offset.
func (r *MemoryRepo) ListRecent(ctx context.Context, limit, offset int) ([]BatchAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	batches := make([]BatchAnalysis, 0, len(r.byID))
	for _, batch := range r.byID {
		batches = append(batches, batch)
	}
	r.mu.RUnlock()

	sort.Slice(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})

	if offset >= len(batches) {
		return []BatchAnalysis{}, nil
	}
	end := len(batches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return batches[offset:end], nil
}
