package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"analysis-backend/internal/analyzer"
	"analysis-backend/internal/match"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new batch record.
func (r *PGRepo) Create(ctx context.Context, batch BatchAnalysis) error {
	const query = `
INSERT INTO batch_analyses (
	id, correlation_id, status, profile_count, succeeded_count, failed_count,
	requirements, results, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	requirementsPayload, err := json.Marshal(batch.Requirements)
	if err != nil {
		return err
	}
	resultsPayload, err := marshalResults(batch.Results)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		batch.ID,
		batch.CorrelationID,
		batch.Status,
		batch.ProfileCount,
		batch.SucceededCount,
		batch.FailedCount,
		requirementsPayload,
		resultsPayload,
		batch.CreatedAt,
		batch.CreatedAt,
	)
	return err
}

// GetByID returns a batch record by ID.
func (r *PGRepo) GetByID(ctx context.Context, batchID string) (BatchAnalysis, error) {
	const query = `
SELECT id, correlation_id, status, profile_count, succeeded_count, failed_count,
       requirements, results, error_code, error_message,
       started_at, completed_at, created_at, updated_at
FROM batch_analyses
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, batchID)
	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return BatchAnalysis{}, ErrNotFound
	}
	return batch, err
}

// UpdateStatus applies a status transition. Nil update fields keep the
// stored values.
func (r *PGRepo) UpdateStatus(ctx context.Context, batchID, status string, update StatusUpdate) error {
	const query = `
UPDATE batch_analyses
SET status = $2,
    succeeded_count = COALESCE($3, succeeded_count),
    failed_count = COALESCE($4, failed_count),
    results = COALESCE($5, results),
    error_code = COALESCE($6, error_code),
    error_message = COALESCE($7, error_message),
    started_at = COALESCE($8, started_at),
    completed_at = COALESCE($9, completed_at),
    updated_at = $10
WHERE id = $1`
	resultsPayload, err := marshalResults(update.Results)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		batchID,
		status,
		nullableInt(update.SucceededCount),
		nullableInt(update.FailedCount),
		resultsPayload,
		nullableString(update.ErrorCode),
		nullableString(update.ErrorMessage),
		nullableTime(update.StartedAt),
		nullableTime(update.CompletedAt),
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent returns batch records newest-first with limit/offset.
func (r *PGRepo) ListRecent(ctx context.Context, limit, offset int) ([]BatchAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT id, correlation_id, status, profile_count, succeeded_count, failed_count,
       requirements, results, error_code, error_message,
       started_at, completed_at, created_at, updated_at
FROM batch_analyses
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]BatchAnalysis, 0, limit)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (BatchAnalysis, error) {
	var batch BatchAnalysis
	var requirementsRaw []byte
	var resultsRaw sql.NullString
	var errorCode sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	if err := row.Scan(
		&batch.ID,
		&batch.CorrelationID,
		&batch.Status,
		&batch.ProfileCount,
		&batch.SucceededCount,
		&batch.FailedCount,
		&requirementsRaw,
		&resultsRaw,
		&errorCode,
		&errorMessage,
		&startedAt,
		&completedAt,
		&batch.CreatedAt,
		&batch.UpdatedAt,
	); err != nil {
		return BatchAnalysis{}, err
	}

	if len(requirementsRaw) > 0 {
		var req match.Requirements
		if err := json.Unmarshal(requirementsRaw, &req); err != nil {
			return BatchAnalysis{}, err
		}
		batch.Requirements = req
	}
	if resultsRaw.Valid && resultsRaw.String != "" {
		var results []analyzer.Analysis
		if err := json.Unmarshal([]byte(resultsRaw.String), &results); err != nil {
			return BatchAnalysis{}, err
		}
		batch.Results = results
	}
	if errorCode.Valid {
		batch.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		batch.ErrorMessage = &errorMessage.String
	}
	if startedAt.Valid {
		batch.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		batch.CompletedAt = &completedAt.Time
	}
	return batch, nil
}

func marshalResults(results []analyzer.Analysis) (any, error) {
	if results == nil {
		return nil, nil
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}
