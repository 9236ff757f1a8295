package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func batchColumns() []string {
	return []string{
		"id", "correlation_id", "status", "profile_count", "succeeded_count", "failed_count",
		"requirements", "results", "error_code", "error_message",
		"started_at", "completed_at", "created_at", "updated_at",
	}
}

func TestPGRepoCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO batch_analyses").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &PGRepo{DB: db}
	batch := BatchAnalysis{
		ID:            "b-1",
		CorrelationID: "corr-1",
		Status:        StatusQueued,
		ProfileCount:  3,
		Requirements:  validRequirements(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), batch); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(batchColumns()).AddRow(
		"b-1", "corr-1", StatusCompleted, 2, 2, 0,
		[]byte(`{"requiredSkills":["golang"]}`),
		`[{"profileId":"p-0","overallMatchScore":94}]`,
		nil, nil, now, now, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM batch_analyses").
		WithArgs("b-1").
		WillReturnRows(rows)

	repo := &PGRepo{DB: db}
	batch, err := repo.GetByID(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if batch.Status != StatusCompleted || batch.SucceededCount != 2 {
		t.Fatalf("batch = %+v", batch)
	}
	if len(batch.Requirements.RequiredSkills) != 1 {
		t.Fatalf("requirements = %+v", batch.Requirements)
	}
	if len(batch.Results) != 1 || batch.Results[0].ProfileID != "p-0" {
		t.Fatalf("results = %+v", batch.Results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM batch_analyses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(batchColumns()))

	repo := &PGRepo{DB: db}
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateStatusNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE batch_analyses").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := &PGRepo{DB: db}
	err = repo.UpdateStatus(context.Background(), "missing", StatusProcessing, StatusUpdate{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPGRepoUpdateStatusAppliesTransition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE batch_analyses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	succeeded, failed := 2, 1
	now := time.Now().UTC()
	err = repo.UpdateStatus(context.Background(), "b-1", StatusCompleted, StatusUpdate{
		SucceededCount: &succeeded,
		FailedCount:    &failed,
		CompletedAt:    &now,
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
