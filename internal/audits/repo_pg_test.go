package audits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateIncludesPromptMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)

	audit := Audit{
		ID:            "audit-1",
		ManuscriptID:  "ms-1",
		UserID:        "user-1",
		Status:        StatusQueued,
		PaperType:     "systematic-review",
		HelpTypes:     []string{"Comprehensive Review"},
		PromptVersion: "gpt-5-mini:v1",
		Provider:      "openai",
		Model:         "gpt-5-mini",
		CreatedAt:     time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO audits").
		WithArgs(
			audit.ID,
			audit.ManuscriptID,
			audit.UserID,
			audit.Status,
			audit.PaperType,
			sqlmock.AnyArg(), // help_types
			audit.PromptVersion,
			audit.Provider,
			audit.Model,
			audit.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), audit); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateResultMarksCompleted(t *testing.T) {
	repo, mock := newMockRepo(t)

	completedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE audits").
		WithArgs(
			sqlmock.AnyArg(), // result jsonb
			sqlmock.AnyArg(), // rigor_warnings jsonb
			completedAt,
			"audit-1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	result := map[string]any{"readinessScore": 70}
	warnings := []string{"scoreBreakdown.methods: missing, defaulted"}
	if err := repo.UpdateResult(context.Background(), "audit-1", result, warnings, completedAt); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE audits").
		WithArgs(StatusProcessing, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStatus(context.Background(), "missing", StatusProcessing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoGetByIDScansAllColumns(t *testing.T) {
	repo, mock := newMockRepo(t)

	completedAt := time.Now().UTC()
	createdAt := completedAt.Add(-time.Minute)
	columns := []string{
		"id", "manuscript_id", "user_id", "status", "paper_type", "help_types",
		"prompt_version", "provider", "model", "result", "rigor_warnings",
		"error_code", "error_message", "error_retryable", "completed_at", "created_at",
	}
	rows := sqlmock.NewRows(columns).AddRow(
		"audit-1", "ms-1", "user-1", StatusCompleted, "observational",
		`["Methods Review"]`, "gpt-5-mini:v1", "openai", "gpt-5-mini",
		`{"readinessScore": 64}`, `["criticalIssues[0].severity: unknown value"]`,
		nil, nil, nil, completedAt, createdAt,
	)
	mock.ExpectQuery("SELECT (.+) FROM audits").
		WithArgs("audit-1").
		WillReturnRows(rows)

	audit, err := repo.GetByID(context.Background(), "audit-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if audit.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", audit.Status)
	}
	if len(audit.HelpTypes) != 1 || audit.HelpTypes[0] != "Methods Review" {
		t.Fatalf("unexpected help types: %v", audit.HelpTypes)
	}
	if score, ok := audit.Result["readinessScore"].(float64); !ok || score != 64 {
		t.Fatalf("unexpected result: %v", audit.Result)
	}
	if len(audit.RigorWarnings) != 1 {
		t.Fatalf("expected 1 rigor warning, got %v", audit.RigorWarnings)
	}
	if audit.CompletedAt == nil || !audit.CompletedAt.Equal(completedAt) {
		t.Fatalf("unexpected completedAt: %v", audit.CompletedAt)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM audits").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoClaimGuestCountsRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE audits").
		WithArgs("user-1", "guest:abc").
		WillReturnResult(sqlmock.NewResult(0, 3))

	claimed, err := repo.ClaimGuest(context.Background(), "guest:abc", "user-1")
	if err != nil {
		t.Fatalf("ClaimGuest: %v", err)
	}
	if claimed != 3 {
		t.Fatalf("expected 3 claimed, got %d", claimed)
	}
}
