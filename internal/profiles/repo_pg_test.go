package profiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var profileCols = []string{"user_id", "company_description", "business_type", "company_activities", "main_industries", "specializations", "keywords", "document_processed", "completeness_score", "last_job_id", "updated_at"}

func TestPGRepoApplyLocksMergesAndUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u1", "", "LLC", []byte(`["road works"]`), []byte(`[]`), []byte(`[]`), []byte(`[]`), false, 0, nil, at))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE company_profiles")).
		WithArgs("u1", "Builder", "LLC", `["road works","paving"]`, `[]`, `[]`, `[{"source":"asphalt"}]`, true, 80, sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := (&PGRepo{DB: db}).Apply(context.Background(), "u1", Extraction{
		CompanyDescription: "Builder",
		Activities:         []string{"paving"},
		Keywords:           []Keyword{{Source: "asphalt"}},
	}, "job-1", at)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// 30 processed + 15 description + 10 business type + 10 activities + 15 keywords
	if got.CompletenessScore != 80 {
		t.Fatalf("unexpected score %d", got.CompletenessScore)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoApplyRollsBackOnUpdateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(profileCols).
			AddRow("u1", "", "", nil, nil, nil, nil, false, 0, nil, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE company_profiles")).WillReturnError(errors.New("conn reset"))
	mock.ExpectRollback()

	if _, err := (&PGRepo{DB: db}).Apply(context.Background(), "u1", Extraction{}, "job-1", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta("FROM company_profiles")).WithArgs("u1").WillReturnError(sql.ErrNoRows)
	if _, err := (&PGRepo{DB: db}).Get(context.Background(), "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
