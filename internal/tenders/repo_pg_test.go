package tenders

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGStoreUpsertCountsInsertsAndUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (source, dedupe_key)")).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (source, dedupe_key)")).
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	res, err := (&PGStore{DB: db}).Upsert(context.Background(), []Tender{
		{Title: "a", Source: "etimad", ExternalID: "1"},
		{Title: "b", Source: "etimad", BidNumber: "B-2"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGStoreFindByCategoryScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	deadline := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "title", "agency", "category", "location", "value_min", "value_max", "deadline", "status", "source", "external_id", "bid_number"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lower(category) = $1")).
		WithArgs("construction").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("t1", "Bridge", "MoT", "Construction", "Riyadh", nil, 5000.0, deadline, "open", "etimad", "E-1", "").
			AddRow("t2", "Tunnel", "MoT", "Construction", "Jeddah", nil, nil, nil, "open", "etimad", "", "B-9"))

	got, err := (&PGStore{DB: db}).FindByCategory(context.Background(), "Construction")
	if err != nil {
		t.Fatalf("FindByCategory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2, got %d", len(got))
	}
	if got[0].ValueMin != nil || got[0].ValueMax == nil || *got[0].ValueMax != 5000 {
		t.Fatalf("unexpected values %+v", got[0])
	}
	if got[0].Deadline == nil || !got[0].Deadline.Equal(deadline) || got[1].Deadline != nil {
		t.Fatalf("unexpected deadlines %v %v", got[0].Deadline, got[1].Deadline)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
