package tenders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tender-backend/internal/shared/storage/db"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

const tenderColumns = `id, title, agency, category, location, value_min, value_max, deadline, status, source, external_id, bid_number`

// Upsert writes the batch in one transaction, keyed on (source, dedupe_key).
func (s *PGStore) Upsert(ctx context.Context, batch []Tender) (UpsertResult, error) {
	keys := make([]string, len(batch))
	for i, t := range batch {
		key, err := DedupeKey(t)
		if err != nil {
			return UpsertResult{}, err
		}
		keys[i] = key
	}

	const query = `
INSERT INTO tenders (` + tenderColumns + `, dedupe_key, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
ON CONFLICT (source, dedupe_key) DO UPDATE SET
    title = EXCLUDED.title,
    agency = EXCLUDED.agency,
    category = EXCLUDED.category,
    location = EXCLUDED.location,
    value_min = EXCLUDED.value_min,
    value_max = EXCLUDED.value_max,
    deadline = EXCLUDED.deadline,
    status = EXCLUDED.status,
    external_id = EXCLUDED.external_id,
    bid_number = EXCLUDED.bid_number,
    updated_at = now()
RETURNING (xmax = 0)`

	var res UpsertResult
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		for i, t := range batch {
			id := t.ID
			if id == "" {
				id = uuid.NewString()
			}
			status := t.Status
			if status == "" {
				status = StatusOpen
			}
			var inserted bool
			if err := tx.QueryRowContext(ctx, query,
				id,
				t.Title,
				t.Agency,
				t.Category,
				t.Location,
				nullFloat(t.ValueMin),
				nullFloat(t.ValueMax),
				nullTimePtr(t),
				status,
				strings.TrimSpace(t.Source),
				t.ExternalID,
				t.BidNumber,
				keys[i],
			).Scan(&inserted); err != nil {
				return fmt.Errorf("upsert tender %s: %w", keys[i], err)
			}
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return res, nil
}

// FindAll returns every tender ordered by ID.
func (s *PGStore) FindAll(ctx context.Context) ([]Tender, error) {
	const query = `SELECT ` + tenderColumns + ` FROM tenders ORDER BY id`
	return s.query(ctx, query)
}

// FindByCategory returns tenders whose category matches, case-insensitively.
func (s *PGStore) FindByCategory(ctx context.Context, category string) ([]Tender, error) {
	const query = `SELECT ` + tenderColumns + ` FROM tenders WHERE lower(category) = $1 ORDER BY id`
	return s.query(ctx, query, normalizeCategory(category))
}

// Get returns one tender by ID.
func (s *PGStore) Get(ctx context.Context, id string) (Tender, error) {
	const query = `SELECT ` + tenderColumns + ` FROM tenders WHERE id = $1`
	t, err := scanTender(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tender{}, ErrNotFound
		}
		return Tender{}, err
	}
	return t, nil
}

func (s *PGStore) query(ctx context.Context, query string, args ...any) ([]Tender, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Tender{}
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTender(row rowScanner) (Tender, error) {
	var t Tender
	var valueMin, valueMax sql.NullFloat64
	var deadline sql.NullTime
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Agency,
		&t.Category,
		&t.Location,
		&valueMin,
		&valueMax,
		&deadline,
		&t.Status,
		&t.Source,
		&t.ExternalID,
		&t.BidNumber,
	); err != nil {
		return Tender{}, err
	}
	if valueMin.Valid {
		v := valueMin.Float64
		t.ValueMin = &v
	}
	if valueMax.Valid {
		v := valueMax.Float64
		t.ValueMax = &v
	}
	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTimePtr(t Tender) sql.NullTime {
	if t.Deadline == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t.Deadline, Valid: true}
}

var _ Store = (*PGStore)(nil)
