package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tender-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres. Set fields are stored as JSONB arrays.
type PGRepo struct {
	DB *sql.DB
}

const profileColumns = `user_id, company_description, business_type, company_activities, main_industries, specializations, keywords, document_processed, completeness_score, last_job_id, updated_at`

// Get returns the stored profile for a user.
func (r *PGRepo) Get(ctx context.Context, userID string) (CompanyProfile, error) {
	const query = `SELECT ` + profileColumns + ` FROM company_profiles WHERE user_id = $1`
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CompanyProfile{}, ErrNotFound
		}
		return CompanyProfile{}, err
	}
	return p, nil
}

// Apply locks the user's row, merges and writes it back in one transaction.
// Concurrent applies for the same user serialize on the row lock; the last
// to commit wins for scalar fields.
func (r *PGRepo) Apply(ctx context.Context, userID string, ext Extraction, jobID string, at time.Time) (CompanyProfile, error) {
	const ensure = `INSERT INTO company_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	const lock = `SELECT ` + profileColumns + ` FROM company_profiles WHERE user_id = $1 FOR UPDATE`
	const update = `
UPDATE company_profiles
SET company_description = $2,
    business_type = $3,
    company_activities = $4,
    main_industries = $5,
    specializations = $6,
    keywords = $7,
    document_processed = $8,
    completeness_score = $9,
    last_job_id = $10,
    updated_at = $11
WHERE user_id = $1`

	var next CompanyProfile
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ensure, userID); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		current, err := scanProfile(tx.QueryRowContext(ctx, lock, userID))
		if err != nil {
			return fmt.Errorf("lock profile: %w", err)
		}
		next = Merge(current, ext, jobID, at)

		activities, industries, specializations, keywords, err := encodeSets(next)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, update,
			userID,
			next.CompanyDescription,
			next.BusinessType,
			activities,
			industries,
			specializations,
			keywords,
			next.DocumentProcessed,
			next.CompletenessScore,
			sql.NullString{String: next.LastJobID, Valid: next.LastJobID != ""},
			next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return CompanyProfile{}, err
	}
	return next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (CompanyProfile, error) {
	var p CompanyProfile
	var activities, industries, specializations, keywords []byte
	var lastJobID sql.NullString
	if err := row.Scan(
		&p.UserID,
		&p.CompanyDescription,
		&p.BusinessType,
		&activities,
		&industries,
		&specializations,
		&keywords,
		&p.DocumentProcessed,
		&p.CompletenessScore,
		&lastJobID,
		&p.UpdatedAt,
	); err != nil {
		return CompanyProfile{}, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{activities, &p.CompanyActivities},
		{industries, &p.MainIndustries},
		{specializations, &p.Specializations},
		{keywords, &p.Keywords},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return CompanyProfile{}, fmt.Errorf("decode profile sets: %w", err)
		}
	}
	if lastJobID.Valid {
		p.LastJobID = lastJobID.String
	}
	return p, nil
}

func encodeSets(p CompanyProfile) (activities, industries, specializations, keywords string, err error) {
	enc := func(v any) string {
		if err != nil {
			return ""
		}
		var b []byte
		b, err = json.Marshal(v)
		return string(b)
	}
	activities = enc(nonNil(p.CompanyActivities))
	industries = enc(nonNil(p.MainIndustries))
	specializations = enc(nonNil(p.Specializations))
	if p.Keywords == nil {
		keywords = enc([]Keyword{})
	} else {
		keywords = enc(p.Keywords)
	}
	if err != nil {
		err = fmt.Errorf("encode profile sets: %w", err)
	}
	return activities, industries, specializations, keywords, err
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

var _ Repo = (*PGRepo)(nil)
