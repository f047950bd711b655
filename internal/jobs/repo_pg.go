package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tender-backend/internal/profiles"
)

// PGRepo implements Repo using Postgres. Conditional writes are single
// UPDATE statements guarded on state, so no transaction is needed.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, document_id, user_id, state, ocr_text, extraction, claimed_stage, claimed_at, error_message, created_at, updated_at, completed_at`

func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO processing_jobs (id, document_id, user_id, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, job.ID, job.DocumentID, job.UserID, string(job.State), job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM processing_jobs WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PGRepo) GetByDocument(ctx context.Context, userID, documentID string) (Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM processing_jobs WHERE user_id = $1 AND document_id = $2`
	return r.getOne(ctx, query, userID, documentID)
}

func (r *PGRepo) getOne(ctx context.Context, query string, args ...any) (Job, error) {
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

func (r *PGRepo) Claim(ctx context.Context, id string, stage State, at, staleBefore time.Time) (bool, error) {
	const query = `
UPDATE processing_jobs
SET claimed_stage = $2, claimed_at = $3, updated_at = $3
WHERE id = $1
  AND state = $2
  AND (claimed_stage IS NULL OR claimed_stage = '' OR claimed_at < $4)`
	res, err := r.DB.ExecContext(ctx, query, id, string(stage), at, staleBefore)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PGRepo) Release(ctx context.Context, id string, stage State, at time.Time) error {
	const query = `
UPDATE processing_jobs
SET claimed_stage = NULL, claimed_at = NULL, updated_at = $3
WHERE id = $1 AND state = $2 AND claimed_stage = $2`
	if _, err := r.DB.ExecContext(ctx, query, id, string(stage), at); err != nil {
		return fmt.Errorf("release job claim: %w", err)
	}
	return nil
}

func (r *PGRepo) Transition(ctx context.Context, id string, from, to State, patch Patch, at time.Time) error {
	if !CanTransition(from, to) {
		return ErrStateConflict
	}
	const query = `
UPDATE processing_jobs
SET state = $3,
    ocr_text = COALESCE($4, ocr_text),
    extraction = COALESCE($5::jsonb, extraction),
    completed_at = COALESCE($6, completed_at),
    claimed_stage = NULL,
    claimed_at = NULL,
    updated_at = $7
WHERE id = $1 AND state = $2`

	ocrText, extraction, completedAt, err := patchArgs(patch)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, id, string(from), string(to), ocrText, extraction, completedAt, at)
	if err != nil {
		return fmt.Errorf("transition job %s->%s: %w", from, to, err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *PGRepo) SaveExtraction(ctx context.Context, id string, patch Patch, at time.Time) error {
	const query = `
UPDATE processing_jobs
SET extraction = $2::jsonb, updated_at = $3
WHERE id = $1 AND state = 'analyzing'`

	_, extraction, _, err := patchArgs(Patch{Extraction: patch.Extraction})
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, id, extraction, at)
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

func (r *PGRepo) MarkError(ctx context.Context, id, message string, at time.Time) (bool, error) {
	const query = `
UPDATE processing_jobs
SET state = 'error', error_message = $2, claimed_stage = NULL, claimed_at = NULL, updated_at = $3
WHERE id = $1 AND state NOT IN ('completed', 'error')`
	res, err := r.DB.ExecContext(ctx, query, id, message, at)
	if err != nil {
		return false, fmt.Errorf("mark job error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PGRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
SELECT ` + jobColumns + `
FROM processing_jobs
WHERE state NOT IN ('completed', 'error') AND updated_at < $1
ORDER BY updated_at ASC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (r *PGRepo) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStateConflict
}

func patchArgs(patch Patch) (ocrText, extraction sql.NullString, completedAt sql.NullTime, err error) {
	if patch.OCRText != nil {
		ocrText = sql.NullString{String: *patch.OCRText, Valid: true}
	}
	if patch.Extraction != nil {
		b, err := json.Marshal(patch.Extraction)
		if err != nil {
			return ocrText, extraction, completedAt, fmt.Errorf("encode extraction: %w", err)
		}
		extraction = sql.NullString{String: string(b), Valid: true}
	}
	if patch.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *patch.CompletedAt, Valid: true}
	}
	return ocrText, extraction, completedAt, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job          Job
		state        string
		ocrText      sql.NullString
		extraction   []byte
		claimedStage sql.NullString
		claimedAt    sql.NullTime
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)
	if err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.UserID,
		&state,
		&ocrText,
		&extraction,
		&claimedStage,
		&claimedAt,
		&errorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	); err != nil {
		return Job{}, err
	}
	job.State = State(state)
	job.OCRText = ocrText.String
	job.ClaimedStage = State(claimedStage.String)
	job.ErrorMessage = errorMessage.String
	if claimedAt.Valid {
		t := claimedAt.Time
		job.ClaimedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if raw := strings.TrimSpace(string(extraction)); raw != "" && raw != "null" {
		var ext profiles.Extraction
		if err := json.Unmarshal([]byte(raw), &ext); err != nil {
			return Job{}, fmt.Errorf("decode extraction: %w", err)
		}
		job.Extraction = &ext
	}
	return job, nil
}

var _ Repo = (*PGRepo)(nil)
