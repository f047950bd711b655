package jobs

import (
	"context"
	"time"
)

// Repo persists processing jobs. Every mutating call is conditional on the
// job's current state so concurrent workers cannot move a job backwards.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, id string) (Job, error)
	GetByDocument(ctx context.Context, userID, documentID string) (Job, error)
	// Claim marks stage as taken when the job is in that stage and unclaimed
	// (or the previous claim is older than staleBefore). It reports whether
	// the caller won.
	Claim(ctx context.Context, id string, stage State, at, staleBefore time.Time) (bool, error)
	// Release drops a claim on stage without changing state. It is a no-op
	// when the job has moved on.
	Release(ctx context.Context, id string, stage State, at time.Time) error
	// Transition moves from -> to, applies patch and clears the claim.
	// It returns ErrStateConflict when the job is not in from.
	Transition(ctx context.Context, id string, from, to State, patch Patch, at time.Time) error
	// SaveExtraction persists the analysis result while the job is analyzing.
	SaveExtraction(ctx context.Context, id string, patch Patch, at time.Time) error
	// MarkError fails a non-terminal job. It reports false when the job was
	// already terminal.
	MarkError(ctx context.Context, id, message string, at time.Time) (bool, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]Job, error)
}
