package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used in dev and tests.
type MemoryRepo struct {
	mu         sync.RWMutex
	jobs       map[string]Job
	byDocument map[string]string
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jobs:       make(map[string]Job),
		byDocument: make(map[string]string),
	}
}

func documentKey(userID, documentID string) string {
	return userID + "\x00" + documentID
}

func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return ErrStateConflict
	}
	key := documentKey(job.UserID, job.DocumentID)
	if _, exists := r.byDocument[key]; exists {
		return ErrStateConflict
	}
	r.jobs[job.ID] = job
	r.byDocument[key] = job.ID
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (r *MemoryRepo) GetByDocument(ctx context.Context, userID, documentID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byDocument[documentKey(userID, documentID)]
	if !ok {
		return Job{}, ErrNotFound
	}
	return r.jobs[id], nil
}

func (r *MemoryRepo) Claim(ctx context.Context, id string, stage State, at, staleBefore time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.State != stage {
		return false, nil
	}
	if job.ClaimedStage != "" && job.ClaimedAt != nil && !job.ClaimedAt.Before(staleBefore) {
		return false, nil
	}
	job.ClaimedStage = stage
	job.ClaimedAt = &at
	job.UpdatedAt = at
	r.jobs[id] = job
	return true, nil
}

func (r *MemoryRepo) Release(ctx context.Context, id string, stage State, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.State != stage || job.ClaimedStage != stage {
		return nil
	}
	job.ClaimedStage = ""
	job.ClaimedAt = nil
	job.UpdatedAt = at
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) Transition(ctx context.Context, id string, from, to State, patch Patch, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.State != from || !CanTransition(from, to) {
		return ErrStateConflict
	}
	applyPatch(&job, patch)
	job.State = to
	job.ClaimedStage = ""
	job.ClaimedAt = nil
	job.UpdatedAt = at
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) SaveExtraction(ctx context.Context, id string, patch Patch, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if job.State != StateAnalyzing {
		return ErrStateConflict
	}
	applyPatch(&job, Patch{Extraction: patch.Extraction})
	job.UpdatedAt = at
	r.jobs[id] = job
	return nil
}

func (r *MemoryRepo) MarkError(ctx context.Context, id, message string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return false, ErrNotFound
	}
	if job.State.Terminal() {
		return false, nil
	}
	job.State = StateError
	job.ErrorMessage = message
	job.ClaimedStage = ""
	job.ClaimedAt = nil
	job.UpdatedAt = at
	r.jobs[id] = job
	return true, nil
}

func (r *MemoryRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []Job
	for _, job := range r.jobs {
		if !job.State.Terminal() && job.UpdatedAt.Before(before) {
			out = append(out, job)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func applyPatch(job *Job, patch Patch) {
	if patch.OCRText != nil {
		job.OCRText = *patch.OCRText
	}
	if patch.Extraction != nil {
		ext := *patch.Extraction
		job.Extraction = &ext
	}
	if patch.CompletedAt != nil {
		at := *patch.CompletedAt
		job.CompletedAt = &at
	}
}

var _ Repo = (*MemoryRepo)(nil)
