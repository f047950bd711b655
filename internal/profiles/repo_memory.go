package profiles

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores profiles in memory. Apply holds the write lock for the
// whole read-merge-write, so applies are serialized and readers only ever see
// complete records.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]CompanyProfile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]CompanyProfile)}
}

// Get returns the stored profile for a user.
func (r *MemoryRepo) Get(ctx context.Context, userID string) (CompanyProfile, error) {
	if err := ctx.Err(); err != nil {
		return CompanyProfile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[userID]
	if !ok {
		return CompanyProfile{}, ErrNotFound
	}
	return p.Clone(), nil
}

// Apply merges ext into the user's profile, creating it if needed.
func (r *MemoryRepo) Apply(ctx context.Context, userID string, ext Extraction, jobID string, at time.Time) (CompanyProfile, error) {
	if err := ctx.Err(); err != nil {
		return CompanyProfile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.data[userID]
	if !ok {
		current = CompanyProfile{UserID: userID}
	}
	next := Merge(current, ext, jobID, at)
	r.data[userID] = next
	return next.Clone(), nil
}

// Put replaces a profile wholesale. The score is recomputed.
func (r *MemoryRepo) Put(ctx context.Context, p CompanyProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p = p.Clone()
	p.CompletenessScore = Completeness(p)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[p.UserID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
