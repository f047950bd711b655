package tenders

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Tender
	byKey map[string]string // source + "|" + dedupe key -> id
	newID func() string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Tender),
		byKey: make(map[string]string),
		newID: uuid.NewString,
	}
}

// Upsert inserts new tenders and replaces existing ones with the same dedupe key.
// The batch is validated up front so a bad record leaves the store untouched.
func (s *MemoryStore) Upsert(ctx context.Context, batch []Tender) (UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return UpsertResult{}, err
	}
	keys := make([]string, len(batch))
	for i, t := range batch {
		key, err := DedupeKey(t)
		if err != nil {
			return UpsertResult{}, err
		}
		keys[i] = strings.TrimSpace(t.Source) + "|" + key
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var res UpsertResult
	for i, t := range batch {
		if t.Status == "" {
			t.Status = StatusOpen
		}
		if id, ok := s.byKey[keys[i]]; ok {
			t.ID = id
			s.byID[id] = t
			res.Updated++
			continue
		}
		if t.ID == "" {
			t.ID = s.newID()
		}
		s.byID[t.ID] = t
		s.byKey[keys[i]] = t.ID
		res.Inserted++
	}
	return res, nil
}

// FindAll returns every tender ordered by ID.
func (s *MemoryStore) FindAll(ctx context.Context) ([]Tender, error) {
	return s.find(ctx, func(Tender) bool { return true })
}

// FindByCategory returns tenders whose category matches, case-insensitively.
func (s *MemoryStore) FindByCategory(ctx context.Context, category string) ([]Tender, error) {
	want := normalizeCategory(category)
	return s.find(ctx, func(t Tender) bool { return normalizeCategory(t.Category) == want })
}

// Get returns one tender by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (Tender, error) {
	if err := ctx.Err(); err != nil {
		return Tender{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return Tender{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) find(ctx context.Context, keep func(Tender) bool) ([]Tender, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Tender, 0, len(s.byID))
	for _, t := range s.byID {
		if keep(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
