package documents

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepoListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Create(ctx, Document{ID: id, UserID: "u1", CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	_ = repo.Create(ctx, Document{ID: "other", UserID: "u2", CreatedAt: base})

	docs, err := repo.ListByUser(ctx, "u1", 2, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c" || docs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", docs)
	}

	if _, err := repo.GetByID(ctx, "u2", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("documents must be scoped by owner, got %v", err)
	}
	if err := repo.Create(ctx, Document{ID: "a", UserID: "u1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate id should fail, got %v", err)
	}
}
