package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateUploading, true},
		{StateUploading, StateProcessing, true},
		{StateProcessing, StateAnalyzing, true},
		{StateAnalyzing, StateCompleted, true},
		{StateUploading, StateAnalyzing, false},
		{StateAnalyzing, StateProcessing, false},
		{StateProcessing, StateError, true},
		{StateCompleted, StateError, false},
		{StateError, StateUploading, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestLabels(t *testing.T) {
	for _, s := range []State{StateIdle, StateUploading, StateProcessing, StateAnalyzing, StateCompleted, StateError} {
		if s.Label() == "" {
			t.Fatalf("missing label for %s", s)
		}
	}
}

func TestMemoryRepoClaimAndTransition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.Create(ctx, Job{ID: "j1", DocumentID: "d1", UserID: "u1", State: StateUploading, CreatedAt: t0, UpdatedAt: t0}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, Job{ID: "j2", DocumentID: "d1", UserID: "u1", State: StateUploading}); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("one job per document, got %v", err)
	}

	if ok, _ := repo.Claim(ctx, "j1", StateProcessing, t0, t0); ok {
		t.Fatalf("claim for the wrong stage must fail")
	}
	if ok, _ := repo.Claim(ctx, "j1", StateUploading, t0, t0.Add(-time.Minute)); !ok {
		t.Fatalf("first claim should win")
	}
	if ok, _ := repo.Claim(ctx, "j1", StateUploading, t0, t0.Add(-time.Minute)); ok {
		t.Fatalf("second claim should lose")
	}
	// a claim older than staleBefore can be taken over
	if ok, _ := repo.Claim(ctx, "j1", StateUploading, t0.Add(time.Hour), t0.Add(time.Minute)); !ok {
		t.Fatalf("stale claim should be taken over")
	}

	if err := repo.Transition(ctx, "j1", StateProcessing, StateAnalyzing, Patch{}, t0); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected conflict from wrong state, got %v", err)
	}
	text := "hello"
	if err := repo.Transition(ctx, "j1", StateUploading, StateProcessing, Patch{OCRText: &text}, t0); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	job, _ := repo.GetByDocument(ctx, "u1", "d1")
	if job.State != StateProcessing || job.ClaimedStage != "" || job.OCRText != "hello" {
		t.Fatalf("unexpected job %+v", job)
	}
	if err := repo.SaveExtraction(ctx, "j1", Patch{}, t0); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("extraction only while analyzing, got %v", err)
	}
}

func TestMemoryRepoMarkErrorOnlyNonTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	_ = repo.Create(ctx, Job{ID: "j1", DocumentID: "d1", UserID: "u1", State: StateAnalyzing})

	ok, err := repo.MarkError(ctx, "j1", "boom", time.Now())
	if err != nil || !ok {
		t.Fatalf("MarkError: %v %v", ok, err)
	}
	ok, err = repo.MarkError(ctx, "j1", "again", time.Now())
	if err != nil || ok {
		t.Fatalf("terminal job must not be re-failed: %v %v", ok, err)
	}
	job, _ := repo.GetByID(ctx, "j1")
	if job.ErrorMessage != "boom" {
		t.Fatalf("first message should stick, got %q", job.ErrorMessage)
	}
	if _, err := repo.MarkError(ctx, "missing", "x", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoReleaseFreesClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = repo.Create(ctx, Job{ID: "j1", DocumentID: "d1", UserID: "u1", State: StateAnalyzing, CreatedAt: t0, UpdatedAt: t0})

	if ok, _ := repo.Claim(ctx, "j1", StateAnalyzing, t0, t0.Add(-time.Minute)); !ok {
		t.Fatalf("first claim should win")
	}
	if err := repo.Release(ctx, "j1", StateProcessing, t0); err != nil {
		t.Fatalf("Release for another stage: %v", err)
	}
	if job, _ := repo.GetByID(ctx, "j1"); job.ClaimedStage != StateAnalyzing {
		t.Fatalf("release for another stage must keep the claim, got %+v", job)
	}
	if err := repo.Release(ctx, "j1", StateAnalyzing, t0); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := repo.Claim(ctx, "j1", StateAnalyzing, t0, t0.Add(-time.Minute)); !ok {
		t.Fatalf("released stage should be claimable again")
	}
}
