package profiles

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepoApplyCreatesAndGet(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if _, err := repo.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p, err := repo.Apply(ctx, "u1", Extraction{Keywords: []Keyword{{Source: "paving"}}}, "job-1", time.Now())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if p.CompletenessScore != WeightDocumentProcessed+WeightKeywords {
		t.Fatalf("unexpected score %d", p.CompletenessScore)
	}

	got, _ := repo.Get(ctx, "u1")
	got.Keywords[0].Source = "mutated"
	again, _ := repo.Get(ctx, "u1")
	if again.Keywords[0].Source != "paving" {
		t.Fatalf("Get must return a copy")
	}
}

func TestMemoryRepoApplyLastWriterWins(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	_, _ = repo.Apply(ctx, "u1", Extraction{BusinessType: "first"}, "job-1", time.Now())
	_, _ = repo.Apply(ctx, "u1", Extraction{BusinessType: "second"}, "job-2", time.Now())
	p, _ := repo.Get(ctx, "u1")
	if p.BusinessType != "second" || p.LastJobID != "job-2" {
		t.Fatalf("expected last apply to win, got %+v", p)
	}
}

func TestMemoryRepoReadersNeverSeePartialApply(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Apply(ctx, "u1", Extraction{
				CompanyDescription: fmt.Sprintf("desc-%d", i),
				Activities:         []string{fmt.Sprintf("activity-%d", i)},
			}, fmt.Sprintf("job-%d", i), time.Now())
		}(i)
	}
	stop := make(chan struct{})
	errs := make(chan error, 1)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			p, err := repo.Get(ctx, "u1")
			if err != nil {
				continue
			}
			if p.CompletenessScore != Completeness(p) {
				select {
				case errs <- fmt.Errorf("score %d inconsistent with fields", p.CompletenessScore):
				default:
				}
			}
		}
	}()
	wg.Wait()
	close(stop)

	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
	p, _ := repo.Get(ctx, "u1")
	if len(p.CompanyActivities) != 20 {
		t.Fatalf("expected all 20 activities unioned, got %d", len(p.CompanyActivities))
	}
}
