package profiles

import (
	"reflect"
	"testing"
	"time"
)

func TestMergeUnionsSetsAndReplacesScalars(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	base := CompanyProfile{
		UserID:             "u1",
		CompanyDescription: "Old description",
		CompanyActivities:  []string{"Road construction"},
		Keywords:           []Keyword{{Source: "asphalt", Target: "أسفلت"}},
	}
	ext := Extraction{
		CompanyDescription: "  New description ",
		Activities:         []string{"road construction", "Bridge maintenance", ""},
		Industries:         []string{"Construction"},
		Keywords:           []Keyword{{Source: "Asphalt", Target: "أسفلت"}, {Source: "bridges"}},
	}

	got := Merge(base, ext, "job-2", at)

	if got.CompanyDescription != "New description" {
		t.Fatalf("description not replaced: %q", got.CompanyDescription)
	}
	if !reflect.DeepEqual(got.CompanyActivities, []string{"Road construction", "Bridge maintenance"}) {
		t.Fatalf("unexpected activities %v", got.CompanyActivities)
	}
	if len(got.Keywords) != 2 || got.Keywords[1].Source != "bridges" {
		t.Fatalf("unexpected keywords %+v", got.Keywords)
	}
	if !got.DocumentProcessed || got.LastJobID != "job-2" || !got.UpdatedAt.Equal(at) {
		t.Fatalf("bookkeeping not updated: %+v", got)
	}
	if got.CompletenessScore != Completeness(got) {
		t.Fatalf("score %d not recomputed", got.CompletenessScore)
	}
	if len(base.CompanyActivities) != 1 {
		t.Fatalf("Merge mutated its input")
	}
}

func TestMergeKeepsScalarsWhenExtractionBlank(t *testing.T) {
	base := CompanyProfile{BusinessType: "LLC"}
	got := Merge(base, Extraction{}, "job-1", time.Now())
	if got.BusinessType != "LLC" {
		t.Fatalf("blank extraction should not erase business type")
	}
	if got.CompletenessScore != WeightDocumentProcessed+WeightBusinessType {
		t.Fatalf("unexpected score %d", got.CompletenessScore)
	}
}
