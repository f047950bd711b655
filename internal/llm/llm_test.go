package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeKeywords(t *testing.T) {
	in := []Keyword{
		{Source: " paving ", Target: " رصف "},
		{Source: "Paving", Target: "duplicate"},
		{Source: "", Target: ""},
		{Source: "", Target: "طرق"},
	}
	got := NormalizeKeywords(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 keywords, got %+v", got)
	}
	if got[0] != (Keyword{Source: "paving", Target: "رصف"}) {
		t.Fatalf("unexpected first keyword %+v", got[0])
	}
	if got[1].Source != "طرق" || got[1].Target != "" {
		t.Fatalf("target-only keyword should be promoted to source, got %+v", got[1])
	}
	if NormalizeKeywords(nil) == nil {
		t.Fatalf("expected non-nil empty slice")
	}
}

func TestNormalizeKeywordsBounds(t *testing.T) {
	var in []Keyword
	for i := 0; i < MaxKeywords+5; i++ {
		in = append(in, Keyword{Source: fmt.Sprintf("k%d", i)})
	}
	got := NormalizeKeywords(in)
	if len(got) != MaxKeywords || got[0].Source != "k0" {
		t.Fatalf("expected first %d keywords, got %d", MaxKeywords, len(got))
	}
}

func TestDecodeKeywordsValidatesShape(t *testing.T) {
	got, err := DecodeKeywords([]byte(`{"keywords":[{"source":"solar","target":"طاقة شمسية"}]}`))
	if err != nil {
		t.Fatalf("DecodeKeywords: %v", err)
	}
	if len(got) != 1 || got[0].Target != "طاقة شمسية" {
		t.Fatalf("unexpected keywords %+v", got)
	}

	empty, err := DecodeKeywords([]byte(`{"keywords":[]}`))
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty list is a valid result, got %v %v", empty, err)
	}

	for _, bad := range []string{`{"words":[]}`, `{"keywords":[{"target":"x"}]}`, `{"keywords":"solar"}`, `not json`} {
		if _, err := DecodeKeywords([]byte(bad)); err == nil {
			t.Fatalf("expected schema error for %s", bad)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	raw := `{"companyDescription":" Contractor ","businessType":"LLC","activities":["roads",""],"industries":["construction"],"specializations":[]}`
	got, err := DecodeFields([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeFields: %v", err)
	}
	if got.CompanyDescription != "Contractor" || len(got.Activities) != 1 {
		t.Fatalf("unexpected fields %+v", got)
	}
	if _, err := DecodeFields([]byte(`{"companyDescription":"x"}`)); err == nil {
		t.Fatalf("expected error for missing required fields")
	}
}

func TestPlaceholderClient(t *testing.T) {
	var c PlaceholderClient
	if _, err := c.GenerateKeywords(context.Background(), KeywordInput{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if _, err := c.ExtractFields(context.Background(), FieldInput{}); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}
