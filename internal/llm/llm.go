package llm

import (
	"context"
	"errors"
	"strings"
)

// MaxKeywords bounds the keyword pairs kept from one generation.
const MaxKeywords = 15

// Keyword is a source-language term and its target-language equivalent.
type Keyword struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// KeywordInput is what the keyword generator sees.
type KeywordInput struct {
	Text            string
	Industries      []string
	Specializations []string
	SourceLocale    string
	TargetLocale    string
}

// FieldInput is what the field extractor sees.
type FieldInput struct {
	Text string
}

// ProfileFields are the structured company fields read from a document.
type ProfileFields struct {
	CompanyDescription string   `json:"companyDescription"`
	BusinessType       string   `json:"businessType"`
	Activities         []string `json:"activities"`
	Industries         []string `json:"industries"`
	Specializations    []string `json:"specializations"`
}

// KeywordGenerator produces bilingual search keywords. An empty slice is a
// valid result, distinct from an error.
type KeywordGenerator interface {
	GenerateKeywords(ctx context.Context, input KeywordInput) ([]Keyword, error)
}

// FieldExtractor reads structured profile fields out of document text.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, input FieldInput) (ProfileFields, error)
}

// ErrNotImplemented is returned by the placeholder client.
var ErrNotImplemented = errors.New("LLM not implemented")

// PlaceholderClient stands in when no provider is configured.
type PlaceholderClient struct{}

// GenerateKeywords returns ErrNotImplemented.
func (PlaceholderClient) GenerateKeywords(context.Context, KeywordInput) ([]Keyword, error) {
	return nil, ErrNotImplemented
}

// ExtractFields returns ErrNotImplemented.
func (PlaceholderClient) ExtractFields(context.Context, FieldInput) (ProfileFields, error) {
	return ProfileFields{}, ErrNotImplemented
}

// NormalizeKeywords trims pairs, drops empty and repeated ones and keeps at
// most MaxKeywords in their original order. It never returns nil.
func NormalizeKeywords(in []Keyword) []Keyword {
	out := make([]Keyword, 0, min(len(in), MaxKeywords))
	seen := make(map[string]struct{}, len(in))
	for _, kw := range in {
		kw.Source = strings.TrimSpace(kw.Source)
		kw.Target = strings.TrimSpace(kw.Target)
		if kw.Source == "" {
			if kw.Target == "" {
				continue
			}
			kw.Source, kw.Target = kw.Target, ""
		}
		key := strings.ToLower(kw.Source)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, kw)
		if len(out) == MaxKeywords {
			break
		}
	}
	return out
}

// NormalizeFields trims scalars and drops blank list entries.
func NormalizeFields(f ProfileFields) ProfileFields {
	clean := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, v := range in {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	return ProfileFields{
		CompanyDescription: strings.TrimSpace(f.CompanyDescription),
		BusinessType:       strings.TrimSpace(f.BusinessType),
		Activities:         clean(f.Activities),
		Industries:         clean(f.Industries),
		Specializations:    clean(f.Specializations),
	}
}

var (
	_ KeywordGenerator = PlaceholderClient{}
	_ FieldExtractor   = PlaceholderClient{}
)
