package matching

import (
	"strings"

	"tender-backend/internal/profiles"
)

// Field names the profile field a query term came from.
type Field string

const (
	FieldDescription    Field = "description"
	FieldSpecialization Field = "specialization"
	FieldActivity       Field = "activity"
	FieldIndustry       Field = "industry"
	FieldKeyword        Field = "keyword"
)

// WeightedTerm is one emission into the query. Repeated emissions of the
// same term add up during scoring.
type WeightedTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Field  Field   `json:"field"`
}

// SearchQuery is the weighted term list built from a profile.
type SearchQuery struct {
	RawText string         `json:"rawText"`
	Terms   []WeightedTerm `json:"terms"`
	// CategoryOnly is set when the profile has neither keywords nor a
	// description; the engine then matches tender categories only.
	CategoryOnly bool `json:"categoryOnly"`
}

// keywordEmissions is how many times each keyword is emitted relative to
// the single emission of declared fields.
const keywordEmissions = 2

// BuildQuery turns a profile into a SearchQuery. The pool is built in a
// fixed order: description, specializations, activities, industries,
// keywords. Declared field values are emitted once; every keyword is emitted
// twice, both its source term and its target term when that differs.
// BuildQuery is pure.
func BuildQuery(p profiles.CompanyProfile) SearchQuery {
	var terms []WeightedTerm
	emit := func(term string, field Field) {
		if term = normalizeTerm(term); term != "" {
			terms = append(terms, WeightedTerm{Term: term, Weight: 1, Field: field})
		}
	}

	// description contributes its distinct content words
	seen := make(map[string]struct{})
	for _, tok := range tokenize(p.CompanyDescription) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		emit(tok, FieldDescription)
	}
	for _, v := range p.Specializations {
		emit(v, FieldSpecialization)
	}
	for _, v := range p.CompanyActivities {
		emit(v, FieldActivity)
	}
	for _, v := range p.MainIndustries {
		emit(v, FieldIndustry)
	}

	hasKeyword := false
	for _, kw := range p.Keywords {
		source := normalizeTerm(kw.Source)
		target := normalizeTerm(kw.Target)
		for i := 0; i < keywordEmissions; i++ {
			emit(source, FieldKeyword)
			if target != source {
				emit(target, FieldKeyword)
			}
		}
		if source != "" || target != "" {
			hasKeyword = true
		}
	}

	raw := make([]string, len(terms))
	for i, t := range terms {
		raw[i] = t.Term
	}
	return SearchQuery{
		RawText:      strings.Join(raw, " "),
		Terms:        terms,
		CategoryOnly: !hasKeyword && strings.TrimSpace(p.CompanyDescription) == "",
	}
}
