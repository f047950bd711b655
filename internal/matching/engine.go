package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"tender-backend/internal/profiles"
	"tender-backend/internal/tenders"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// categoryOnlyCeiling caps scores when only tender categories are compared.
	categoryOnlyCeiling = 25.0
)

var ErrInvalidArgument = errors.New("invalid argument")

// MatchOptions bounds and filters a match request.
type MatchOptions struct {
	Limit    int
	Category string
}

// MatchResult is one ranked tender.
type MatchResult struct {
	TenderID     string         `json:"tenderId"`
	Score        float64        `json:"score"`
	Rank         int            `json:"rank"`
	MatchedTerms []string       `json:"matchedTerms"`
	Tender       tenders.Tender `json:"tender"`
}

// Engine scores tenders from a corpus against weighted queries.
type Engine struct {
	Corpus tenders.Corpus
}

// NewEngine constructs an Engine over corpus.
func NewEngine(corpus tenders.Corpus) *Engine {
	return &Engine{Corpus: corpus}
}

// Match builds the query for profile and ranks the corpus against it.
func (e *Engine) Match(ctx context.Context, p profiles.CompanyProfile, opts MatchOptions) ([]MatchResult, error) {
	return e.MatchQuery(ctx, BuildQuery(p), opts)
}

// MatchQuery ranks the corpus against q. Results are ordered by score
// descending, then nearer deadline, then tender ID; at most opts.Limit are
// returned. Every call recomputes from the corpus.
func (e *Engine) MatchQuery(ctx context.Context, q SearchQuery, opts MatchOptions) ([]MatchResult, error) {
	if opts.Limit <= 0 || opts.Limit > MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidArgument, MaxLimit)
	}

	var (
		candidates []tenders.Tender
		err        error
	)
	if category := strings.TrimSpace(opts.Category); category != "" {
		candidates, err = e.Corpus.FindByCategory(ctx, category)
	} else {
		candidates, err = e.Corpus.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load tenders: %w", err)
	}
	if len(candidates) == 0 {
		return []MatchResult{}, nil
	}

	results := score(q, candidates)
	sort.SliceStable(results, func(i, j int) bool {
		return less(results[i], results[j])
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

type queryTerm struct {
	term   string
	tokens []string
	weight float64
}

// score computes 100 * matched/total, where each distinct term weighs its
// summed emission weight times the mean smoothed IDF of its tokens over the
// candidate set. A term matches when all of its tokens occur in the tender.
func score(q SearchQuery, candidates []tenders.Tender) []MatchResult {
	docs := make([]map[string]struct{}, len(candidates))
	for i, t := range candidates {
		if q.CategoryOnly {
			docs[i] = tokenSet(t.Category)
		} else {
			docs[i] = tokenSet(t.Title, t.Agency, t.Category, t.Location, t.BidNumber)
		}
	}

	terms := collapse(q.Terms)
	df := make(map[string]int)
	for _, doc := range docs {
		for tok := range doc {
			df[tok]++
		}
	}

	total := 0.0
	values := make([]float64, len(terms))
	for i, qt := range terms {
		idf := 0.0
		for _, tok := range qt.tokens {
			idf += smoothedIDF(len(docs), df[tok])
		}
		values[i] = qt.weight * idf / float64(len(qt.tokens))
		total += values[i]
	}

	ceiling := 100.0
	if q.CategoryOnly {
		ceiling = categoryOnlyCeiling
	}

	results := make([]MatchResult, len(candidates))
	for i, t := range candidates {
		matched := 0.0
		matchedTerms := []string{}
		for j, qt := range terms {
			if containsAll(docs[i], qt.tokens) {
				matched += values[j]
				matchedTerms = append(matchedTerms, qt.term)
			}
		}
		s := 0.0
		if total > 0 {
			s = round2(ceiling * matched / total)
		}
		results[i] = MatchResult{TenderID: t.ID, Score: s, MatchedTerms: matchedTerms, Tender: t}
	}
	return results
}

// collapse merges repeated emissions of a term, keeping first-seen order.
func collapse(in []WeightedTerm) []queryTerm {
	index := make(map[string]int)
	var out []queryTerm
	for _, wt := range in {
		if wt.Weight <= 0 {
			continue
		}
		term := normalizeTerm(wt.Term)
		if i, ok := index[term]; ok {
			out[i].weight += wt.Weight
			continue
		}
		tokens := tokenize(term)
		if len(tokens) == 0 {
			continue
		}
		index[term] = len(out)
		out = append(out, queryTerm{term: term, tokens: tokens, weight: wt.Weight})
	}
	return out
}

func containsAll(doc map[string]struct{}, tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := doc[tok]; !ok {
			return false
		}
	}
	return true
}

func less(a, b MatchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	da, db := a.Tender.Deadline, b.Tender.Deadline
	switch {
	case da != nil && db != nil && !da.Equal(*db):
		return da.Before(*db)
	case da != nil && db == nil:
		return true
	case da == nil && db != nil:
		return false
	}
	return a.TenderID < b.TenderID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
