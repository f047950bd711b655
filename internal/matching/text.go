package matching

import (
	"math"
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)
	spaceRun     = regexp.MustCompile(`\s+`)
	stopwords    = defaultStopwords()
)

// normalizeTerm lowercases, trims and collapses inner whitespace.
func normalizeTerm(s string) string {
	return spaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// tokenize splits text into lowercase letter/digit tokens, dropping stopwords.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func tokenSet(texts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, text := range texts {
		for _, tok := range tokenize(text) {
			set[tok] = struct{}{}
		}
	}
	return set
}

// smoothedIDF is log((1+N)/(1+df)) + 1, always positive.
func smoothedIDF(n, df int) float64 {
	return math.Log((1+float64(n))/(1+float64(df))) + 1.0
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "should", "now", "we", "our", "us", "all", "other", "also",
		// Arabic particles
		"في", "من", "على", "إلى", "الى", "عن", "مع", "و", "أو", "ثم", "هذا", "هذه", "التي", "الذي",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
