package profiles

import "strings"

// Completeness weights. They sum to exactly 100.
const (
	WeightDocumentProcessed = 30
	WeightDescription       = 15
	WeightBusinessType      = 10
	WeightActivities        = 10
	WeightIndustries        = 10
	WeightSpecializations   = 10
	WeightKeywords          = 15
)

// Completeness scores how filled-in a profile is, in [0,100].
func Completeness(p CompanyProfile) int {
	score := 0
	if p.DocumentProcessed {
		score += WeightDocumentProcessed
	}
	if strings.TrimSpace(p.CompanyDescription) != "" {
		score += WeightDescription
	}
	if strings.TrimSpace(p.BusinessType) != "" {
		score += WeightBusinessType
	}
	if anyNonBlank(p.CompanyActivities) {
		score += WeightActivities
	}
	if anyNonBlank(p.MainIndustries) {
		score += WeightIndustries
	}
	if anyNonBlank(p.Specializations) {
		score += WeightSpecializations
	}
	for _, kw := range p.Keywords {
		if strings.TrimSpace(kw.Source) != "" || strings.TrimSpace(kw.Target) != "" {
			score += WeightKeywords
			break
		}
	}
	return min(max(score, 0), 100)
}

func anyNonBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
