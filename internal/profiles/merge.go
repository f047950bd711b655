package profiles

import (
	"strings"
	"time"
)

// Merge applies an extraction to a profile. Non-empty scalar fields replace
// the stored value. Set fields and keywords are unioned, keeping first-seen
// order, so successive documents refine rather than erase the profile.
// The completeness score is recomputed from the result.
func Merge(p CompanyProfile, ext Extraction, jobID string, at time.Time) CompanyProfile {
	out := p.Clone()
	if v := strings.TrimSpace(ext.CompanyDescription); v != "" {
		out.CompanyDescription = v
	}
	if v := strings.TrimSpace(ext.BusinessType); v != "" {
		out.BusinessType = v
	}
	out.CompanyActivities = unionStrings(out.CompanyActivities, ext.Activities)
	out.MainIndustries = unionStrings(out.MainIndustries, ext.Industries)
	out.Specializations = unionStrings(out.Specializations, ext.Specializations)
	out.Keywords = unionKeywords(out.Keywords, ext.Keywords)
	out.DocumentProcessed = true
	out.LastJobID = jobID
	out.UpdatedAt = at.UTC()
	out.CompletenessScore = Completeness(out)
	return out
}

func unionStrings(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			key := strings.ToLower(v)
			if v == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func unionKeywords(existing, incoming []Keyword) []Keyword {
	out := make([]Keyword, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, list := range [][]Keyword{existing, incoming} {
		for _, kw := range list {
			kw.Source = strings.TrimSpace(kw.Source)
			kw.Target = strings.TrimSpace(kw.Target)
			if kw.Source == "" && kw.Target == "" {
				continue
			}
			key := strings.ToLower(kw.Source) + "\x00" + strings.ToLower(kw.Target)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
