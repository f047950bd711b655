package profiles

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile not found")

// Keyword is a bilingual search term pair. Target may be empty.
type Keyword struct {
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
}

// Extraction is what one processing job derived from a document.
type Extraction struct {
	CompanyDescription string    `json:"companyDescription"`
	BusinessType       string    `json:"businessType"`
	Activities         []string  `json:"activities"`
	Industries         []string  `json:"industries"`
	Specializations    []string  `json:"specializations"`
	Keywords           []Keyword `json:"keywords"`
}

// CompanyProfile is a user's matching profile.
type CompanyProfile struct {
	UserID             string    `json:"userId"`
	CompanyDescription string    `json:"companyDescription"`
	BusinessType       string    `json:"businessType"`
	CompanyActivities  []string  `json:"companyActivities"`
	MainIndustries     []string  `json:"mainIndustries"`
	Specializations    []string  `json:"specializations"`
	Keywords           []Keyword `json:"keywords"`
	DocumentProcessed  bool      `json:"documentProcessed"`
	CompletenessScore  int       `json:"completenessScore"`
	LastJobID          string    `json:"lastJobId,omitempty"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share slices with a store.
func (p CompanyProfile) Clone() CompanyProfile {
	out := p
	out.CompanyActivities = append([]string(nil), p.CompanyActivities...)
	out.MainIndustries = append([]string(nil), p.MainIndustries...)
	out.Specializations = append([]string(nil), p.Specializations...)
	out.Keywords = append([]Keyword(nil), p.Keywords...)
	return out
}
