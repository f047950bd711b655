package tenders

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

var (
	ErrNotFound      = errors.New("tender not found")
	ErrInvalidRecord = errors.New("invalid tender record")
)

// Tender is a scraped government tender. Matching treats tenders as read-only.
type Tender struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Agency     string     `json:"agency"`
	Category   string     `json:"category"`
	Location   string     `json:"location"`
	ValueMin   *float64   `json:"valueMin,omitempty"`
	ValueMax   *float64   `json:"valueMax,omitempty"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Status     string     `json:"status"`
	Source     string     `json:"source"`
	ExternalID string     `json:"externalId,omitempty"`
	BidNumber  string     `json:"bidNumber,omitempty"`
}

// DedupeKey identifies a tender within its source: the external ID when the
// source provides one, otherwise the bid number.
func DedupeKey(t Tender) (string, error) {
	if strings.TrimSpace(t.Source) == "" {
		return "", errors.Join(ErrInvalidRecord, errors.New("source is required"))
	}
	if id := strings.TrimSpace(t.ExternalID); id != "" {
		return "ext:" + id, nil
	}
	if bid := strings.TrimSpace(t.BidNumber); bid != "" {
		return "bid:" + bid, nil
	}
	return "", errors.Join(ErrInvalidRecord, errors.New("externalId or bidNumber is required"))
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
