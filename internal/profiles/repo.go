package profiles

import (
	"context"
	"time"
)

// Repo persists company profiles. Apply is atomic: readers see either the
// profile before the extraction or after it, never a mix.
type Repo interface {
	Get(ctx context.Context, userID string) (CompanyProfile, error)
	Apply(ctx context.Context, userID string, ext Extraction, jobID string, at time.Time) (CompanyProfile, error)
}
