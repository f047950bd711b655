package documents

import "time"

// Upload limits. Both bounds are inclusive.
const (
	MimePDF      = "application/pdf"
	MaxSizeBytes = 10 << 20
	MaxPages     = 100
)

// Document is an uploaded file owned by a user. Documents are immutable once created.
type Document struct {
	ID              string
	UserID          string
	FileName        string
	MimeType        string
	SizeBytes       int64
	PageCount       int
	StorageProvider string
	StorageKey      string
	CreatedAt       time.Time
}
