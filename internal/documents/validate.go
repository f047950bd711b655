package documents

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"

	"tender-backend/internal/shared/util"
)

// Meta is what validation learns about an accepted upload.
type Meta struct {
	MimeType  string
	PageCount int
}

// Validator enforces upload constraints before anything is persisted.
type Validator struct {
	MaxBytes   int64
	MaxPages   int
	CountPages func(data []byte) (int, error)
}

// DefaultValidator applies the production limits.
func DefaultValidator() Validator {
	return Validator{MaxBytes: MaxSizeBytes, MaxPages: MaxPages, CountPages: CountPDFPages}
}

// Validate checks the file name, then size, then type, then page count.
func (v Validator) Validate(fileName string, data []byte) (Meta, error) {
	maxBytes := v.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxSizeBytes
	}
	maxPages := v.MaxPages
	if maxPages <= 0 {
		maxPages = MaxPages
	}
	countPages := v.CountPages
	if countPages == nil {
		countPages = CountPDFPages
	}

	if strings.TrimSpace(fileName) == "" {
		return Meta{}, &ValidationError{Field: "file", Message: "file name is required"}
	}
	if _, err := util.SanitizeFileName(fileName); err != nil {
		return Meta{}, &ValidationError{Field: "fileName", Message: "invalid file name"}
	}
	if len(data) == 0 {
		return Meta{}, &ValidationError{Field: "file", Message: "file is empty"}
	}
	if int64(len(data)) > maxBytes {
		return Meta{}, &ValidationError{
			Field:   "sizeBytes",
			Message: fmt.Sprintf("file exceeds maximum size of %d bytes", maxBytes),
		}
	}

	mimeType := detectMime(data)
	if mimeType != MimePDF {
		return Meta{}, &ValidationError{
			Field:   "mimeType",
			Message: fmt.Sprintf("unsupported file type %q: only %s is accepted", mimeType, MimePDF),
		}
	}

	pages, err := countPages(data)
	if err != nil {
		return Meta{}, &ValidationError{Field: "file", Message: "file is not a readable PDF"}
	}
	if pages > maxPages {
		return Meta{}, &ValidationError{
			Field:   "pageCount",
			Message: fmt.Sprintf("document has %d pages, maximum is %d", pages, maxPages),
		}
	}
	return Meta{MimeType: mimeType, PageCount: pages}, nil
}

// CountPDFPages reads the page tree of a PDF payload.
func CountPDFPages(data []byte) (count int, err error) {
	// pdf panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			count, err = 0, fmt.Errorf("parse pdf: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return r.NumPage(), nil
}

func detectMime(data []byte) string {
	sniff := data
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	mimeType := http.DetectContentType(sniff)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}
