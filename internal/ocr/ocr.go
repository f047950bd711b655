package ocr

import (
	"context"
	"errors"
)

// Input is one document handed to an extractor.
type Input struct {
	DocumentID string
	FileName   string
	MimeType   string
	Data       []byte
}

// Result is the text recovered from a document.
type Result struct {
	Text      string
	PageCount int
}

// Extractor turns document bytes into text. Implementations must honour the
// context deadline.
type Extractor interface {
	Extract(ctx context.Context, in Input) (Result, error)
}

var (
	ErrUnsupported = errors.New("unsupported document type")
	ErrNoText      = errors.New("no text found in document")
	ErrFailed      = errors.New("ocr job failed")
)
