package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const mimePDF = "application/pdf"

// PDFText reads the embedded text layer of a PDF. It does not rasterize, so
// scanned documents without a text layer yield ErrNoText.
type PDFText struct{}

// Extract implements Extractor.
func (PDFText) Extract(ctx context.Context, in Input) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	mime := strings.ToLower(strings.TrimSpace(strings.Split(in.MimeType, ";")[0]))
	if mime != mimePDF {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			res, err = Result{}, fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return Result{}, fmt.Errorf("read pdf text: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return Result{}, ErrNoText
	}
	return Result{Text: text, PageCount: reader.NumPage()}, nil
}

var _ Extractor = PDFText{}
