// Package testutil builds fixtures shared by package tests.
package testutil

import (
	"bytes"
	"fmt"
	"strings"
)

// PDF returns a minimal, well-formed PDF with one text line per page.
func PDF(pages []string) []byte {
	return build(pages, 0)
}

// PDFPages returns a PDF with n pages that all carry the same text.
func PDFPages(n int, text string) []byte {
	return PDF(Pages(n, text))
}

// Pages returns n copies of text, one per page.
func Pages(n int, text string) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = text
	}
	return pages
}

// PDFOfSize returns a PDF of exactly size bytes. The document is padded with
// a comment line after the header, which readers skip.
func PDFOfSize(pages []string, size int) []byte {
	pad := size - len(build(pages, 0))
	if pad < 0 {
		pad = 0
	}
	var out []byte
	for i := 0; i < 8; i++ {
		out = build(pages, pad)
		switch {
		case len(out) == size:
			return out
		case len(out) < size:
			pad += size - len(out)
		default:
			pad -= len(out) - size
			if pad < 0 {
				pad = 0
			}
		}
	}
	for len(out) < size {
		out = append(out, '\n')
	}
	return out
}

func build(pages []string, pad int) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	if pad > 0 {
		// "%" + filler + "\n" occupies exactly pad bytes once pad >= 2.
		if pad < 2 {
			pad = 2
		}
		buf.WriteString("%")
		buf.WriteString(strings.Repeat("x", pad-2))
		buf.WriteString("\n")
	}

	// object numbering: 1 catalog, 2 pages, 3 font, then page/content pairs
	n := 3 + 2*len(pages)
	offsets := make([]int, n+1)
	writeObj := func(id int, body string) {
		offsets[id] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", id, body)
	}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	writeObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		pageID := 4 + 2*i
		contentID := pageID + 1
		writeObj(pageID, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentID))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", escape(text))
		writeObj(contentID, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", n+1)
	buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= n; id++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[id])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", n+1, xref)
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`)
	return r.Replace(s)
}
