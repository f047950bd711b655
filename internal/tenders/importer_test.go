package tenders

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestParseJSONListAndWrapped(t *testing.T) {
	list := `[{"title":"Road resurfacing","category":"Construction","source":"etimad","externalId":"E-1","deadline":"2026-06-01"}]`
	got, err := Parse(strings.NewReader(list), "json", "")
	if err != nil {
		t.Fatalf("Parse list: %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "E-1" {
		t.Fatalf("unexpected tenders %+v", got)
	}
	if got[0].Deadline == nil || !got[0].Deadline.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected deadline %v", got[0].Deadline)
	}

	wrapped := `{"tenders":[{"title":"Catering","bidNumber":"B-77"}]}`
	got, err = Parse(strings.NewReader(wrapped), "json", "portal")
	if err != nil {
		t.Fatalf("Parse wrapped: %v", err)
	}
	if got[0].Source != "portal" || got[0].BidNumber != "B-77" {
		t.Fatalf("default source not applied: %+v", got[0])
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
tenders:
  - title: Hospital cleaning services
    agency: Ministry of Health
    category: Services
    source: etimad
    bidNumber: "2026-0042"
    deadline: 2026-07-15
    valueMin: 100000
`
	got, err := Parse(strings.NewReader(doc), "yaml", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 tender, got %d", len(got))
	}
	if got[0].ValueMin == nil || *got[0].ValueMin != 100000 {
		t.Fatalf("unexpected valueMin %v", got[0].ValueMin)
	}
	if got[0].Deadline == nil || got[0].Deadline.Month() != time.July {
		t.Fatalf("unexpected deadline %v", got[0].Deadline)
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Title", "Category", "Source", "External_ID", "Value_Max", "Deadline"},
		{"Water pipeline maintenance", "Construction", "etimad", "X-9", "2,500,000", "2026-09-30"},
		{},
		{"IT support", "Technology", "etimad", "X-10", "", ""},
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	got, err := Parse(buf, "xlsx", "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 tenders, got %d", len(got))
	}
	if got[0].ValueMax == nil || *got[0].ValueMax != 2500000 {
		t.Fatalf("unexpected valueMax %v", got[0].ValueMax)
	}
	if got[1].Deadline != nil {
		t.Fatalf("expected no deadline, got %v", got[1].Deadline)
	}
}

func TestParseRejectsRecordsWithoutIdentity(t *testing.T) {
	_, err := Parse(strings.NewReader(`[{"title":"No key","source":"etimad"}]`), "json", "")
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
	_, err = Parse(strings.NewReader(`[{"title":"x","externalId":"1"}]`), "json", "")
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord without source, got %v", err)
	}
	if _, err := Parse(strings.NewReader(""), "csv", "x"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
