package tenders

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Record is the scraper's tender contract as it appears in import files.
type Record struct {
	ID         string   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Agency     string   `json:"agency" yaml:"agency"`
	Category   string   `json:"category" yaml:"category"`
	Location   string   `json:"location" yaml:"location"`
	ValueMin   *float64 `json:"valueMin" yaml:"valueMin"`
	ValueMax   *float64 `json:"valueMax" yaml:"valueMax"`
	Deadline   string   `json:"deadline" yaml:"deadline"`
	Status     string   `json:"status" yaml:"status"`
	Source     string   `json:"source" yaml:"source"`
	ExternalID string   `json:"externalId" yaml:"externalId"`
	BidNumber  string   `json:"bidNumber" yaml:"bidNumber"`
}

type recordFile struct {
	Tenders []Record `json:"tenders" yaml:"tenders"`
}

// LoadFile reads tenders from a .json, .yaml/.yml or .xlsx file. Records
// without a source get defaultSource.
func LoadFile(path, defaultSource string) ([]Tender, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, formatFromPath(path), defaultSource)
}

// Parse decodes tender records in the given format ("json", "yaml" or "xlsx").
func Parse(r io.Reader, format, defaultSource string) ([]Tender, error) {
	var records []Record
	var err error
	switch format {
	case "json":
		records, err = parseJSON(r)
	case "yaml":
		records, err = parseYAML(r)
	case "xlsx":
		records, err = parseXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported tender file format %q", format)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Tender, 0, len(records))
	for i, rec := range records {
		t, err := rec.toTender(defaultSource)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".xlsx":
		return "xlsx"
	default:
		return ""
	}
}

func parseJSON(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []Record
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return list, nil
	}
	var wrapped recordFile
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return wrapped.Tenders, nil
}

func parseYAML(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var list []Record
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		return list, nil
	}
	var wrapped recordFile
	if err := node.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return wrapped.Tenders, nil
}

var xlsxColumns = map[string]string{
	"id":          "id",
	"title":       "title",
	"agency":      "agency",
	"category":    "category",
	"location":    "location",
	"value_min":   "valueMin",
	"valuemin":    "valueMin",
	"value_max":   "valueMax",
	"valuemax":    "valueMax",
	"deadline":    "deadline",
	"status":      "status",
	"source":      "source",
	"external_id": "externalId",
	"externalid":  "externalId",
	"bid_number":  "bidNumber",
	"bidnumber":   "bidNumber",
}

// parseXLSX reads the first sheet. Row 1 holds column names.
func parseXLSX(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = xlsxColumns[strings.ToLower(strings.TrimSpace(h))]
	}

	var out []Record
	for _, row := range rows[1:] {
		var rec Record
		empty := true
		for i, cell := range row {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			empty = false
			if err := rec.set(fields[i], cell); err != nil {
				return nil, err
			}
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (rec *Record) set(field, value string) error {
	switch field {
	case "id":
		rec.ID = value
	case "title":
		rec.Title = value
	case "agency":
		rec.Agency = value
	case "category":
		rec.Category = value
	case "location":
		rec.Location = value
	case "valueMin", "valueMax":
		v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		if field == "valueMin" {
			rec.ValueMin = &v
		} else {
			rec.ValueMax = &v
		}
	case "deadline":
		rec.Deadline = value
	case "status":
		rec.Status = value
	case "source":
		rec.Source = value
	case "externalId":
		rec.ExternalID = value
	case "bidNumber":
		rec.BidNumber = value
	}
	return nil
}

func (rec Record) toTender(defaultSource string) (Tender, error) {
	t := Tender{
		ID:         strings.TrimSpace(rec.ID),
		Title:      strings.TrimSpace(rec.Title),
		Agency:     strings.TrimSpace(rec.Agency),
		Category:   strings.TrimSpace(rec.Category),
		Location:   strings.TrimSpace(rec.Location),
		ValueMin:   rec.ValueMin,
		ValueMax:   rec.ValueMax,
		Status:     strings.ToLower(strings.TrimSpace(rec.Status)),
		Source:     strings.TrimSpace(rec.Source),
		ExternalID: strings.TrimSpace(rec.ExternalID),
		BidNumber:  strings.TrimSpace(rec.BidNumber),
	}
	if t.Source == "" {
		t.Source = defaultSource
	}
	if t.Title == "" {
		return Tender{}, errors.Join(ErrInvalidRecord, errors.New("title is required"))
	}
	if rec.Deadline != "" {
		d, err := parseDeadline(rec.Deadline)
		if err != nil {
			return Tender{}, errors.Join(ErrInvalidRecord, err)
		}
		t.Deadline = &d
	}
	if _, err := DedupeKey(t); err != nil {
		return Tender{}, err
	}
	return t, nil
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02", "02/01/2006"}

func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// spreadsheet serial dates
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", s)
}
