package util

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "profile.pdf", want: "profile.pdf"},
		{in: " dir/sub\\file.pdf ", want: "dir_sub_file.pdf"},
		{in: "../etc/passwd", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		got, err := SanitizeFileName(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("SanitizeFileName(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("SanitizeFileName(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSanitizeMessage(t *testing.T) {
	if got := SanitizeMessage(nil); got != "" {
		t.Fatalf("expected empty message for nil, got %q", got)
	}
	if got := SanitizeMessage(errors.New(" ocr failed\nline two\r ")); got != "ocr failed line two" {
		t.Fatalf("unexpected flattened message %q", got)
	}
	long := strings.Repeat("é", MaxMessageLen)
	got := SanitizeMessage(errors.New(long))
	if len(got) > MaxMessageLen {
		t.Fatalf("expected at most %d bytes, got %d", MaxMessageLen, len(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf8 after truncation")
	}
}
