package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"ENV", "PORT", "OCR_TIMEOUT", "LLM_PROVIDER", "OCR_PROVIDER", "WORKER_CONCURRENCY"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.OCRTimeout != 2*time.Minute {
		t.Fatalf("expected OCR timeout 2m, got %s", cfg.OCRTimeout)
	}
	if cfg.LLMProvider != "placeholder" {
		t.Fatalf("expected placeholder provider, got %q", cfg.LLMProvider)
	}
	if cfg.OCRProvider != "pdftext" {
		t.Fatalf("expected pdftext OCR, got %q", cfg.OCRProvider)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Fatalf("expected concurrency 4, got %d", cfg.WorkerConcurrency)
	}
}

func TestLoadOverridesAndInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENV", "prod")
	t.Setenv("OCR_TIMEOUT", "45s")
	t.Setenv("ANALYZE_TIMEOUT", "not-a-duration")
	t.Setenv("WORKER_CONCURRENCY", "-3")
	t.Setenv("OCR_PROVIDER", "HTTP")
	t.Setenv("LLM_PROVIDER", "OpenAI")

	cfg := Load()
	if cfg.Env != "production" {
		t.Fatalf("expected production env, got %q", cfg.Env)
	}
	if cfg.OCRTimeout != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.OCRTimeout)
	}
	if cfg.AnalyzeTimeout != 2*time.Minute {
		t.Fatalf("expected default analyze timeout, got %s", cfg.AnalyzeTimeout)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Fatalf("expected default concurrency, got %d", cfg.WorkerConcurrency)
	}
	if cfg.OCRProvider != "remote" {
		t.Fatalf("expected remote OCR provider, got %q", cfg.OCRProvider)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected openai provider, got %q", cfg.LLMProvider)
	}
}

func TestLoadEnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=9999\nS3_PREFIX=\"tenders\"\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7000")
	t.Setenv("S3_PREFIX", "")
	os.Unsetenv("S3_PREFIX")

	cfg := Load()
	if cfg.Port != "7000" {
		t.Fatalf("expected environment PORT to win, got %q", cfg.Port)
	}
	if cfg.S3Prefix != "tenders" {
		t.Fatalf("expected S3_PREFIX from .env, got %q", cfg.S3Prefix)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})
}
