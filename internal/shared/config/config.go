package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	DatabaseURL     string
	Env             string
	JWTSecret       string

	LLMProvider  string
	LLMModel     string
	OpenAIAPIKey string

	OCRProvider     string
	OCREndpoint     string
	OCRAPIKey       string
	OCRPollInterval time.Duration

	OCRTimeout     time.Duration
	AnalyzeTimeout time.Duration
	JobTimeout     time.Duration

	KeywordSourceLocale string
	KeywordTargetLocale string

	WorkerConcurrency int
	QueueURL          string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:       getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:         dbURL,
		Env:                 env,
		JWTSecret:           getEnv("JWT_SECRET", ""),
		LLMProvider:         normalizeProvider(getEnv("LLM_PROVIDER", "placeholder")),
		LLMModel:            getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OCRProvider:         normalizeOCRProvider(getEnv("OCR_PROVIDER", "pdftext")),
		OCREndpoint:         getEnv("OCR_ENDPOINT", ""),
		OCRAPIKey:           getEnv("OCR_API_KEY", ""),
		OCRPollInterval:     getDuration("OCR_POLL_INTERVAL", 2*time.Second),
		OCRTimeout:          getDuration("OCR_TIMEOUT", 2*time.Minute),
		AnalyzeTimeout:      getDuration("ANALYZE_TIMEOUT", 2*time.Minute),
		JobTimeout:          getDuration("JOB_TIMEOUT", 10*time.Minute),
		KeywordSourceLocale: getEnv("KEYWORD_SOURCE_LOCALE", "en"),
		KeywordTargetLocale: getEnv("KEYWORD_TARGET_LOCALE", "ar"),
		WorkerConcurrency:   getInt("WORKER_CONCURRENCY", 4),
		QueueURL:            strings.TrimSpace(getEnv("RA_SQS_QUEUE_URL", "")),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return val
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	default:
		return "placeholder"
	}
}

func normalizeOCRProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "remote", "http":
		return "remote"
	default:
		return "pdftext"
	}
}

// IsDevLike reports whether env permits in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
