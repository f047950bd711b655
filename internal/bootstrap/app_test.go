package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tender-backend/internal/shared/config"
)

func TestBuildInMemoryDev(t *testing.T) {
	app, err := Build(config.Config{Env: "dev", LocalStoreDir: t.TempDir(), WorkerConcurrency: 1})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = app.Close(ctx)
	})

	if app.DB != nil {
		t.Fatalf("expected in-memory mode without DATABASE_URL")
	}
	if app.Runner == nil || app.Queue != nil {
		t.Fatalf("expected in-process runner when no queue is configured")
	}

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
}

func TestBuildRequiresDatabaseOutsideDev(t *testing.T) {
	if _, err := Build(config.Config{Env: "production", JWTSecret: "s"}); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestBuildRejectsS3WithoutBucket(t *testing.T) {
	_, err := Build(config.Config{Env: "dev", ObjectStoreType: "s3"})
	if err == nil {
		t.Fatalf("expected error for s3 store without bucket")
	}
}
