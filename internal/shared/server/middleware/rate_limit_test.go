package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/shared/telemetry"
)

func limitedRouter(limiter *RateLimiter, rules map[string]RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Set("userId", id)
		}
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/documents" {
				return "UPLOAD"
			}
			return ""
		},
		Limiter: limiter,
		Rules:   rules,
	}))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.POST("/api/v1/documents", ok)
	r.GET("/api/v1/jobs/:id", ok)
	return r
}

func do(r http.Handler, method, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRateLimitAppliesOnlyToGroupsWithRules(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := limitedRouter(NewRateLimiter(func() time.Time { return now }), map[string]RateLimitRule{
		"UPLOAD": {Rate: 0.2, Burst: 2},
	})

	for i := 0; i < 5; i++ {
		if resp := do(r, http.MethodGet, "/api/v1/jobs/job-1", "guest:a"); resp.Code != http.StatusOK {
			t.Fatalf("polling request %d expected 200, got %d", i+1, resp.Code)
		}
	}
	for i := 0; i < 2; i++ {
		if resp := do(r, http.MethodPost, "/api/v1/documents", "guest:a"); resp.Code != http.StatusOK {
			t.Fatalf("upload %d expected 200, got %d", i+1, resp.Code)
		}
	}
	if resp := do(r, http.MethodPost, "/api/v1/documents", "guest:a"); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("third upload expected 429, got %d", resp.Code)
	}
	if resp := do(r, http.MethodPost, "/api/v1/documents", "guest:b"); resp.Code != http.StatusOK {
		t.Fatalf("other principal expected its own bucket, got %d", resp.Code)
	}
}

func TestRateLimit429Envelope(t *testing.T) {
	t.Cleanup(telemetry.SetOutput(io.Discard))
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	r := limitedRouter(NewRateLimiter(func() time.Time { return now }), map[string]RateLimitRule{
		"UPLOAD": {Rate: 1, Burst: 1},
	})

	do(r, http.MethodPost, "/api/v1/documents", "")
	resp := do(r, http.MethodPost, "/api/v1/documents", "")
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if got := resp.Header().Get("Retry-After"); got != "1" {
		t.Fatalf("expected Retry-After 1, got %q", got)
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", payload.Error.Code)
	}
	if v, ok := payload.Error.Details["retryAfterMs"].(float64); !ok || v != 1000 {
		t.Fatalf("expected retryAfterMs=1000, got %v", payload.Error.Details["retryAfterMs"])
	}
}

func TestRateLimiterRefillsAndPrunes(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(func() time.Time { return now })
	rule := RateLimitRule{Rate: 2, Burst: 1}

	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatalf("first call should pass")
	}
	ok, wait := l.Allow("k", rule)
	if ok || wait != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait, got ok=%v wait=%s", ok, wait)
	}

	now = now.Add(500 * time.Millisecond)
	if ok, _ := l.Allow("k", rule); !ok {
		t.Fatalf("bucket should refill after wait")
	}

	now = now.Add(bucketIdleTTL + time.Second)
	l.Prune()
	if l.Len() != 0 {
		t.Fatalf("expected idle bucket to be pruned, have %d", l.Len())
	}
}
