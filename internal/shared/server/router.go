package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/documents"
	"tender-backend/internal/jobs"
	"tender-backend/internal/matching"
	"tender-backend/internal/profiles"
	"tender-backend/internal/shared/config"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/server/middleware"
	"tender-backend/internal/shared/server/respond"
	"tender-backend/internal/tenders"
)

const (
	rateGroupUpload = "UPLOAD"
	rateGroupMatch  = "MATCH"
)

// RouterDeps carries the handlers mounted under /api/v1. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	Verifier        middleware.TokenVerifier
	JobsHandler     *jobs.Handler
	DocumentHandler *documents.Handler
	ProfileHandler  *profiles.Handler
	MatchHandler    *matching.Handler
	TenderHandler   *tenders.Handler
	Limiter         *middleware.RateLimiter
	// Ready, when set, is consulted by the health endpoint.
	Ready func(ctx context.Context) error
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Verifier, "/api/v1/health", "/metrics"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				rateGroupUpload: {Rate: 0.2, Burst: 5},
				rateGroupMatch:  {Rate: 2, Burst: 20},
			},
			GroupFor: rateGroup,
			Limiter:  deps.Limiter,
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Ready != nil {
			if err := deps.Ready(c.Request.Context()); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "not_ready", "dependency unavailable", nil)
				return
			}
		}
		respond.OK(c, gin.H{"ok": true})
	})
	if deps.JobsHandler != nil {
		deps.JobsHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(api)
	}
	if deps.MatchHandler != nil {
		deps.MatchHandler.RegisterRoutes(api)
	}
	if deps.TenderHandler != nil {
		deps.TenderHandler.RegisterRoutes(api)
	}
	return r
}

func rateGroup(c *gin.Context) string {
	path := c.FullPath()
	switch {
	case c.Request.Method == http.MethodPost && path == "/api/v1/documents":
		return rateGroupUpload
	case strings.HasPrefix(path, "/api/v1/matches"):
		return rateGroupMatch
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
