package matching

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/profiles"
	"tender-backend/internal/shared/metrics"
	"tender-backend/internal/shared/server/middleware"
	"tender-backend/internal/shared/server/respond"
)

// Handler serves match requests.
type Handler struct {
	Engine   *Engine
	Profiles profiles.Repo
}

// NewHandler constructs a Handler.
func NewHandler(engine *Engine, repo profiles.Repo) *Handler {
	return &Handler{Engine: engine, Profiles: repo}
}

// RegisterRoutes attaches match routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/matches", h.matchPost)
	rg.GET("/matches", h.matchGet)
}

type profileInput struct {
	CompanyDescription string             `json:"companyDescription"`
	BusinessType       string             `json:"businessType"`
	CompanyActivities  []string           `json:"companyActivities"`
	MainIndustries     []string           `json:"mainIndustries"`
	Specializations    []string           `json:"specializations"`
	Keywords           []profiles.Keyword `json:"keywords"`
}

type matchRequest struct {
	Profile  *profileInput `json:"profile"`
	Limit    *int          `json:"limit"`
	Category string        `json:"category"`
}

type matchResponse struct {
	Query   SearchQuery   `json:"query"`
	Results []MatchResult `json:"results"`
}

func (h *Handler) matchPost(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "invalid_argument", "invalid request body", nil)
		return
	}
	limit := DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	var p profiles.CompanyProfile
	if req.Profile != nil {
		p = profiles.CompanyProfile{
			CompanyDescription: req.Profile.CompanyDescription,
			BusinessType:       req.Profile.BusinessType,
			CompanyActivities:  req.Profile.CompanyActivities,
			MainIndustries:     req.Profile.MainIndustries,
			Specializations:    req.Profile.Specializations,
			Keywords:           req.Profile.Keywords,
		}
	} else {
		stored, ok := h.storedProfile(c)
		if !ok {
			return
		}
		p = stored
	}
	h.respondMatch(c, p, MatchOptions{Limit: limit, Category: req.Category})
}

func (h *Handler) matchGet(c *gin.Context) {
	limit := DefaultLimit
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_argument", "limit must be an integer", nil)
			return
		}
		limit = parsed
	}
	p, ok := h.storedProfile(c)
	if !ok {
		return
	}
	h.respondMatch(c, p, MatchOptions{Limit: limit, Category: c.Query("category")})
}

func (h *Handler) storedProfile(c *gin.Context) (profiles.CompanyProfile, bool) {
	p, err := h.Profiles.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			respond.NotFound(c, "profile")
			return profiles.CompanyProfile{}, false
		}
		respond.Internal(c, "failed to load profile", err)
		return profiles.CompanyProfile{}, false
	}
	return p, true
}

func (h *Handler) respondMatch(c *gin.Context, p profiles.CompanyProfile, opts MatchOptions) {
	q := BuildQuery(p)
	results, err := h.Engine.MatchQuery(c.Request.Context(), q, opts)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			respond.Error(c, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
			return
		}
		respond.Internal(c, "failed to match tenders", err)
		return
	}
	metrics.ObserveMatch(len(results))
	if q.Terms == nil {
		q.Terms = []WeightedTerm{}
	}
	respond.OK(c, matchResponse{Query: q, Results: results})
}
