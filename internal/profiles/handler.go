package profiles

import (
	"errors"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/shared/server/middleware"
	"tender-backend/internal/shared/server/respond"
)

// Handler serves the caller's profile.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches profile routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/profile", h.get)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Repo.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "profile")
			return
		}
		respond.Internal(c, "failed to fetch profile", err)
		return
	}
	if p.CompanyActivities == nil {
		p.CompanyActivities = []string{}
	}
	if p.MainIndustries == nil {
		p.MainIndustries = []string{}
	}
	if p.Specializations == nil {
		p.Specializations = []string{}
	}
	if p.Keywords == nil {
		p.Keywords = []Keyword{}
	}
	respond.OK(c, p)
}
