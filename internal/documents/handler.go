package documents

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/shared/server/middleware"
	"tender-backend/internal/shared/server/respond"
)

// Handler serves read-only document routes. Uploads go through the jobs handler.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set(middleware.DocumentIDKey, c.Param("id"))

	doc, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "document")
			return
		}
		respond.Internal(c, "failed to fetch document", err)
		return
	}
	respond.OK(c, ToResponse(doc))
}

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit, ok := queryInt(c, "limit", defaultListLimit, 1, maxListLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0, 0, -1)
	if !ok {
		return
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Validation(c, "user identity is required")
			return
		}
		respond.Internal(c, "failed to list documents", err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, ToResponse(doc))
	}
	respond.OK(c, gin.H{"documents": resp, "limit": limit, "offset": offset})
}

// queryInt reads an optional integer parameter within [lo, hi]; hi < 0 means
// unbounded. It writes a 400 and returns false when the value is invalid.
func queryInt(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || (hi >= 0 && v > hi) {
		msg := fmt.Sprintf("%s must be an integer >= %d", name, lo)
		if hi >= 0 {
			msg = fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi)
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, gin.H{"field": name})
		return 0, false
	}
	return v, true
}
