package tenders

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/shared/server/respond"
)

// Handler exposes the corpus for browsing.
type Handler struct {
	Store Store
}

// NewHandler constructs a Handler.
func NewHandler(store Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches tender routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tenders", h.list)
	rg.GET("/tenders/:id", h.get)
}

func (h *Handler) list(c *gin.Context) {
	var (
		out []Tender
		err error
	)
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		out, err = h.Store.FindByCategory(c.Request.Context(), category)
	} else {
		out, err = h.Store.FindAll(c.Request.Context())
	}
	if err != nil {
		respond.Internal(c, "failed to list tenders", err)
		return
	}
	respond.OK(c, gin.H{"tenders": out})
}

func (h *Handler) get(c *gin.Context) {
	t, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "tender")
			return
		}
		respond.Internal(c, "failed to fetch tender", err)
		return
	}
	respond.OK(c, t)
}
