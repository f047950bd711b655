package jobs

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/documents"
	"tender-backend/internal/shared/server/middleware"
	"tender-backend/internal/shared/server/respond"
)

// multipartOverhead is allowed on top of the file size limit for form framing.
const multipartOverhead = 1 << 20

// Handler serves upload, process-trigger and job status routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/:id/process", h.trigger)
	rg.GET("/jobs/:id", h.status)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, documents.MaxSizeBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Validation(c, fmt.Sprintf("file exceeds maximum size of %d bytes", documents.MaxSizeBytes))
			return
		}
		respond.Validation(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Validation(c, "unable to read file")
		return
	}
	defer file.Close()

	// one byte past the limit is enough for validation to reject it
	data, err := io.ReadAll(io.LimitReader(file, documents.MaxSizeBytes+1))
	if err != nil {
		respond.Validation(c, "unable to read file")
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.Svc.Submit(ctx, userID, fileHeader.Filename, data)
	if err != nil {
		var verr *documents.ValidationError
		if errors.As(err, &verr) {
			respond.Error(c, http.StatusBadRequest, "validation_error", verr.Message, gin.H{"field": verr.Field})
			return
		}
		if errors.Is(err, documents.ErrInvalidInput) {
			respond.Validation(c, err.Error())
			return
		}
		respond.Internal(c, "failed to upload document", err)
		return
	}

	c.Set(middleware.JobIDKey, res.JobID)
	c.Set(middleware.DocumentIDKey, res.DocumentID)
	c.Set(middleware.StatusTransitionKey, string(StateIdle)+"->"+string(StateUploading))
	respond.Accepted(c, res)
}

func (h *Handler) trigger(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")
	c.Set(middleware.DocumentIDKey, documentID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	st, err := h.Svc.Trigger(ctx, userID, documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "document")
			return
		}
		respond.Internal(c, "failed to start processing", err)
		return
	}
	c.Set(middleware.JobIDKey, st.JobID)
	respond.Accepted(c, st)
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Set(middleware.JobIDKey, c.Param("id"))

	st, err := h.Svc.Status(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.NotFound(c, "job")
			return
		}
		respond.Internal(c, "failed to fetch job", err)
		return
	}
	c.Set(middleware.DocumentIDKey, st.DocumentID)
	respond.OK(c, st)
}
