package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"content_resolver/internal/domain"
)

const requestIDKey = "request_id"

type ContentResolver interface {
	Resolve(ctx context.Context, rawURL string) (*domain.Resolution, error)
	GetContent(ctx context.Context, id int64) (*domain.Content, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	resolver ContentResolver
	db       Pinger
}

func NewHandler(resolver ContentResolver, db Pinger) *Handler {
	return &Handler{resolver: resolver, db: db}
}

type resolveRequest struct {
	URL string `json:"url" binding:"required"`
}

type errorResponse struct {
	Error     string         `json:"error"`
	Outcome   domain.Outcome `json:"outcome,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

var outcomeStatus = map[domain.Outcome]int{
	domain.OutcomePersisted:           http.StatusCreated,
	domain.OutcomeSourceNotFound:      http.StatusNotFound,
	domain.OutcomeUnrecognizedURL:     http.StatusUnprocessableEntity,
	domain.OutcomeUpstreamUnavailable: http.StatusBadGateway,
	domain.OutcomePersistenceFailed:   http.StatusInternalServerError,
}

// Resolve handles POST /api/v1/resolve.
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be {\"url\": \"...\"}"})
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), strings.TrimSpace(req.URL))
	if res != nil {
		c.Set(requestIDKey, res.RequestID)
	}
	if err != nil {
		_ = c.Error(err)
		status := http.StatusInternalServerError
		resp := errorResponse{Error: err.Error()}
		if res != nil {
			resp.Outcome = res.Outcome
			resp.RequestID = res.RequestID
			if s, ok := outcomeStatus[res.Outcome]; ok {
				status = s
			}
		}
		if errors.Is(err, context.Canceled) {
			// Client closed request.
			status = 499
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, res)
}

// GetContent handles GET /api/v1/content/:id.
func (h *Handler) GetContent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid content id"})
		return
	}

	content, err := h.resolver.GetContent(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "content not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to load content"})
		return
	}

	c.JSON(http.StatusOK, content)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "ok"})
}
