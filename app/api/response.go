package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/tube-comb/app/keypool"
	"github.com/lysyi3m/tube-comb/app/tasks"
)

func (h *Handler) timestamp() string {
	return h.now().Format(time.RFC3339)
}

func (h *Handler) success(c *gin.Context, data any, meta Meta) {
	meta.Timestamp = h.timestamp()
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data, Meta: meta})
}

// failure writes the error envelope. extra is merged into meta.
func (h *Handler) failure(c *gin.Context, status int, title, message string, extra gin.H) {
	meta := map[string]any{"timestamp": h.timestamp()}
	for k, v := range extra {
		meta[k] = v
	}
	if id, ok := c.Get(requestIDKey); ok {
		meta["request_id"] = id
	}

	c.JSON(status, ErrorResponse{Success: false, Error: title, Message: message, Meta: meta})
}

// serviceError maps an error from the data layer to a response.
func (h *Handler) serviceError(c *gin.Context, operation string, err error) {
	var exhausted *keypool.ExhaustedError
	if errors.As(err, &exhausted) || errors.Is(err, keypool.ErrExhausted) {
		slog.Warn("Upstream quota exhausted", "component", "api", "operation", operation, "error", err)
		extra := gin.H{"operation": operation}
		if exhausted != nil {
			extra["keys"] = exhausted.Keys
		}
		h.failure(c, http.StatusServiceUnavailable, "API quota exhausted", "All configured API keys are over quota, try again later", extra)
		return
	}

	slog.Error("Request failed", "component", "api", "operation", operation, "error", err)
	h.failure(c, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred", gin.H{"operation": operation})
}

func (h *Handler) bindError(c *gin.Context, err error) {
	extra := gin.H{}
	if fields := tasks.FieldErrors(err); fields != nil {
		extra["fields"] = fields
	}
	h.failure(c, http.StatusBadRequest, "Invalid request body", err.Error(), extra)
}

func count(n int) *int {
	return &n
}
