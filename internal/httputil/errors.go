package httputil

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sitegate/internal/domain"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AbortWithError renders err with the status and message its domain code maps to
// and aborts the chain. Causes are logged, never rendered.
func AbortWithError(c *gin.Context, err error) {
	status := domain.HTTPStatus(err)
	msg := domain.PublicMessage(err)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	} else {
		slog.WarnContext(c.Request.Context(), "request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}

	if WantsJSON(c.Request) {
		c.AbortWithStatusJSON(status, ErrorResponse{Error: http.StatusText(status), Details: msg})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(status, msg+"\n")
	c.Abort()
}

// WantsJSON reports whether the client prefers a JSON body
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
