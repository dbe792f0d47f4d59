package api

import (
	"github.com/gin-gonic/gin"

	"github.com/persistorai/navgraph/internal/httputil"
	"github.com/persistorai/navgraph/internal/metrics"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidMode    = "invalid_mode"
	ErrCodeInvalidNode    = "invalid_node"
	ErrCodeNotLoaded      = "not_loaded"
	ErrCodeInternalError  = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}
