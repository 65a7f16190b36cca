package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vango-go/vango-glue/pgpool"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Error codes carried in ErrorResponse.Error.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeAcquireTimeout     = "acquire_timeout"
	CodeDatabaseConnection = "database_connection"
	CodeInternal           = "internal_error"
)

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   code,
		Message: msg,
		Code:    status,
	})
}

// respondPoolError maps a pool error to a response. Only pgpool.SafeError
// text reaches the client; anything else gets a generic message.
func respondPoolError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, CodeInternal
	switch {
	case errors.Is(err, pgpool.ErrAcquireTimeout):
		status, code = http.StatusServiceUnavailable, CodeAcquireTimeout
	case errors.Is(err, pgpool.ErrDatabaseConnection):
		status, code = http.StatusServiceUnavailable, CodeDatabaseConnection
	}

	msg := "internal server error"
	var se *pgpool.SafeError
	if errors.As(err, &se) {
		msg = se.Error()
	}
	_ = c.Error(err)
	respondError(c, status, code, msg)
}
