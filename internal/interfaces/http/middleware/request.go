package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/erp/acct/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the caller's correlation id in both directions
const RequestIDHeader = "X-Request-ID"

// MaxRequestIDLength bounds a caller supplied request id
const MaxRequestIDLength = 64

// RequestID accepts a well formed X-Request-ID from the caller or mints a
// UUID, then echoes it in the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Set(logger.GinRequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return false
		}
	}
	return true
}

// RequestIDFrom returns the id assigned by RequestID, empty when it did not run
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// RequestTimeout bounds the request context so repository and service calls
// give up after d. Paths under an exempt prefix, such as the change stream,
// keep the parent context.
func RequestTimeout(d time.Duration, exempt ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 || hasAnyPrefix(c.Request.URL.Path, exempt) {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
