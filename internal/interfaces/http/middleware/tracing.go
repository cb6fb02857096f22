// Package middleware provides HTTP middleware for the accounting API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig controls request tracing
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are never traced, e.g. the health probe
	SkipPaths []string
}

// Tracing returns the otelgin span middleware followed by a handler that tags
// the span with the request id, the acting user and the resource id. Tagging
// happens after the rest of the chain has run, so values set by later
// middleware such as JWT auth are visible, while the span is still open.
//
// Use it as engine.Use(middleware.Tracing(cfg)...). Disabled tracing yields
// no handlers.
func Tracing(cfg TracingConfig) []gin.HandlerFunc {
	if !cfg.Enabled {
		return nil
	}
	traced := otelgin.WithFilter(func(r *http.Request) bool {
		return !slices.Contains(cfg.SkipPaths, r.URL.Path)
	})
	return []gin.HandlerFunc{otelgin.Middleware(cfg.ServiceName, traced), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	var attrs []attribute.KeyValue
	if id := RequestIDFrom(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if userID := GetJWTUserID(c); userID != "" {
		attrs = append(attrs, attribute.String("user_id", userID))
	}
	if id := c.Param("id"); id != "" {
		attrs = append(attrs, attribute.String("acct.resource_id", id))
	}
	span.SetAttributes(attrs...)
}
