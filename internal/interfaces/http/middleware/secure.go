package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityConfig controls the response hardening headers
type SecurityConfig struct {
	// HSTSMaxAge enables Strict-Transport-Security when positive
	HSTSMaxAge time.Duration
	// ExemptPrefixes skip the restrictive CSP, e.g. the interactive API docs
	ExemptPrefixes []string
}

// apiCSP suits a JSON API: nothing may be loaded or framed
const apiCSP = "default-src 'none'; frame-ancestors 'none'"

// Secure sets hardening headers with HSTS off
func Secure() gin.HandlerFunc {
	return SecureWithConfig(SecurityConfig{})
}

// SecureWithConfig sets hardening headers. API responses are also marked
// uncacheable since they carry ledger data.
func SecureWithConfig(cfg SecurityConfig) gin.HandlerFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge.Seconds())) + "; includeSubDomains"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if hsts != "" {
			h.Set("Strict-Transport-Security", hsts)
		}
		if !hasAnyPrefix(c.Request.URL.Path, cfg.ExemptPrefixes) {
			h.Set("Content-Security-Policy", apiCSP)
			h.Set("Cache-Control", "no-store")
		}
		c.Next()
	}
}
