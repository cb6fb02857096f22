package middleware

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func setupPermissionRouter(guard gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddleware(newTestJWTService()))
	router.GET("/test", guard, func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRequirePermission(t *testing.T) {
	jwtService := newTestJWTService()
	tests := []struct {
		name        string
		guard       gin.HandlerFunc
		permissions []string
		want        int
	}{
		{"exact", RequirePermission("billing:run"), []string{"billing:run"}, http.StatusOK},
		{"domain wildcard", RequirePermission("billing:run"), []string{"billing:*"}, http.StatusOK},
		{"global wildcard", RequirePermission("settings:write"), []string{"*"}, http.StatusOK},
		{"missing", RequirePermission("billing:run"), []string{"ledger:read"}, http.StatusForbidden},
		{"any with one match", RequireAnyPermission("ledger:write", "ledger:read"), []string{"ledger:read"}, http.StatusOK},
		{"any with no match", RequireAnyPermission("ledger:write", "billing:run"), []string{"ledger:read"}, http.StatusForbidden},
		{"all matching", RequireAllPermissions("ledger:read", "reports:read"), []string{"ledger:read", "reports:read"}, http.StatusOK},
		{"all partial", RequireAllPermissions("ledger:read", "reports:read"), []string{"ledger:read"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupPermissionRouter(tt.guard)
			rec := serveWithAuth(router, "/test", issueToken(t, jwtService, tt.permissions...))
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "ERR_FORBIDDEN")
			}
		})
	}
}

func TestRequirePermission_WithoutActor(t *testing.T) {
	router := gin.New()
	router.GET("/test", RequirePermission("ledger:read"), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serveWithAuth(router, "/test", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequirePermission_WithConfig(t *testing.T) {
	jwtService := newTestJWTService()
	var denied []string
	cfg := PermissionConfig{
		Logger: zap.NewNop(),
		OnDenied: func(c *gin.Context, required []string) {
			denied = required
			c.AbortWithStatus(http.StatusTeapot)
		},
	}

	router := setupPermissionRouter(RequirePermissionWithConfig("settings:write", cfg))
	rec := serveWithAuth(router, "/test", issueToken(t, jwtService, "ledger:read"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, []string{"settings:write"}, denied)

	rec = serveWithAuth(router, "/test", issueToken(t, jwtService, "settings:write"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHasPermission(t *testing.T) {
	jwtService := newTestJWTService()
	var got []bool
	router := gin.New()
	router.Use(OptionalJWTAuthMiddleware(jwtService))
	router.GET("/test", func(c *gin.Context) {
		got = append(got, HasPermission(c, "reports:read"))
		c.Status(http.StatusOK)
	})

	serveWithAuth(router, "/test", "")
	serveWithAuth(router, "/test", issueToken(t, jwtService, "reports:*"))
	serveWithAuth(router, "/test", issueToken(t, jwtService, "ledger:read"))
	assert.Equal(t, []bool{false, true, false}, got)
}
