package middleware

import (
	"net/http"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when permission is denied (optional)
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission creates middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequirePermissionWithConfig creates middleware with custom config
func RequirePermissionWithConfig(permission string, cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, permission)
}

// RequireAnyPermission requires at least one of the listed permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig requires at least one of the listed permissions with custom config
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return requirePermissions(cfg, permissions, false)
}

// RequireAllPermissions requires every listed permission
func RequireAllPermissions(permissions ...string) gin.HandlerFunc {
	return RequireAllPermissionsWithConfig(PermissionConfig{}, permissions...)
}

// RequireAllPermissionsWithConfig requires every listed permission with custom config
func RequireAllPermissionsWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return requirePermissions(cfg, permissions, true)
}

func requirePermissions(cfg PermissionConfig, permissions []string, all bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := shared.ActorFromContext(c.Request.Context())
		if !ok {
			handlePermissionDenied(c, cfg, permissions, "No authenticated actor")
			return
		}

		var allowed bool
		if all {
			allowed = hasAll(actor, permissions)
		} else {
			allowed = hasAny(actor, permissions)
		}
		if !allowed {
			handlePermissionDenied(c, cfg, permissions, "User lacks required permission")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Permission check passed",
				zap.String("user_id", actor.UserID),
				zap.Strings("required", permissions),
				zap.Bool("require_all", all),
			)
		}

		c.Next()
	}
}

func hasAny(actor shared.Actor, permissions []string) bool {
	for _, p := range permissions {
		if actor.HasPermission(p) {
			return true
		}
	}
	return false
}

func hasAll(actor shared.Actor, permissions []string) bool {
	for _, p := range permissions {
		if !actor.HasPermission(p) {
			return false
		}
	}
	return true
}

// handlePermissionDenied handles permission denied scenarios
func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		return
	}

	if cfg.Logger != nil {
		actor, _ := shared.ActorFromContext(c.Request.Context())
		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("user_id", actor.UserID),
			zap.Strings("required_permissions", requiredPerms),
			zap.Strings("user_permissions", actor.Permissions),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: insufficient permissions")
}

// HasPermission reports whether the request's actor holds permission
func HasPermission(c *gin.Context, permission string) bool {
	actor, ok := shared.ActorFromContext(c.Request.Context())
	return ok && actor.HasPermission(permission)
}
