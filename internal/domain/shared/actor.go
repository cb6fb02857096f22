package shared

import (
	"context"
	"strings"
)

// PermissionWildcard grants every permission
const PermissionWildcard = "*"

// Actor is the caller on whose behalf an operation runs
type Actor struct {
	UserID      string
	Username    string
	Permissions []string
}

// SystemActor is used by background jobs; it holds every permission
func SystemActor() Actor {
	return Actor{UserID: "system", Username: "system", Permissions: []string{PermissionWildcard}}
}

// HasPermission checks the permission list. "billing:*" grants "billing:run".
func (a Actor) HasPermission(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission || p == PermissionWildcard {
			return true
		}
		if strings.HasSuffix(p, ":*") && strings.HasPrefix(permission, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

type actorKey struct{}

// WithActor returns a context carrying the actor
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
