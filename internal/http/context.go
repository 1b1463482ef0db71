package http

import (
	"context"

	"github.com/example/grant-tracker/internal/application"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	pathIDContextKey    contextKey = "path_id"
	subPathIDContextKey contextKey = "sub_path_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithPathID injects the resource identifier resolved from the request path.
func ContextWithPathID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, pathIDContextKey, id)
}

// PathIDFromContext extracts a resource identifier previously associated with the context.
func PathIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(pathIDContextKey).(string)
	return id, ok
}

// ContextWithSubPathID injects the identifier of a nested resource, such as a
// blackout date addressed below its owning organization.
func ContextWithSubPathID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subPathIDContextKey, id)
}

// SubPathIDFromContext extracts a nested resource identifier from the context.
func SubPathIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subPathIDContextKey).(string)
	return id, ok
}
