package shared

import "context"

// Caller identifies the authenticated principal behind one request. It is
// produced by the resolver middleware and never persisted.
type Caller struct {
	Subject     string
	RoleIDs     []string
	IsRootAdmin bool
}

// HoldsRole reports whether the caller directly holds the given role id.
func (c Caller) HoldsRole(id string) bool {
	for _, r := range c.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

type callerContextKey struct{}

// ContextWithCaller stores the caller in context.
func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the caller from context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	return caller, ok
}
