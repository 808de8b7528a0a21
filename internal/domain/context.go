package domain

import "context"

type callerKey struct{}

// Caller carries a verified claim bundle through request context. Absence
// from the context means the request is anonymous.
type Caller struct {
	UID      string
	Role     Role
	ScopeRef string // tenant ID a business operator acts for; empty otherwise
}

// IsAdmin reports whether the caller holds the admin role.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// WithCaller stores a verified Caller in the context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext extracts the Caller from the context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// RequireAdmin returns the caller when it is an authenticated admin, or the
// taxonomy error every lifecycle operation surfaces otherwise.
func RequireAdmin(ctx context.Context) (Caller, error) {
	c, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, ErrUnauthenticated("caller identity is required")
	}
	if !c.IsAdmin() {
		return Caller{}, ErrPermissionDenied("admin role is required")
	}
	return c, nil
}
