// context.go carries the resolved *Tenant through the request context so
// handlers never re-run the Host lookup.
package tenant

import "context"

type ctxKey struct{}

// WithTenant returns a child context carrying t.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// FromContext extracts the tenant placed by the resolver middleware.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(*Tenant)
	return t, ok
}
