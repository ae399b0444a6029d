// Package tenancy carries the current tenant on context.Context.
//
// The tenant is request-scoped state: middleware sets it, services and
// stores read it. Keeping it on the context gives every logical request its
// own value, so concurrent requests can never observe each other's tenant.
// Scoped helpers (RunForTenant, RunWithoutTenant) derive a child context and
// discard it on return, which restores the caller's scope on every exit
// path, including panics, without any save/restore bookkeeping.
//
// Usage in middleware:
//
//	ctx = tenancy.WithTenant(ctx, tenantID)
//
// Usage in stores:
//
//	tenantID, scoped := tenancy.Current(ctx)
//
// Usage in seeding and admin tasks:
//
//	err := tenancy.RunForTenant(ctx, "acme", func(ctx context.Context) error { ... })
package tenancy

import "context"

type tenantKey struct{}

// scope distinguishes "tenant set" from "explicitly no tenant" so that
// WithoutTenant can shadow an outer tenant in a derived context.
type scope struct {
	tenantID string
	scoped   bool
}

// WithTenant returns a context whose current tenant is tenantID.
// An empty tenantID means global scope, same as WithoutTenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	if tenantID == "" {
		return WithoutTenant(ctx)
	}
	return context.WithValue(ctx, tenantKey{}, scope{tenantID: tenantID, scoped: true})
}

// WithoutTenant returns a context with no current tenant. It shadows any
// tenant set further up the context chain.
func WithoutTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, tenantKey{}, scope{})
}

// Current returns the current tenant id. ok is false when the context is in
// global scope, either because no tenant was ever set or because
// WithoutTenant cleared it.
func Current(ctx context.Context) (tenantID string, ok bool) {
	s, _ := ctx.Value(tenantKey{}).(scope)
	return s.tenantID, s.scoped
}

// RunForTenant invokes fn with a context scoped to tenantID. The caller's
// context is never mutated, so its tenant is intact after return regardless
// of how fn exits. Results flow out through fn's closure.
func RunForTenant(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return fn(WithTenant(ctx, tenantID))
}

// RunForTenantValue is RunForTenant for callbacks that produce a value.
func RunForTenantValue[T any](ctx context.Context, tenantID string, fn func(context.Context) (T, error)) (T, error) {
	return fn(WithTenant(ctx, tenantID))
}

// RunWithoutTenant invokes fn in global scope.
func RunWithoutTenant(ctx context.Context, fn func(context.Context) error) error {
	return fn(WithoutTenant(ctx))
}
