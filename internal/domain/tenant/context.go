package tenant

import (
	"context"
	"slices"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// Context is the per-operation tenant and caller identity. It is never
// persisted and lives only as long as the context.Context that carries it.
type Context struct {
	TenantID  string
	ActorID   string
	Roles     []string
	RequestID string
	IP        string
	UserAgent string
}

// HasRole reports whether the caller holds role.
func (c Context) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

type ctxKey struct{}

// Bind merges c into the Tenant Context already carried by ctx (if any) and
// returns a derived context holding the result. Fields already set keep their
// value; empty fields are filled from c and roles are unioned.
//
// Binding a different tenant than the one already bound fails with
// domain.ErrTenantMismatch. A merge that leaves no tenant fails with
// domain.ErrTenantContextMissing.
func Bind(ctx context.Context, c Context) (context.Context, error) {
	merged := c
	merged.Roles = slices.Clone(c.Roles)
	if cur, ok := Current(ctx); ok {
		if cur.TenantID != "" && c.TenantID != "" && cur.TenantID != c.TenantID {
			return ctx, domain.ErrTenantMismatch
		}
		merged = cur
		merged.TenantID = firstSet(cur.TenantID, c.TenantID)
		merged.ActorID = firstSet(cur.ActorID, c.ActorID)
		merged.RequestID = firstSet(cur.RequestID, c.RequestID)
		merged.IP = firstSet(cur.IP, c.IP)
		merged.UserAgent = firstSet(cur.UserAgent, c.UserAgent)
		merged.Roles = slices.Clone(cur.Roles)
		for _, r := range c.Roles {
			if !slices.Contains(merged.Roles, r) {
				merged.Roles = append(merged.Roles, r)
			}
		}
	}
	if merged.TenantID == "" {
		return ctx, domain.ErrTenantContextMissing
	}
	return context.WithValue(ctx, ctxKey{}, merged), nil
}

// MustBind is Bind for callers that construct the context themselves, such as
// tests and background jobs with a known tenant. It panics on error.
func MustBind(ctx context.Context, c Context) context.Context {
	out, err := Bind(ctx, c)
	if err != nil {
		panic("tenant.MustBind: " + err.Error())
	}
	return out
}

// Current returns the bound Tenant Context, if any.
func Current(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	if !ok {
		return Context{}, false
	}
	c.Roles = slices.Clone(c.Roles)
	return c, true
}

// Require returns the bound Tenant Context or domain.ErrTenantContextMissing.
func Require(ctx context.Context) (Context, error) {
	c, ok := Current(ctx)
	if !ok || c.TenantID == "" {
		return Context{}, domain.ErrTenantContextMissing
	}
	return c, nil
}

// IDFromContext returns the bound tenant ID, or "" when none is bound.
func IDFromContext(ctx context.Context) string {
	c, _ := Current(ctx)
	return c.TenantID
}

func firstSet(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
