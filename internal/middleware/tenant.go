package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/logger"
)

// Headers set by the trusted gateway in front of the API.
const (
	headerTenantID   = "X-Tenant-ID"
	headerActorID    = "X-Actor-ID"
	headerActorRoles = "X-Actor-Roles"
)

// TenantResolver confirms that a tenant exists and may be served.
type TenantResolver interface {
	Resolve(ctx context.Context, explicitID string) (*tenant.Tenant, error)
}

// Tenant binds a Tenant Context from the gateway headers. Requests without
// X-Tenant-ID are rejected with 400, unknown tenants with 404 and disabled
// tenants with 403.
func Tenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := strings.TrimSpace(r.Header.Get(headerTenantID))
			if tid == "" {
				writeError(w, http.StatusBadRequest, domain.ErrTenantContextMissing.Error())
				return
			}

			t, err := resolver.Resolve(r.Context(), tid)
			switch {
			case errors.Is(err, domain.ErrTenantDisabled):
				writeError(w, http.StatusForbidden, domain.Message(err))
				return
			case errors.Is(err, domain.ErrNotFound):
				writeError(w, http.StatusNotFound, domain.ErrTenantNotFound.Error())
				return
			case err != nil:
				slog.ErrorContext(r.Context(), "tenant resolution failed", "tenant_id", tid, "error", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			ctx, err := tenant.Bind(r.Context(), tenant.Context{
				TenantID:  t.ID,
				ActorID:   r.Header.Get(headerActorID),
				Roles:     splitRoles(r.Header.Get(headerActorRoles)),
				RequestID: logger.RequestID(r.Context()),
			})
			if err != nil {
				writeError(w, http.StatusBadRequest, domain.Message(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Network merges the client IP and user agent into the bound Tenant
// Context. Requests without one pass through untouched.
func Network(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenant.Current(r.Context()); ok {
			if ctx, err := tenant.Bind(r.Context(), tenant.Context{IP: realIP(r), UserAgent: r.UserAgent()}); err == nil {
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func splitRoles(h string) []string {
	var roles []string
	for _, role := range strings.Split(h, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

// realIP extracts the client IP from RemoteAddr. Proxy headers are not
// trusted: they are client-controlled.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
