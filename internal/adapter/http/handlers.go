package http

import (
	"context"
	"net/http"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/auditlog"
	"github.com/FerDeGante/Eventora-sub000/internal/service"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// Handlers holds the services the API routes to.
type Handlers struct {
	Tenants      *service.TenantService
	Catalog      *service.CatalogService
	Availability *service.AvailabilityService
	Reservations *service.ReservationService
	Packages     *service.PackageService
	Audit        auditlog.Reader

	// Checks are probed by /health, keyed by dependency name.
	Checks map[string]func(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health reports "ok" when every dependency check passes and 503 otherwise.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// CurrentTenant returns the tenant the request is bound to.
func (h *Handlers) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tenants.Get(r.Context(), tenant.IDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ListAudit returns the newest audit entries of the bound tenant.
func (h *Handlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	n := defaultAuditLimit
	if limit != nil {
		n = min(max(*limit, 1), maxAuditLimit)
	}
	tc, err := tenant.Require(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	entries, err := h.Audit.ListAudit(r.Context(), tc.TenantID, n)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
