package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/FerDeGante/Eventora-sub000/internal/middleware"
)

var (
	adminOnly = middleware.RequireRole(middleware.RoleAdmin)
	frontDesk = middleware.RequireRole(middleware.RoleAdmin, middleware.RoleReception)
)

// MountRoutes registers all API routes on the given chi router. Every
// /api/v1 route runs under the tenant bound by tenantMW; the stack
// middlewares (rate limiting, idempotency) are passed in stack and run
// after binding.
func MountRoutes(r chi.Router, h *Handlers, tenantMW func(http.Handler) http.Handler, stack ...func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tenantMW)
		r.Use(stack...)

		r.Get("/tenant", h.CurrentTenant)
		r.With(adminOnly).Get("/audit", h.ListAudit)

		// Catalog
		r.Get("/branches", handleList(h.Catalog.ListBranches))
		r.With(adminOnly).Post("/branches", handleCreate(h.Catalog.CreateBranch))
		r.Get("/branches/{id}", handleGet(h.Catalog.GetBranch))
		r.Get("/branches/{id}/resources", handleListByParam("id", h.Catalog.ListResources))
		r.With(adminOnly).Post("/branches/{id}/resources", h.CreateResource)
		r.Get("/branches/{id}/staff", handleListByParam("id", h.Catalog.ListStaff))
		r.With(adminOnly).Post("/branches/{id}/staff", h.CreateStaff)

		r.Get("/services", handleList(h.Catalog.ListServices))
		r.With(adminOnly).Post("/services", handleCreate(h.Catalog.CreateService))
		r.Get("/services/{id}", handleGet(h.Catalog.GetService))

		r.With(frontDesk).Post("/clients", handleCreate(h.Catalog.CreateClient))
		r.With(frontDesk).Get("/clients/{id}", handleGet(h.Catalog.GetClient))
		r.With(frontDesk).Get("/clients/{id}/packages", handleListByParam("id", h.Packages.ListForClient))

		// Availability
		r.Get("/availability", h.GetSlots)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Get("/{id}", handleGet(h.Availability.GetTemplate))
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", handleCreate(h.Availability.CreateTemplate))
				r.Patch("/{id}", handleUpdate(h.Availability.UpdateTemplate))
				r.Delete("/{id}", handleDelete(h.Availability.DeleteTemplate))
			})
		})
		r.With(adminOnly).Put("/schedules/{ownerType}/{ownerID}", h.ReplaceSchedule)

		r.Route("/exceptions", func(r chi.Router) {
			r.Get("/", h.ListExceptions)
			r.With(adminOnly).Post("/", handleCreate(h.Availability.CreateException))
			r.With(adminOnly).Delete("/{id}", handleDelete(h.Availability.DeleteException))
		})

		// Reservations
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", handleCreate(h.Reservations.Create))
			r.Group(func(r chi.Router) {
				r.Use(frontDesk)
				r.Get("/", h.ListReservations)
				r.Get("/{id}", handleGet(h.Reservations.Get))
				r.Patch("/{id}", handleUpdate(h.Reservations.Update))
				r.Post("/{id}/status", h.SetReservationStatus)
				r.Post("/{id}/cancel", handleAction(h.Reservations.Cancel))
			})
			r.With(adminOnly).Delete("/{id}", handleDelete(h.Reservations.Delete))
		})

		// Packages
		r.Route("/packages", func(r chi.Router) {
			r.Use(frontDesk)
			r.Post("/", handleCreate(h.Packages.Create))
			r.Get("/{id}", handleGet(h.Packages.Get))
			r.Post("/{id}/consume", h.ConsumePackage)
			r.Post("/{id}/refund", handleAction(h.Packages.Refund))
		})
	})
}
