// Package tenant defines the clinic (tenant) identity root and the
// request-scoped Tenant Context that every tenant-owned operation reads.
package tenant

import (
	"strings"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// Tenant is an independent clinic sharing the deployment. It is the identity
// root: every tenant-owned row carries its ID.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a new tenant.
type CreateRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Validate checks the request's fields.
func (r *CreateRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return domain.Invalid("tenant name is required")
	}
	if r.Slug == "" {
		return domain.Invalid("tenant slug is required")
	}
	for _, c := range r.Slug {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return domain.Invalid("tenant slug %q may contain only a-z, 0-9 and '-'", r.Slug)
		}
	}
	return nil
}
