// Package clinic defines the tenant-owned catalog a clinic books against:
// branches, services, resources, staff and clients.
package clinic

import (
	"strings"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// Branch is a physical location of a clinic.
type Branch struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (b *Branch) AuditFields() map[string]any {
	return map[string]any{"name": b.Name, "active": b.Active}
}

// Service is a bookable offering.
type Service struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	CategoryID      string    `json:"category_id,omitempty"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int64     `json:"price_cents"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (s *Service) AuditFields() map[string]any {
	return map[string]any{
		"name":             s.Name,
		"duration_minutes": s.DurationMinutes,
		"price_cents":      s.PriceCents,
		"active":           s.Active,
	}
}

// ResourceKind classifies a bookable resource.
type ResourceKind string

const (
	ResourceRoom      ResourceKind = "room"
	ResourceEquipment ResourceKind = "equipment"
	ResourceTherapist ResourceKind = "therapist"
)

// Resource is a limited asset a reservation may occupy.
type Resource struct {
	ID        string       `json:"id"`
	TenantID  string       `json:"tenant_id"`
	BranchID  string       `json:"branch_id"`
	Kind      ResourceKind `json:"kind"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (r *Resource) AuditFields() map[string]any {
	return map[string]any{"branch_id": r.BranchID, "kind": string(r.Kind), "name": r.Name}
}

// Staff is a practitioner working at a branch.
type Staff struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	BranchID  string    `json:"branch_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (s *Staff) AuditFields() map[string]any {
	return map[string]any{"branch_id": s.BranchID, "name": s.Name, "active": s.Active}
}

// Client is the person a reservation is booked for. Contact details are not
// audited.
type Client struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (c *Client) AuditFields() map[string]any {
	return map[string]any{"name": c.Name}
}

// NormalizeEmail lowercases and trims an email used as a guest lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the fields a new service must carry.
func (s *Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return domain.Invalid("service name is required")
	}
	if s.DurationMinutes <= 0 {
		return domain.Invalid("service duration must be positive")
	}
	if s.PriceCents < 0 {
		return domain.Invalid("service price must not be negative")
	}
	return nil
}
