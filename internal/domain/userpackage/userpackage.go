// Package userpackage defines prepaid session bundles owned by a client.
package userpackage

import (
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// UserPackage is a client's prepaid bundle. SessionsRemaining stays within
// [0, SessionsTotal].
type UserPackage struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	ClientID          string     `json:"client_id"`
	Name              string     `json:"name"`
	SessionsTotal     int        `json:"sessions_total"`
	SessionsRemaining int        `json:"sessions_remaining"`
	ValidFrom         time.Time  `json:"valid_from"`
	ValidUntil        *time.Time `json:"valid_until,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AuditFields implements audit.Auditable.
func (p *UserPackage) AuditFields() map[string]any {
	return map[string]any{
		"client_id":          p.ClientID,
		"sessions_total":     p.SessionsTotal,
		"sessions_remaining": p.SessionsRemaining,
	}
}

// Expired reports whether the validity window has closed at now.
func (p *UserPackage) Expired(now time.Time) bool {
	return p.ValidUntil != nil && !now.Before(*p.ValidUntil)
}

// CheckConsumable returns the reason clientID cannot draw a session from p
// at now, or nil.
func (p *UserPackage) CheckConsumable(clientID string, now time.Time) error {
	if clientID != "" && p.ClientID != clientID {
		return domain.ErrPackageNotFound
	}
	if p.Expired(now) {
		return domain.ErrPackageExpired
	}
	if p.SessionsRemaining <= 0 {
		return domain.ErrPackageExhausted
	}
	return nil
}

// Consume draws one session. Callers hold the row for update.
func (p *UserPackage) Consume(clientID string, now time.Time) error {
	if err := p.CheckConsumable(clientID, now); err != nil {
		return err
	}
	p.SessionsRemaining--
	return nil
}

// Refund returns one session, never past the total.
func (p *UserPackage) Refund() {
	if p.SessionsRemaining < p.SessionsTotal {
		p.SessionsRemaining++
	}
}

// CreateRequest records a purchased bundle.
type CreateRequest struct {
	ClientID      string     `json:"client_id"`
	Name          string     `json:"name"`
	SessionsTotal int        `json:"sessions_total"`
	ValidFrom     time.Time  `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until,omitempty"`
}

// Validate checks the request's fields.
func (r *CreateRequest) Validate() error {
	if r.ClientID == "" {
		return domain.Invalid("client_id is required")
	}
	if r.SessionsTotal <= 0 {
		return domain.Invalid("sessions_total must be positive")
	}
	if r.ValidUntil != nil && !r.ValidFrom.IsZero() && !r.ValidUntil.After(r.ValidFrom) {
		return domain.Invalid("valid_until must be after valid_from")
	}
	return nil
}

// Package builds an unsaved, full package from the request.
func (r *CreateRequest) Package() UserPackage {
	return UserPackage{
		ClientID:          r.ClientID,
		Name:              r.Name,
		SessionsTotal:     r.SessionsTotal,
		SessionsRemaining: r.SessionsTotal,
		ValidFrom:         r.ValidFrom,
		ValidUntil:        r.ValidUntil,
	}
}
