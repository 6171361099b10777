// Package reservation defines committed bookings, their status machine and
// the conflict rule between them.
package reservation

import (
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// PaymentStatus tracks whether the reservation has been paid for.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Reservation is a committed booking. StartAt and EndAt form the half-open
// interval [StartAt, EndAt).
type Reservation struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	BranchID      string        `json:"branch_id"`
	ServiceID     string        `json:"service_id"`
	ClientID      string        `json:"client_id"`
	StaffID       string        `json:"staff_id,omitempty"`
	ResourceID    string        `json:"resource_id,omitempty"`
	PackageID     string        `json:"package_id,omitempty"`
	StartAt       time.Time     `json:"start_at"`
	EndAt         time.Time     `json:"end_at"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PriceCents    int64         `json:"price_cents"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// AuditFields implements audit.Auditable. Notes are free text and stay out
// of the trail.
func (r *Reservation) AuditFields() map[string]any {
	return map[string]any{
		"branch_id":      r.BranchID,
		"service_id":     r.ServiceID,
		"client_id":      r.ClientID,
		"staff_id":       r.StaffID,
		"resource_id":    r.ResourceID,
		"package_id":     r.PackageID,
		"start_at":       r.StartAt.UTC().Format(time.RFC3339),
		"end_at":         r.EndAt.UTC().Format(time.RFC3339),
		"status":         string(r.Status),
		"payment_status": string(r.PaymentStatus),
	}
}

// Active reports whether the reservation still holds its slot.
func (r *Reservation) Active() bool { return r.Status != StatusCancelled }

// Open reports whether the appointment is still ahead: pending or
// confirmed. Only an open reservation gives its package session back.
func (r *Reservation) Open() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// Overlaps reports whether [start, end) intersects the reservation.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartAt.Before(end) && start.Before(r.EndAt)
}

// ClientRef names the client of a new booking, either by id or, for guest
// bookings, by email and name.
type ClientRef struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CreateRequest holds the fields for booking a slot.
type CreateRequest struct {
	ServiceID       string    `json:"service_id"`
	BranchID        string    `json:"branch_id"`
	Client          ClientRef `json:"client"`
	StartAt         time.Time `json:"start_at"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	ResourceID      string    `json:"resource_id,omitempty"`
	StaffID         string    `json:"staff_id,omitempty"`
	PackageID       string    `json:"package_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// Validate checks the request's shape. Ownership is checked by the engine.
func (r *CreateRequest) Validate() error {
	if r.ServiceID == "" {
		return domain.Invalid("service_id is required")
	}
	if r.BranchID == "" {
		return domain.Invalid("branch_id is required")
	}
	if r.Client.ID == "" && (r.Client.Email == "" || r.Client.Name == "") {
		return domain.Invalid("client id or guest email and name are required")
	}
	if r.StartAt.IsZero() {
		return domain.Invalid("start_at is required")
	}
	if r.DurationMinutes != nil && *r.DurationMinutes <= 0 {
		return domain.Invalid("duration_minutes must be positive")
	}
	return nil
}

// UpdateRequest is a partial reservation update. TenantID is accepted only
// so that an attempt to move the reservation to another clinic is rejected.
type UpdateRequest struct {
	TenantID        string         `json:"tenant_id,omitempty"`
	StartAt         *time.Time     `json:"start_at,omitempty"`
	DurationMinutes *int           `json:"duration_minutes,omitempty"`
	StaffID         *string        `json:"staff_id,omitempty"`
	ResourceID      *string        `json:"resource_id,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
	PaymentStatus   *PaymentStatus `json:"payment_status,omitempty"`
}

// Reschedules reports whether the update moves the reservation in time.
func (u *UpdateRequest) Reschedules() bool {
	return u.StartAt != nil || u.DurationMinutes != nil
}

// Apply returns r with the update applied.
func (u *UpdateRequest) Apply(r Reservation) (Reservation, error) {
	if u.DurationMinutes != nil && *u.DurationMinutes <= 0 {
		return r, domain.Invalid("duration_minutes must be positive")
	}
	duration := r.EndAt.Sub(r.StartAt)
	if u.DurationMinutes != nil {
		duration = time.Duration(*u.DurationMinutes) * time.Minute
	}
	if u.StartAt != nil {
		r.StartAt = u.StartAt.UTC()
	}
	r.EndAt = r.StartAt.Add(duration)
	if u.StaffID != nil {
		r.StaffID = *u.StaffID
	}
	if u.ResourceID != nil {
		r.ResourceID = *u.ResourceID
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	if u.PaymentStatus != nil {
		switch *u.PaymentStatus {
		case PaymentPaid, PaymentUnpaid:
			r.PaymentStatus = *u.PaymentStatus
		default:
			return r, domain.Invalid("unknown payment status %q", *u.PaymentStatus)
		}
	}
	return r, nil
}

// InitialStatus picks the status of a new reservation: package-backed and
// free bookings are confirmed and paid, priced bookings wait for payment.
func InitialStatus(priceCents int64, packageBacked bool) (Status, PaymentStatus) {
	if packageBacked || priceCents <= 0 {
		return StatusConfirmed, PaymentPaid
	}
	return StatusPending, PaymentUnpaid
}

// CheckTransition validates a status change. A cancelled reservation is
// final; re-cancelling it is allowed and has no effect. Completed and
// no-show reservations cannot be cancelled, though one may be corrected
// into the other.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return domain.Invalid("unknown reservation status %q", to)
	}
	if from == StatusCancelled && to != StatusCancelled {
		return domain.Invalid("cancelled reservation cannot become %s", to)
	}
	if (from == StatusCompleted || from == StatusNoShow) && to == StatusCancelled {
		return domain.Invalid("%s reservation cannot be cancelled", from)
	}
	return nil
}

// Conflict selects the reservations a booking may not overlap: those of the
// same branch and resource, or of the same branch and service when no
// resource is set. Cancelled reservations never conflict.
type Conflict struct {
	BranchID   string
	ResourceID string
	ServiceID  string
	Start      time.Time
	End        time.Time
	ExcludeID  string
}

// ConflictFor returns the conflict query for r.
func ConflictFor(r *Reservation) Conflict {
	c := Conflict{BranchID: r.BranchID, ResourceID: r.ResourceID, Start: r.StartAt, End: r.EndAt, ExcludeID: r.ID}
	if c.ResourceID == "" {
		c.ServiceID = r.ServiceID
	}
	return c
}

// Key identifies the serialization domain of the conflict: two bookings
// with the same key must not commit concurrently.
func (c Conflict) Key(tenantID string) string {
	if c.ResourceID != "" {
		return tenantID + "/" + c.BranchID + "/resource/" + c.ResourceID
	}
	return tenantID + "/" + c.BranchID + "/service/" + c.ServiceID
}

// Matches reports whether r collides with the query.
func (c Conflict) Matches(r *Reservation) bool {
	if !r.Active() || r.ID == c.ExcludeID || r.BranchID != c.BranchID {
		return false
	}
	if c.ResourceID != "" {
		if r.ResourceID != c.ResourceID {
			return false
		}
	} else if r.ResourceID != "" || r.ServiceID != c.ServiceID {
		return false
	}
	return r.Overlaps(c.Start, c.End)
}

// Filter narrows reservation listings.
type Filter struct {
	BranchID  string
	ServiceID string
	ClientID  string
	From      time.Time
	To        time.Time
	Status    Status
}
