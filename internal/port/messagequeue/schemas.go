package messagequeue

import "time"

// ReservationPayload is the schema for reservations.* messages.
type ReservationPayload struct {
	TenantID      string    `json:"tenant_id"`
	ReservationID string    `json:"reservation_id"`
	BranchID      string    `json:"branch_id"`
	ServiceID     string    `json:"service_id"`
	ClientID      string    `json:"client_id"`
	ResourceID    string    `json:"resource_id,omitempty"`
	PackageID     string    `json:"package_id,omitempty"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	ActorID       string    `json:"actor_id,omitempty"`
}

// PackagePayload is the schema for packages.* messages.
type PackagePayload struct {
	TenantID          string `json:"tenant_id"`
	PackageID         string `json:"package_id"`
	ClientID          string `json:"client_id"`
	ReservationID     string `json:"reservation_id,omitempty"`
	SessionsRemaining int    `json:"sessions_remaining"`
	SessionsTotal     int    `json:"sessions_total"`
}
