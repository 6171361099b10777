// Package domain provides shared domain-level sentinel errors.
//
// Errors come in two layers. Class sentinels (ErrNotFound, ErrConflict, ...)
// describe how a caller should react; specific errors carry a stable,
// user-facing message and unwrap to exactly one class, so both
// errors.Is(err, domain.ErrSlotTaken) and errors.Is(err, domain.ErrConflict)
// hold for the same value.
package domain

import (
	"errors"
	"fmt"
)

// Error classes.
var (
	// ErrPrecondition indicates a caller or integration bug, such as a missing
	// tenant context. Never retryable.
	ErrPrecondition = errors.New("precondition failed")

	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested entity does not exist in the caller's tenant.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the request collides with existing state and may be
	// retried with different input.
	ErrConflict = errors.New("conflict")

	// ErrExhausted indicates a consumable resource (a prepaid package) cannot
	// serve the request.
	ErrExhausted = errors.New("resource exhausted")
)

// classError is a stable-message error that unwraps to its class sentinel.
type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classError{msg: msg, class: class}
}

// Tenancy errors.
var (
	ErrTenantContextMissing   = newError(ErrPrecondition, "Tenant context not available")
	ErrTenantMismatch         = newError(ErrPrecondition, "Tenant context mismatch")
	ErrTenantRequiredForWrite = newError(ErrPrecondition, "Tenant context is required for write operations")
	ErrTenantChange           = newError(ErrConflict, "Cannot change clinic for existing record")
	ErrTenantDisabled         = newError(ErrPrecondition, "Tenant is disabled")
)

// Lookup errors.
var (
	ErrTenantNotFound      = newError(ErrNotFound, "Tenant not found")
	ErrServiceNotFound     = newError(ErrNotFound, "Service not found")
	ErrBranchNotFound      = newError(ErrNotFound, "Branch not found")
	ErrResourceNotFound    = newError(ErrNotFound, "Resource not found")
	ErrStaffNotFound       = newError(ErrNotFound, "Staff not found")
	ErrClientNotFound      = newError(ErrNotFound, "Client not found")
	ErrPackageNotFound     = newError(ErrNotFound, "Package not found")
	ErrReservationNotFound = newError(ErrNotFound, "Reservation not found")
	ErrTemplateNotFound    = newError(ErrNotFound, "Template not found")
	ErrExceptionNotFound   = newError(ErrNotFound, "Exception not found")
)

// Booking errors.
var (
	ErrSlotTaken        = newError(ErrConflict, "Slot already taken")
	ErrPackageExhausted = newError(ErrExhausted, "Package has no remaining sessions")
	ErrPackageExpired   = newError(ErrExhausted, "Package has expired")
	ErrInvalidDate      = newError(ErrValidation, "Invalid date")
)

// Invalid returns a validation error with the given message.
func Invalid(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// Message returns the stable message of a domain error, or "" if err does not
// carry one.
func Message(err error) string {
	var ce *classError
	if errors.As(err, &ce) {
		return ce.msg
	}
	return ""
}
