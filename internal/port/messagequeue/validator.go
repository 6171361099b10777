package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var tenantID string
	switch subject {
	case SubjectReservationCreated, SubjectReservationCancelled, SubjectReservationStatus, SubjectReservationReminder:
		var p ReservationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.ReservationID == "" {
			return fmt.Errorf("schema validation failed for %s: reservation_id is required", subject)
		}
		tenantID = p.TenantID
	case SubjectPackageConsumed, SubjectPackageRefunded:
		var p PackagePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.PackageID == "" {
			return fmt.Errorf("schema validation failed for %s: package_id is required", subject)
		}
		tenantID = p.TenantID
	default:
		return nil
	}

	if tenantID == "" {
		return fmt.Errorf("schema validation failed for %s: tenant_id is required", subject)
	}
	return nil
}
