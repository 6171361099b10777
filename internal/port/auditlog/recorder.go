// Package auditlog defines the audit recorder port.
package auditlog

import (
	"context"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
)

// Recorder persists audit entries. The audit log is exempt from tenant
// scoping, so implementations write entries as given.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// Reader lists recorded entries of one tenant, newest first.
type Reader interface {
	ListAudit(ctx context.Context, tenantID string, limit int) ([]audit.Entry, error)
}
