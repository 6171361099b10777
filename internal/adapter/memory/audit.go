package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
)

// Recorder keeps audit entries in memory. It implements auditlog.Recorder
// and auditlog.Reader.
type Recorder struct {
	mu      sync.Mutex
	entries []audit.Entry
	fail    error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Record appends e, or returns the configured failure.
func (r *Recorder) Record(_ context.Context, e audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.entries = append(r.entries, e)
	return nil
}

// ListAudit returns up to limit entries of tenantID, newest first.
func (r *Recorder) ListAudit(_ context.Context, tenantID string, limit int) ([]audit.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []audit.Entry{}
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TenantID != tenantID {
			continue
		}
		out = append(out, r.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of every recorded entry in insertion order.
func (r *Recorder) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// FailWith makes subsequent Record calls fail with err (nil restores).
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}
