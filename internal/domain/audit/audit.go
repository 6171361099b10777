// Package audit defines the audit trail recorded for mutations of
// tenant-owned entities.
package audit

import "time"

// Entity names a persisted entity type.
type Entity string

const (
	EntityBranch      Entity = "branch"
	EntityService     Entity = "service"
	EntityResource    Entity = "resource"
	EntityStaff       Entity = "staff"
	EntityClient      Entity = "client"
	EntityTemplate    Entity = "availability_template"
	EntityException   Entity = "availability_exception"
	EntityReservation Entity = "reservation"
	EntityPackage     Entity = "user_package"

	// Exempt from scoping and auditing: auditing the audit log would recurse,
	// and one-time tokens are short-lived noise.
	EntityAuditLog     Entity = "audit_log"
	EntityOneTimeToken Entity = "one_time_token"
)

// Exempt reports whether e bypasses tenant scoping and auditing.
func (e Entity) Exempt() bool {
	return e == EntityAuditLog || e == EntityOneTimeToken
}

// Op is a persistence operation.
type Op string

const (
	OpRead       Op = "read"
	OpCreate     Op = "create"
	OpCreateMany Op = "create_many"
	OpUpdate     Op = "update"
	OpUpdateMany Op = "update_many"
	OpDelete     Op = "delete"
	OpDeleteMany Op = "delete_many"
	OpUpsert     Op = "upsert"
)

// Mutating reports whether op writes.
func (o Op) Mutating() bool {
	return o != OpRead
}

// Bulk reports whether op may touch more than one row.
func (o Op) Bulk() bool {
	return o == OpCreateMany || o == OpUpdateMany || o == OpDeleteMany
}

// BulkEntityID is recorded when a bulk operation has no single entity id.
const BulkEntityID = "bulk"

// Auditable is implemented by every domain type that can appear in the audit
// trail. AuditFields returns the allow-listed, non-sensitive fields only; a
// field added to the type is not audited until it is added here.
type Auditable interface {
	AuditFields() map[string]any
}

// Entry is one audit record.
type Entry struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Entity    Entity         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Op        Op             `json:"op"`
	Fields    map[string]any `json:"fields,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// EntityID picks the id to audit: the result's id if present, else the id
// pinned by the filter, else the bulk marker for bulk operations.
func EntityID(resultID, filterID string, op Op) string {
	switch {
	case resultID != "":
		return resultID
	case filterID != "":
		return filterID
	case op.Bulk():
		return BulkEntityID
	default:
		return ""
	}
}
