// Package availability defines weekly opening templates, date exceptions and
// the slot arithmetic that merges them with existing bookings.
package availability

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

// DateLayout is the calendar-date format accepted by the engine.
const DateLayout = "2006-01-02"

// OwnerType names what a template or exception applies to.
type OwnerType string

const (
	OwnerBranch   OwnerType = "branch"
	OwnerService  OwnerType = "service"
	OwnerStaff    OwnerType = "staff"
	OwnerResource OwnerType = "resource"
)

// Valid reports whether o is a known owner type.
func (o OwnerType) Valid() bool {
	switch o {
	case OwnerBranch, OwnerService, OwnerStaff, OwnerResource:
		return true
	}
	return false
}

// Owner identifies the entity a template or exception belongs to.
type Owner struct {
	Type OwnerType `json:"owner_type"`
	ID   string    `json:"owner_id"`
}

// Template is a standing weekly opening window. StartTime and EndTime are
// wall-clock "HH:MM" labels, read on the UTC calendar.
type Template struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	OwnerType   OwnerType `json:"owner_type"`
	OwnerID     string    `json:"owner_id"`
	Weekday     int       `json:"weekday"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
	Capacity    int       `json:"capacity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Owner returns the template's owner.
func (t *Template) Owner() Owner { return Owner{Type: t.OwnerType, ID: t.OwnerID} }

// AuditFields implements audit.Auditable.
func (t *Template) AuditFields() map[string]any {
	return map[string]any{
		"owner_type":   string(t.OwnerType),
		"owner_id":     t.OwnerID,
		"weekday":      t.Weekday,
		"start_time":   t.StartTime,
		"end_time":     t.EndTime,
		"slot_minutes": t.SlotMinutes,
		"capacity":     t.Capacity,
	}
}

// Validate checks a template's fields.
func (t *Template) Validate() error {
	if !t.OwnerType.Valid() {
		return domain.Invalid("unknown owner type %q", t.OwnerType)
	}
	if t.OwnerID == "" {
		return domain.Invalid("owner id is required")
	}
	if t.Weekday < 0 || t.Weekday > 6 {
		return domain.Invalid("weekday %d out of range 0-6", t.Weekday)
	}
	start, err := ParseClock(t.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(t.EndTime)
	if err != nil {
		return err
	}
	if end < start {
		return domain.Invalid("end time %s is before start time %s", t.EndTime, t.StartTime)
	}
	if t.SlotMinutes <= 0 {
		return domain.Invalid("slot duration must be positive")
	}
	if t.Capacity <= 0 {
		return domain.Invalid("capacity must be positive")
	}
	return nil
}

// TemplateRequest holds the fields for creating a template.
type TemplateRequest struct {
	OwnerType   OwnerType `json:"owner_type"`
	OwnerID     string    `json:"owner_id"`
	Weekday     int       `json:"weekday"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	SlotMinutes int       `json:"slot_minutes"`
	Capacity    int       `json:"capacity"`
}

// Template builds an unsaved template from the request.
func (r TemplateRequest) Template() Template {
	return Template{
		OwnerType:   r.OwnerType,
		OwnerID:     r.OwnerID,
		Weekday:     r.Weekday,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		SlotMinutes: r.SlotMinutes,
		Capacity:    r.Capacity,
	}
}

// TemplatePatch is a partial template update. TenantID is accepted only so
// that an attempt to move the template to another clinic can be rejected.
type TemplatePatch struct {
	TenantID    string  `json:"tenant_id,omitempty"`
	Weekday     *int    `json:"weekday,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	SlotMinutes *int    `json:"slot_minutes,omitempty"`
	Capacity    *int    `json:"capacity,omitempty"`
}

// Apply returns t with the patch applied. Owner fields are immutable.
func (p TemplatePatch) Apply(t Template) Template {
	if p.Weekday != nil {
		t.Weekday = *p.Weekday
	}
	if p.StartTime != nil {
		t.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		t.EndTime = *p.EndTime
	}
	if p.SlotMinutes != nil {
		t.SlotMinutes = *p.SlotMinutes
	}
	if p.Capacity != nil {
		t.Capacity = *p.Capacity
	}
	return t
}

// TemplateFilter narrows ListTemplates. Zero fields match everything.
type TemplateFilter struct {
	OwnerType OwnerType
	OwnerID   string
	Weekday   *int
}

// Exception overrides templates for one owner on one calendar date: either
// the day is closed, or Slots replaces the template-derived labels.
type Exception struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	OwnerType OwnerType `json:"owner_type"`
	OwnerID   string    `json:"owner_id"`
	Date      string    `json:"date"`
	Closed    bool      `json:"closed"`
	Slots     []string  `json:"slots,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditFields implements audit.Auditable.
func (e *Exception) AuditFields() map[string]any {
	return map[string]any{
		"owner_type": string(e.OwnerType),
		"owner_id":   e.OwnerID,
		"date":       e.Date,
		"closed":     e.Closed,
		"slots":      slices.Clone(e.Slots),
	}
}

// Validate checks an exception's fields.
func (e *Exception) Validate() error {
	if !e.OwnerType.Valid() || e.OwnerID == "" {
		return domain.Invalid("exception owner is required")
	}
	if _, err := ParseDate(e.Date); err != nil {
		return err
	}
	if !e.Closed && len(e.Slots) == 0 {
		return domain.Invalid("exception must close the day or list replacement slots")
	}
	for _, s := range e.Slots {
		if _, err := ParseClock(s); err != nil {
			return err
		}
	}
	return nil
}

// Slot is a bookable time label and its remaining capacity.
type Slot struct {
	Time              string `json:"time"`
	RemainingCapacity int    `json:"remainingCapacity"`
}

// ParseDate parses a "YYYY-MM-DD" date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, s)
	}
	return d, nil
}

// ParseClock parses an "HH:MM" label into minutes after midnight. "24:00"
// is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, domain.Invalid("invalid time %q, expected HH:MM", s)
	}
	h, errH := strconv.Atoi(s[:2])
	m, errM := strconv.Atoi(s[3:])
	if errH != nil || errM != nil || h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, domain.Invalid("invalid time %q, expected HH:MM", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Label returns the UTC "HH:MM" label of an instant.
func Label(t time.Time) string {
	return t.UTC().Format("15:04")
}
