package http

import (
	"net/http"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
)

// GetSlots handles GET /availability?service_id=&branch_id=&date=.
func (h *Handlers) GetSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID, branchID, date := q.Get("service_id"), q.Get("branch_id"), q.Get("date")
	if serviceID == "" || branchID == "" || date == "" {
		writeError(w, http.StatusBadRequest, "service_id, branch_id and date are required")
		return
	}
	slots, err := h.Availability.ComputeSlots(r.Context(), serviceID, branchID, date)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

// ListTemplates handles GET /templates?owner_type=&owner_id=&weekday=.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	weekday, ok := queryInt(w, r, "weekday")
	if !ok {
		return
	}
	f := availability.TemplateFilter{
		OwnerType: availability.OwnerType(r.URL.Query().Get("owner_type")),
		OwnerID:   r.URL.Query().Get("owner_id"),
		Weekday:   weekday,
	}
	list, err := h.Availability.ListTemplates(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []availability.Template{}
	}
	writeJSON(w, http.StatusOK, list)
}

type scheduleResponse struct {
	Created int `json:"created"`
}

// ReplaceSchedule handles PUT /schedules/{ownerType}/{ownerID}: the body
// replaces every weekly template of the owner.
func (h *Handlers) ReplaceSchedule(w http.ResponseWriter, r *http.Request) {
	reqs, ok := readJSON[[]availability.TemplateRequest](w, r)
	if !ok {
		return
	}
	owner := availability.Owner{
		Type: availability.OwnerType(urlParam(r, "ownerType")),
		ID:   urlParam(r, "ownerID"),
	}
	n, err := h.Availability.ReplaceWeeklySchedule(r.Context(), owner, reqs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Created: n})
}

// ListExceptions handles GET /exceptions?date=&owner_type=&owner_id=.
func (h *Handlers) ListExceptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var owners []availability.Owner
	if q.Get("owner_type") != "" {
		owners = append(owners, availability.Owner{Type: availability.OwnerType(q.Get("owner_type")), ID: q.Get("owner_id")})
	}
	list, err := h.Availability.ListExceptions(r.Context(), q.Get("date"), owners...)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []availability.Exception{}
	}
	writeJSON(w, http.StatusOK, list)
}
