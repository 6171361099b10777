package http

import (
	"net/http"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
)

// ListReservations handles GET /reservations with optional branch_id,
// service_id, client_id, status, from and to filters.
func (h *Handlers) ListReservations(w http.ResponseWriter, r *http.Request) {
	from, ok := queryTime(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryTime(w, r, "to")
	if !ok {
		return
	}
	q := r.URL.Query()
	f := reservation.Filter{
		BranchID:  q.Get("branch_id"),
		ServiceID: q.Get("service_id"),
		ClientID:  q.Get("client_id"),
		Status:    reservation.Status(q.Get("status")),
		From:      from,
		To:        to,
	}
	if f.Status != "" && !f.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	list, err := h.Reservations.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []reservation.Reservation{}
	}
	writeJSON(w, http.StatusOK, list)
}

type statusRequest struct {
	Status reservation.Status `json:"status"`
}

// SetReservationStatus handles POST /reservations/{id}/status.
func (h *Handlers) SetReservationStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[statusRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Reservations.SetStatus(r.Context(), urlParam(r, "id"), req.Status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
