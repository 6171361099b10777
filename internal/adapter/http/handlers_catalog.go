package http

import (
	"net/http"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
)

// CreateResource handles POST /branches/{id}/resources.
func (h *Handlers) CreateResource(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[clinic.Resource](w, r)
	if !ok {
		return
	}
	req.BranchID = urlParam(r, "id")
	res, err := h.Catalog.CreateResource(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// CreateStaff handles POST /branches/{id}/staff.
func (h *Handlers) CreateStaff(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[clinic.Staff](w, r)
	if !ok {
		return
	}
	req.BranchID = urlParam(r, "id")
	st, err := h.Catalog.CreateStaff(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}
