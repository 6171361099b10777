package http

import (
	"net/http"
)

type consumeRequest struct {
	ClientID string `json:"client_id"`
}

// ConsumePackage handles POST /packages/{id}/consume.
func (h *Handlers) ConsumePackage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[consumeRequest](w, r)
	if !ok {
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	p, err := h.Packages.Consume(r.Context(), urlParam(r, "id"), req.ClientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
