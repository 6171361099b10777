// Package middleware provides the HTTP middleware of the booking API:
// request ids, Tenant Context binding, role checks, per-tenant rate
// limiting and idempotent replays.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/FerDeGante/Eventora-sub000/internal/logger"
)

const headerRequestID = "X-Request-ID"

// maxRequestIDLen bounds client-supplied ids before they reach logs.
const maxRequestIDLen = 128

// RequestID reads X-Request-ID or generates one. The id is stored in the
// context and echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
