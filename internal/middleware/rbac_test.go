package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/middleware"
)

func TestRequireRole(t *testing.T) {
	h := middleware.RequireRole(middleware.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		ctx  context.Context
		want int
	}{
		{"no tenant", context.Background(), http.StatusUnauthorized},
		{"wrong role", tenant.MustBind(context.Background(), tenant.Context{TenantID: "a", Roles: []string{"reception"}}), http.StatusForbidden},
		{"admin", tenant.MustBind(context.Background(), tenant.Context{TenantID: "a", Roles: []string{"reception", "admin"}}), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", http.NoBody).WithContext(tt.ctx)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
