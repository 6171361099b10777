package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, ctx context.Context, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 3))
	for i := range 3 {
		if rec := hit(h, context.Background(), "192.168.1.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := hit(h, context.Background(), "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestRateLimiterKeysByTenant(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 1))
	a := tenant.MustBind(context.Background(), tenant.Context{TenantID: "clinic-a"})
	b := tenant.MustBind(context.Background(), tenant.Context{TenantID: "clinic-b"})

	if rec := hit(h, a, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("first request of clinic-a: %d", rec.Code)
	}
	// Same tenant from another address shares the bucket.
	if rec := hit(h, a, "10.0.0.2"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected clinic-a to be limited, got %d", rec.Code)
	}
	if rec := hit(h, b, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("clinic-b must have its own bucket, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := limitedHandler(rl)
	hit(h, context.Background(), "10.0.0.1")
	hit(h, context.Background(), "10.0.0.2")
	if rl.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", rl.Len())
	}
	rl.cleanup(time.Now().Add(time.Minute))
	if rl.Len() != 0 {
		t.Fatalf("expected idle buckets removed, got %d", rl.Len())
	}
}

func TestRateLimiterCapsTrackedKeys(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.maxBuckets = 1
	h := limitedHandler(rl)
	hit(h, context.Background(), "10.0.0.1")
	if rec := hit(h, context.Background(), "10.0.0.2"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected rejection at capacity, got %d", rec.Code)
	}
}
