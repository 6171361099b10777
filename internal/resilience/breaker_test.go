package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/config"
)

var errTest = errors.New("nats unavailable")

func newTestBreaker(maxFailures int) (*Breaker, *time.Time) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker("events", config.Breaker{MaxFailures: maxFailures, Timeout: time.Second}, nil)
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(context.Context) error    { return errTest }
func succeed(context.Context) error { return nil }

func TestClosedStateAllowsCalls(t *testing.T) {
	b, _ := newTestBreaker(3)
	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Fatalf("expected call through closed breaker, err=%v called=%v", err, called)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s", b.State())
	}
}

func TestOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	for range 3 {
		if err := b.Execute(ctx, fail); !errors.Is(err, errTest) {
			t.Fatalf("failure must pass through, got %v", err)
		}
	}
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.State() != "open" {
		t.Fatalf("state = %s", b.State())
	}
}

func TestHalfOpenProbeCloses(t *testing.T) {
	b, now := newTestBreaker(2)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	*now = now.Add(2 * time.Second)
	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe must be allowed, got %v", err)
	}
	if b.State() != "closed" {
		t.Fatalf("state = %s", b.State())
	}
}

func TestHalfOpenAllowsOneProbe(t *testing.T) {
	b, now := newTestBreaker(1)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	*now = now.Add(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second call during probe must be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(2)
	ctx := context.Background()
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	*now = now.Add(2 * time.Second)
	_ = b.Execute(ctx, fail)

	if b.State() != "open" {
		t.Fatalf("state = %s", b.State())
	}
	if err := b.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, fail)

	if err := b.Execute(ctx, succeed); err != nil {
		t.Fatalf("breaker must still be closed, got %v", err)
	}
}
