// Package resilience guards calls to collaborators (event bus, reminder
// queue) so that an outage degrades side effects instead of stalling
// bookings.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/config"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker opens after maxFailures consecutive failures and rejects calls
// until timeout has elapsed. It then lets a single probe through: success
// closes the circuit, failure reopens it.
type Breaker struct {
	name        string
	mu          sync.Mutex
	state       state
	probing     bool
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time
	logger      *slog.Logger
}

// NewBreaker creates a named breaker from cfg.
func NewBreaker(name string, cfg config.Breaker, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		name:        name,
		maxFailures: max(cfg.MaxFailures, 1),
		timeout:     cfg.Timeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Execute runs fn unless the circuit is open.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err != nil {
		b.onFailure(ctx)
		return err
	}
	b.onSuccess(ctx)
	return nil
}

// State reports "closed", "open" or "half-open".
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

func (b *Breaker) allowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.state = stateHalfOpen
		b.probing = true
		return true
	case stateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure(ctx context.Context) {
	b.failures++
	if b.state == stateHalfOpen || (b.state == stateClosed && b.failures >= b.maxFailures) {
		b.state = stateOpen
		b.openedAt = b.now()
		b.logger.WarnContext(ctx, "circuit opened", "breaker", b.name, "failures", b.failures)
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess(ctx context.Context) {
	if b.state != stateClosed {
		b.logger.InfoContext(ctx, "circuit closed", "breaker", b.name)
	}
	b.failures = 0
	b.state = stateClosed
}
