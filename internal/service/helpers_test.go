package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/adapter/memory"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
	"github.com/FerDeGante/Eventora-sub000/internal/port/reminder"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// monday is a Monday; every fixture books on it.
const monday = "2030-03-04"

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", monday+" "+hhmm)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func as(tenantID string) context.Context {
	return tenant.MustBind(context.Background(), tenant.Context{TenantID: tenantID, ActorID: "staff-1", RequestID: "req-1"})
}

// --- fakes ---

type published struct {
	subject string
	data    []byte
}

type fakeQueue struct {
	mu       sync.Mutex
	msgs     []published
	fail     error
	handlers map[string]messagequeue.Handler
}

func (q *fakeQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.msgs = append(q.msgs, published{subject: subject, data: data})
	return nil
}

func (q *fakeQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = map[string]messagequeue.Handler{}
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}, nil
}

func (q *fakeQueue) Drain() error      { return nil }
func (q *fakeQueue) Close() error      { return nil }
func (q *fakeQueue) IsConnected() bool { return true }

func (q *fakeQueue) subjects() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.msgs))
	for _, m := range q.msgs {
		out = append(out, m.subject)
	}
	return out
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
}

func (s *fakeScheduler) Schedule(_ context.Context, r reminder.Reminder, fireAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduled == nil {
		s.scheduled = map[string]time.Time{}
	}
	s.scheduled[r.ReservationID] = fireAt
	return nil
}

func (s *fakeScheduler) Cancel(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scheduled, id)
	s.cancelled = append(s.cancelled, id)
	return nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapCache) Set(_ context.Context, key string, v []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

var errBroker = errors.New("broker down")

// --- fixture ---

type fixture struct {
	store     *memory.Store
	audit     *memory.Recorder
	queue     *fakeQueue
	reminders *fakeScheduler
	cache     *mapCache

	avail    *AvailabilityService
	bookings *ReservationService
	packages *PackageService

	ctx     context.Context
	branch  *clinic.Branch
	service *clinic.Service
	room    *clinic.Resource
	client  *clinic.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		audit:     memory.NewRecorder(),
		queue:     &fakeQueue{},
		reminders: &fakeScheduler{},
		cache:     newMapCache(),
		ctx:       as("clinic-a"),
	}
	f.store = memory.New(scope.NewGuard(scope.WithRecorder(f.audit)))
	events := NewEventDispatcher(f.queue, nil)
	f.avail = NewAvailabilityService(f.store, f.cache, time.Minute)
	f.bookings = NewReservationService(f.store, events)
	f.bookings.SetReminders(f.reminders, 24*time.Hour)
	f.packages = NewPackageService(f.store, events)

	var err error
	if f.branch, err = f.store.CreateBranch(f.ctx, clinic.Branch{Name: "Centro", Active: true}); err != nil {
		t.Fatal(err)
	}
	if f.service, err = f.store.CreateService(f.ctx, clinic.Service{Name: "Massage", DurationMinutes: 60, PriceCents: 50000, Active: true}); err != nil {
		t.Fatal(err)
	}
	if f.room, err = f.store.CreateResource(f.ctx, clinic.Resource{BranchID: f.branch.ID, Kind: clinic.ResourceRoom, Name: "Room 1"}); err != nil {
		t.Fatal(err)
	}
	if f.client, err = f.store.CreateClient(f.ctx, clinic.Client{Email: "ana@example.com", Name: "Ana"}); err != nil {
		t.Fatal(err)
	}
	return f
}
