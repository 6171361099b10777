package reservation

import (
	"errors"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
)

var ten = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestConflictMatches(t *testing.T) {
	existing := Reservation{ID: "r1", BranchID: "b1", ServiceID: "s1", ResourceID: "room1", StartAt: ten, EndAt: ten.Add(time.Hour), Status: StatusConfirmed}

	tests := []struct {
		name string
		q    Conflict
		want bool
	}{
		{"same resource overlapping", Conflict{BranchID: "b1", ResourceID: "room1", Start: ten.Add(30 * time.Minute), End: ten.Add(90 * time.Minute)}, true},
		{"touching end", Conflict{BranchID: "b1", ResourceID: "room1", Start: ten.Add(time.Hour), End: ten.Add(2 * time.Hour)}, false},
		{"touching start", Conflict{BranchID: "b1", ResourceID: "room1", Start: ten.Add(-time.Hour), End: ten}, false},
		{"other resource", Conflict{BranchID: "b1", ResourceID: "room2", Start: ten, End: ten.Add(time.Hour)}, false},
		{"other branch", Conflict{BranchID: "b2", ResourceID: "room1", Start: ten, End: ten.Add(time.Hour)}, false},
		{"excluded self", Conflict{BranchID: "b1", ResourceID: "room1", Start: ten, End: ten.Add(time.Hour), ExcludeID: "r1"}, false},
		{"service key ignores resourced booking", Conflict{BranchID: "b1", ServiceID: "s1", Start: ten, End: ten.Add(time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Matches(&existing); got != tt.want {
				t.Fatalf("Matches = %v, want %v", got, tt.want)
			}
		})
	}

	existing.Status = StatusCancelled
	if (Conflict{BranchID: "b1", ResourceID: "room1", Start: ten, End: ten.Add(time.Hour)}).Matches(&existing) {
		t.Fatal("cancelled reservations must not conflict")
	}
}

func TestConflictForWithoutResource(t *testing.T) {
	r := Reservation{ID: "r2", BranchID: "b1", ServiceID: "s1", StartAt: ten, EndAt: ten.Add(time.Hour)}
	c := ConflictFor(&r)
	if c.ServiceID != "s1" || c.ExcludeID != "r2" {
		t.Fatalf("unexpected conflict query %+v", c)
	}
	if c.Key("t1") != "t1/b1/service/s1" {
		t.Fatalf("unexpected key %q", c.Key("t1"))
	}
	other := Reservation{ID: "r3", BranchID: "b1", ServiceID: "s1", StartAt: ten.Add(15 * time.Minute), EndAt: ten.Add(45 * time.Minute), Status: StatusPending}
	if !c.Matches(&other) {
		t.Fatal("same branch and service should conflict")
	}
}

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		price   int64
		pkg     bool
		status  Status
		payment PaymentStatus
	}{
		{5000, true, StatusConfirmed, PaymentPaid},
		{5000, false, StatusPending, PaymentUnpaid},
		{0, false, StatusConfirmed, PaymentPaid},
	}
	for _, tt := range tests {
		s, p := InitialStatus(tt.price, tt.pkg)
		if s != tt.status || p != tt.payment {
			t.Errorf("InitialStatus(%d, %v) = %s/%s, want %s/%s", tt.price, tt.pkg, s, p, tt.status, tt.payment)
		}
	}
}

func TestCheckTransition(t *testing.T) {
	if err := CheckTransition(StatusConfirmed, StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if err := CheckTransition(StatusCancelled, StatusCancelled); err != nil {
		t.Fatalf("re-cancel should be allowed: %v", err)
	}
	if err := CheckTransition(StatusCancelled, StatusConfirmed); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := CheckTransition(StatusPending, "archived"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, from := range []Status{StatusCompleted, StatusNoShow} {
		if err := CheckTransition(from, StatusCancelled); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s -> cancelled: expected validation error, got %v", from, err)
		}
	}
	if err := CheckTransition(StatusNoShow, StatusCompleted); err != nil {
		t.Fatalf("no-show may be corrected to completed: %v", err)
	}
}

func TestOpen(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:   true,
		StatusConfirmed: true,
		StatusCompleted: false,
		StatusNoShow:    false,
		StatusCancelled: false,
	} {
		r := Reservation{Status: status}
		if r.Open() != want {
			t.Errorf("%s: Open() = %v, want %v", status, r.Open(), want)
		}
	}
}

func TestUpdateApply(t *testing.T) {
	r := Reservation{StartAt: ten, EndAt: ten.Add(time.Hour)}
	later := ten.Add(2 * time.Hour)
	u := UpdateRequest{StartAt: &later}
	got, err := u.Apply(r)
	if err != nil {
		t.Fatal(err)
	}
	if !got.EndAt.Equal(later.Add(time.Hour)) {
		t.Fatalf("duration not preserved: %v-%v", got.StartAt, got.EndAt)
	}
	if !u.Reschedules() {
		t.Fatal("start change must reschedule")
	}

	d := 30
	got, err = (&UpdateRequest{DurationMinutes: &d}).Apply(r)
	if err != nil || !got.EndAt.Equal(ten.Add(30*time.Minute)) {
		t.Fatalf("duration change: %v %v", got.EndAt, err)
	}

	notes := "bring towel"
	if (&UpdateRequest{Notes: &notes}).Reschedules() {
		t.Fatal("notes change must not reschedule")
	}
}

func TestCreateRequestValidate(t *testing.T) {
	ok := CreateRequest{ServiceID: "s", BranchID: "b", Client: ClientRef{Email: "a@b.c", Name: "A"}, StartAt: ten}
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}
	noClient := ok
	noClient.Client = ClientRef{Email: "a@b.c"}
	if err := noClient.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
