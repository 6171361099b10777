package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/messagequeue"
)

func (f *fixture) pkg(t *testing.T, sessions int) *userpackage.UserPackage {
	t.Helper()
	p, err := f.packages.Create(f.ctx, userpackage.CreateRequest{ClientID: f.client.ID, Name: "Ten pack", SessionsTotal: sessions})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	return p
}

func (f *fixture) remaining(t *testing.T, id string) int {
	t.Helper()
	p, err := f.packages.Get(f.ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	return p.SessionsRemaining
}

func (f *fixture) request(start string) reservation.CreateRequest {
	return reservation.CreateRequest{
		ServiceID:  f.service.ID,
		BranchID:   f.branch.ID,
		ResourceID: f.room.ID,
		Client:     reservation.ClientRef{ID: f.client.ID},
		StartAt:    at(start),
	}
}

func TestBookingEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "12:00", 60, 1)
	p := f.pkg(t, 3)

	req := f.request("10:00")
	req.PackageID = p.ID
	r, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if r.Status != reservation.StatusConfirmed || r.PaymentStatus != reservation.PaymentPaid {
		t.Fatalf("package booking should be confirmed and paid, got %s/%s", r.Status, r.PaymentStatus)
	}
	if !r.EndAt.Equal(at("11:00")) {
		t.Fatalf("end = %v", r.EndAt)
	}
	if got := f.remaining(t, p.ID); got != 2 {
		t.Fatalf("sessions remaining = %d, want 2", got)
	}

	_, err = f.bookings.Create(f.ctx, f.request("10:00"))
	if !errors.Is(err, domain.ErrSlotTaken) || domain.Message(err) != "Slot already taken" {
		t.Fatalf("second booking: expected slot taken, got %v", err)
	}

	if _, err := f.bookings.Cancel(f.ctx, r.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.remaining(t, p.ID); got != 3 {
		t.Fatalf("sessions remaining after cancel = %d, want 3", got)
	}

	want := []string{
		messagequeue.SubjectReservationCreated,
		messagequeue.SubjectPackageConsumed,
		messagequeue.SubjectReservationCancelled,
		messagequeue.SubjectPackageRefunded,
	}
	if got := f.queue.subjects(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	if len(f.reminders.cancelled) != 1 || f.reminders.cancelled[0] != r.ID {
		t.Fatalf("reminder not cancelled: %v", f.reminders.cancelled)
	}
}

func TestConcurrentBookingsExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 20)

	const bookers = 16
	var wg sync.WaitGroup
	errs := make([]error, bookers)
	for i := range bookers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.request("10:00")
			req.PackageID = p.ID
			_, errs[i] = f.bookings.Create(f.ctx, req)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, domain.ErrSlotTaken):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	if got := f.remaining(t, p.ID); got != 19 {
		t.Fatalf("losers must not consume sessions: remaining %d", got)
	}
}

func TestBookingInitialStatus(t *testing.T) {
	f := newFixture(t)
	r, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != reservation.StatusPending || r.PaymentStatus != reservation.PaymentUnpaid || r.PriceCents != 50000 {
		t.Fatalf("priced booking should await payment, got %s/%s/%d", r.Status, r.PaymentStatus, r.PriceCents)
	}
	if _, ok := f.reminders.scheduled[r.ID]; !ok {
		t.Fatal("reminder not scheduled")
	}
	if fireAt := f.reminders.scheduled[r.ID]; !fireAt.Equal(at("09:00").Add(-24 * time.Hour)) {
		t.Fatalf("reminder fires at %v", fireAt)
	}
}

func TestBookingGuestClient(t *testing.T) {
	f := newFixture(t)
	req := f.request("09:00")
	req.Client = reservation.ClientRef{Email: "  Luis@Example.com ", Name: "Luis"}
	first, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	req = f.request("11:00")
	req.Client = reservation.ClientRef{Email: "luis@example.com", Name: "Luis"}
	second, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if first.ClientID != second.ClientID || first.ClientID == f.client.ID {
		t.Fatalf("guest email should resolve to one new client: %s %s", first.ClientID, second.ClientID)
	}
}

func TestBookingValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		ctx    context.Context
		modify func(*reservation.CreateRequest)
		want   error
	}{
		{"no tenant", context.Background(), func(*reservation.CreateRequest) {}, domain.ErrTenantContextMissing},
		{"missing service", f.ctx, func(r *reservation.CreateRequest) { r.ServiceID = "" }, domain.ErrValidation},
		{"unknown service", f.ctx, func(r *reservation.CreateRequest) { r.ServiceID = "nope" }, domain.ErrServiceNotFound},
		{"unknown branch", f.ctx, func(r *reservation.CreateRequest) { r.BranchID = "nope" }, domain.ErrBranchNotFound},
		{"unknown resource", f.ctx, func(r *reservation.CreateRequest) { r.ResourceID = "nope" }, domain.ErrResourceNotFound},
		{"foreign package", f.ctx, func(r *reservation.CreateRequest) { r.PackageID = "nope" }, domain.ErrPackageNotFound},
		{"other tenant", as("clinic-b"), func(*reservation.CreateRequest) {}, domain.ErrServiceNotFound},
		{"zero duration", f.ctx, func(r *reservation.CreateRequest) { zero := 0; r.DurationMinutes = &zero }, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("09:00")
			tt.modify(&req)
			if _, err := f.bookings.Create(tt.ctx, req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBookingExhaustedPackage(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 1)

	req := f.request("09:00")
	req.PackageID = p.ID
	if _, err := f.bookings.Create(f.ctx, req); err != nil {
		t.Fatal(err)
	}
	req = f.request("10:00")
	req.PackageID = p.ID
	_, err := f.bookings.Create(f.ctx, req)
	if !errors.Is(err, domain.ErrPackageExhausted) || !errors.Is(err, domain.ErrExhausted) {
		t.Fatalf("expected exhausted, got %v", err)
	}
	list, _ := f.bookings.List(f.ctx, reservation.Filter{})
	if len(list) != 1 {
		t.Fatalf("failed booking must not persist, got %d reservations", len(list))
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)
	req := f.request("09:00")
	req.PackageID = p.ID
	r, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if _, err := f.bookings.Cancel(f.ctx, r.ID); err != nil {
			t.Fatal(err)
		}
	}
	if got := f.remaining(t, p.ID); got != 2 {
		t.Fatalf("double cancel refunded twice: remaining %d", got)
	}
	if _, err := f.bookings.SetStatus(f.ctx, r.ID, reservation.StatusConfirmed); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("cancelled reservation must stay cancelled, got %v", err)
	}
	// The cancelled slot is free again.
	if _, err := f.bookings.Create(f.ctx, f.request("09:00")); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}

func TestCompleteDoesNotRefund(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)
	req := f.request("09:00")
	req.PackageID = p.ID
	r, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	out, err := f.bookings.SetStatus(f.ctx, r.ID, reservation.StatusCompleted)
	if err != nil || out.Status != reservation.StatusCompleted {
		t.Fatalf("complete: %v %v", out, err)
	}
	if got := f.remaining(t, p.ID); got != 1 {
		t.Fatalf("completion touched the package: remaining %d", got)
	}
	if !slices.Contains(f.queue.subjects(), messagequeue.SubjectReservationStatus) {
		t.Fatal("status event not published")
	}

	if _, err := f.bookings.Cancel(f.ctx, r.ID); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("cancelling a delivered appointment: expected validation error, got %v", err)
	}
	if err := f.bookings.Delete(f.ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := f.remaining(t, p.ID); got != 1 {
		t.Fatalf("delivered session was refunded: remaining %d", got)
	}
}

func TestDeleteRefunds(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)
	req := f.request("09:00")
	req.PackageID = p.ID
	r, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.bookings.Delete(f.ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.remaining(t, p.ID); got != 2 {
		t.Fatalf("delete did not refund: remaining %d", got)
	}
	if _, err := f.bookings.Get(f.ctx, r.ID); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected deleted reservation gone, got %v", err)
	}
}

func TestDeleteCancelledDoesNotRefundAgain(t *testing.T) {
	f := newFixture(t)
	p := f.pkg(t, 2)
	req := f.request("09:00")
	req.PackageID = p.ID
	r, err := f.bookings.Create(f.ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.bookings.Cancel(f.ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.bookings.Delete(f.ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if got := f.remaining(t, p.ID); got != 2 {
		t.Fatalf("remaining %d, want 2", got)
	}
}

func TestRescheduleRechecksConflicts(t *testing.T) {
	f := newFixture(t)
	first, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.bookings.Create(f.ctx, f.request("11:00"))
	if err != nil {
		t.Fatal(err)
	}

	// Extending its own slot does not conflict with itself.
	ninety := 90
	if _, err := f.bookings.Update(f.ctx, first.ID, reservation.UpdateRequest{DurationMinutes: &ninety}); err != nil {
		t.Fatalf("extend: %v", err)
	}

	start := at("10:00")
	_, err = f.bookings.Update(f.ctx, second.ID, reservation.UpdateRequest{StartAt: &start})
	if !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("expected overlap with the extended booking, got %v", err)
	}

	later := at("13:00")
	moved, err := f.bookings.Update(f.ctx, second.ID, reservation.UpdateRequest{StartAt: &later})
	if err != nil {
		t.Fatal(err)
	}
	if !moved.EndAt.Equal(at("14:00")) {
		t.Fatalf("duration not kept: ends %v", moved.EndAt)
	}
	if fireAt := f.reminders.scheduled[second.ID]; !fireAt.Equal(later.Add(-24 * time.Hour)) {
		t.Fatalf("reminder not rescheduled: %v", fireAt)
	}
}

func TestUpdateRejectsTenantChange(t *testing.T) {
	f := newFixture(t)
	r, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if err != nil {
		t.Fatal(err)
	}
	notes := "moved"
	_, err = f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{TenantID: "clinic-b", Notes: &notes})
	if !errors.Is(err, domain.ErrTenantChange) || domain.Message(err) != "Cannot change clinic for existing record" {
		t.Fatalf("expected tenant change rejection, got %v", err)
	}
	if _, err := f.bookings.Update(as("clinic-b"), r.ID, reservation.UpdateRequest{Notes: &notes}); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("foreign tenant must not reach the reservation, got %v", err)
	}
}

func TestUpdateMovesResource(t *testing.T) {
	f := newFixture(t)
	r, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if err != nil {
		t.Fatal(err)
	}
	room2, err := f.store.CreateResource(f.ctx, clinic.Resource{BranchID: f.branch.ID, Kind: clinic.ResourceRoom, Name: "Room 2"})
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		r   *reservation.Reservation
		err error
	}
	done := make(chan result, 1)
	go func() {
		moved, err := f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{ResourceID: &room2.ID})
		done <- result{moved, err}
	}()
	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("move to free room: %v", res.err)
		}
		if res.r.ResourceID != room2.ID {
			t.Fatalf("resource = %s, want %s", res.r.ResourceID, room2.ID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("moving a reservation to another resource did not return")
	}

	// Room 1 is free again; book it and try to move the first one back.
	if _, err := f.bookings.Create(f.ctx, f.request("09:00")); err != nil {
		t.Fatalf("book freed room: %v", err)
	}
	_, err = f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{ResourceID: &f.room.ID})
	if !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("expected slot taken moving onto a busy room, got %v", err)
	}
}

func TestUpdateRejectsForeignReferences(t *testing.T) {
	f := newFixture(t)
	r, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if err != nil {
		t.Fatal(err)
	}

	other := as("clinic-b")
	otherBranch, err := f.store.CreateBranch(other, clinic.Branch{Name: "Norte", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	otherRoom, err := f.store.CreateResource(other, clinic.Resource{BranchID: otherBranch.ID, Kind: clinic.ResourceRoom, Name: "Sala"})
	if err != nil {
		t.Fatal(err)
	}
	otherStaff, err := f.store.CreateStaff(other, clinic.Staff{BranchID: otherBranch.ID, Name: "Luis", Active: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{ResourceID: &otherRoom.ID}); !errors.Is(err, domain.ErrResourceNotFound) {
		t.Fatalf("foreign resource: expected not found, got %v", err)
	}
	if _, err := f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{StaffID: &otherStaff.ID}); !errors.Is(err, domain.ErrStaffNotFound) {
		t.Fatalf("foreign staff: expected not found, got %v", err)
	}

	got, err := f.bookings.Get(f.ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StaffID != "" || got.ResourceID != f.room.ID {
		t.Fatalf("rejected update leaked: staff=%q resource=%q", got.StaffID, got.ResourceID)
	}

	own, err := f.store.CreateStaff(f.ctx, clinic.Staff{BranchID: f.branch.ID, Name: "Marta", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := f.bookings.Update(f.ctx, r.ID, reservation.UpdateRequest{StaffID: &own.ID})
	if err != nil {
		t.Fatalf("assign own staff: %v", err)
	}
	if updated.StaffID != own.ID {
		t.Fatalf("staff = %s, want %s", updated.StaffID, own.ID)
	}
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.queue.fail = errBroker
	if _, err := f.bookings.Create(f.ctx, f.request("09:00")); err != nil {
		t.Fatalf("booking must survive a broker outage: %v", err)
	}
}

func TestBookingAuditedAfterCommit(t *testing.T) {
	f := newFixture(t)
	before := len(f.audit.Entries())
	if _, err := f.bookings.Create(f.ctx, f.request("09:00")); err != nil {
		t.Fatal(err)
	}
	_, err := f.bookings.Create(f.ctx, f.request("09:00"))
	if !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatal(err)
	}
	entries := f.audit.Entries()[before:]
	if len(entries) != 1 || entries[0].Entity != "reservation" || entries[0].ActorID != "staff-1" {
		t.Fatalf("expected one reservation entry for the committed booking, got %+v", entries)
	}
}

func TestParallelCapacityNeedsResources(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerService, f.service.ID, "09:00", "10:00", 60, 2)

	walkIn := f.request("09:00")
	walkIn.ResourceID = ""
	if _, err := f.bookings.Create(f.ctx, walkIn); err != nil {
		t.Fatal(err)
	}
	if _, err := f.bookings.Create(f.ctx, walkIn); !errors.Is(err, domain.ErrSlotTaken) {
		t.Fatalf("a service without a resource holds one booking at a time, got %v", err)
	}

	room2, err := f.store.CreateResource(f.ctx, clinic.Resource{BranchID: f.branch.ID, Kind: clinic.ResourceRoom, Name: "Room 2"})
	if err != nil {
		t.Fatal(err)
	}
	for _, room := range []string{f.room.ID, room2.ID} {
		req := f.request("09:00")
		req.ResourceID = room
		if _, err := f.bookings.Create(f.ctx, req); err != nil {
			t.Fatalf("booking room %s: %v", room, err)
		}
	}
}
