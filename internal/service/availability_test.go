package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
)

func (f *fixture) template(t *testing.T, owner availability.OwnerType, ownerID, start, end string, minutes, capacity int) *availability.Template {
	t.Helper()
	tpl, err := f.avail.CreateTemplate(f.ctx, availability.TemplateRequest{
		OwnerType: owner, OwnerID: ownerID, Weekday: 1,
		StartTime: start, EndTime: end, SlotMinutes: minutes, Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func (f *fixture) slots(t *testing.T) []availability.Slot {
	t.Helper()
	got, err := f.avail.ComputeSlots(f.ctx, f.service.ID, f.branch.ID, monday)
	if err != nil {
		t.Fatalf("compute slots: %v", err)
	}
	return got
}

func assertSlots(t *testing.T, got []availability.Slot, want ...availability.Slot) {
	t.Helper()
	if want == nil {
		want = []availability.Slot{}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("slots = %+v, want %+v", got, want)
	}
}

func TestComputeSlotsSubtractsBookings(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "11:00", 60, 2)

	assertSlots(t, f.slots(t), availability.Slot{Time: "09:00", RemainingCapacity: 2}, availability.Slot{Time: "10:00", RemainingCapacity: 2})

	if _, err := f.bookings.Create(f.ctx, reservation.CreateRequest{
		ServiceID: f.service.ID, BranchID: f.branch.ID,
		Client: reservation.ClientRef{ID: f.client.ID}, StartAt: at("09:00"),
	}); err != nil {
		t.Fatalf("book: %v", err)
	}
	assertSlots(t, f.slots(t), availability.Slot{Time: "09:00", RemainingCapacity: 1}, availability.Slot{Time: "10:00", RemainingCapacity: 2})
}

func TestComputeSlotsAccumulatesOwners(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "10:30", 60, 1)
	f.template(t, availability.OwnerService, f.service.ID, "10:00", "11:00", 30, 2)

	assertSlots(t, f.slots(t),
		availability.Slot{Time: "09:00", RemainingCapacity: 1},
		availability.Slot{Time: "10:00", RemainingCapacity: 2},
		availability.Slot{Time: "10:30", RemainingCapacity: 2},
	)
}

func TestComputeSlotsExceptions(t *testing.T) {
	t.Run("closed day wins over templates", func(t *testing.T) {
		f := newFixture(t)
		f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "17:00", 60, 4)
		if _, err := f.avail.CreateException(f.ctx, availability.Exception{
			OwnerType: availability.OwnerBranch, OwnerID: f.branch.ID, Date: monday, Closed: true, Reason: "holiday",
		}); err != nil {
			t.Fatal(err)
		}
		assertSlots(t, f.slots(t))
	})
	t.Run("replacement slots", func(t *testing.T) {
		f := newFixture(t)
		f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "17:00", 60, 4)
		if _, err := f.avail.CreateException(f.ctx, availability.Exception{
			OwnerType: availability.OwnerService, OwnerID: f.service.ID, Date: monday, Slots: []string{"15:00", "08:30"},
		}); err != nil {
			t.Fatal(err)
		}
		assertSlots(t, f.slots(t), availability.Slot{Time: "08:30", RemainingCapacity: 1}, availability.Slot{Time: "15:00", RemainingCapacity: 1})
	})
}

func TestComputeSlotsNoTemplates(t *testing.T) {
	f := newFixture(t)
	assertSlots(t, f.slots(t))
}

func TestComputeSlotsErrors(t *testing.T) {
	f := newFixture(t)
	if _, err := f.avail.ComputeSlots(f.ctx, f.service.ID, f.branch.ID, "2030-02-30"); !errors.Is(err, domain.ErrInvalidDate) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected invalid date, got %v", err)
	}
	if _, err := f.avail.ComputeSlots(context.Background(), f.service.ID, f.branch.ID, monday); !errors.Is(err, domain.ErrTenantContextMissing) {
		t.Fatalf("expected missing tenant, got %v", err)
	}
	if _, err := f.avail.ComputeSlots(as("clinic-b"), f.service.ID, f.branch.ID, monday); !errors.Is(err, domain.ErrServiceNotFound) {
		t.Fatalf("foreign tenant must not see the service, got %v", err)
	}
}

func TestTemplateWritesInvalidateCache(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "10:00", 60, 1)
	assertSlots(t, f.slots(t), availability.Slot{Time: "09:00", RemainingCapacity: 1})

	capacity := 3
	if _, err := f.avail.UpdateTemplate(f.ctx, tpl.ID, availability.TemplatePatch{Capacity: &capacity}); err != nil {
		t.Fatal(err)
	}
	assertSlots(t, f.slots(t), availability.Slot{Time: "09:00", RemainingCapacity: 3})

	if err := f.avail.DeleteTemplate(f.ctx, tpl.ID); err != nil {
		t.Fatal(err)
	}
	assertSlots(t, f.slots(t))
}

func TestUpdateTemplateRejectsTenantChange(t *testing.T) {
	f := newFixture(t)
	tpl := f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "10:00", 60, 1)
	_, err := f.avail.UpdateTemplate(f.ctx, tpl.ID, availability.TemplatePatch{TenantID: "clinic-b"})
	if !errors.Is(err, domain.ErrTenantChange) {
		t.Fatalf("expected tenant change rejection, got %v", err)
	}
}

func TestReplaceWeeklySchedule(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "10:00", 60, 1)
	assertSlots(t, f.slots(t), availability.Slot{Time: "09:00", RemainingCapacity: 1})

	owner := availability.Owner{Type: availability.OwnerBranch, ID: f.branch.ID}
	n, err := f.avail.ReplaceWeeklySchedule(f.ctx, owner, []availability.TemplateRequest{
		{Weekday: 1, StartTime: "14:00", EndTime: "16:00", SlotMinutes: 60, Capacity: 1},
		{Weekday: 2, StartTime: "09:00", EndTime: "12:00", SlotMinutes: 60, Capacity: 1},
	})
	if err != nil || n != 2 {
		t.Fatalf("replace: n=%d err=%v", n, err)
	}
	assertSlots(t, f.slots(t), availability.Slot{Time: "14:00", RemainingCapacity: 1}, availability.Slot{Time: "15:00", RemainingCapacity: 1})

	var bulk int
	for _, e := range f.audit.Entries() {
		if e.Entity == audit.EntityTemplate && e.Op.Bulk() {
			if e.EntityID != audit.BulkEntityID {
				t.Fatalf("bulk entry recorded id %q", e.EntityID)
			}
			bulk++
		}
	}
	if bulk != 2 {
		t.Fatalf("expected delete_many and create_many entries, got %d", bulk)
	}
}

func TestReplaceWeeklyScheduleIsAtomic(t *testing.T) {
	f := newFixture(t)
	f.template(t, availability.OwnerBranch, f.branch.ID, "09:00", "10:00", 60, 1)

	owner := availability.Owner{Type: availability.OwnerBranch, ID: f.branch.ID}
	_, err := f.avail.ReplaceWeeklySchedule(f.ctx, owner, []availability.TemplateRequest{
		{Weekday: 1, StartTime: "14:00", EndTime: "16:00", SlotMinutes: 60, Capacity: 0},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, _ := f.avail.ListTemplates(f.ctx, availability.TemplateFilter{OwnerID: f.branch.ID})
	if len(list) != 1 {
		t.Fatalf("existing schedule must survive a rejected replacement, got %d templates", len(list))
	}
}
