package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/clinic"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
	"github.com/FerDeGante/Eventora-sub000/internal/port/reminder"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// ReservationService books, reschedules and cancels reservations.
//
// The conflict check, the package decrement and the insert run in one
// transaction serialized on the booking's conflict key. Events and
// reminders are dispatched after commit and cannot fail the booking.
type ReservationService struct {
	store        database.Store
	events       *EventDispatcher
	reminders    reminder.Scheduler
	reminderLead time.Duration
	metrics      *cfotel.Metrics
	now          func() time.Time
}

// NewReservationService creates a ReservationService.
func NewReservationService(store database.Store, events *EventDispatcher) *ReservationService {
	return &ReservationService{store: store, events: events, now: time.Now}
}

// SetReminders enables reminder scheduling lead before each reservation.
func (s *ReservationService) SetReminders(sched reminder.Scheduler, lead time.Duration) {
	s.reminders = sched
	s.reminderLead = lead
}

// SetMetrics enables booking counters.
func (s *ReservationService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Create books a slot.
func (s *ReservationService) Create(ctx context.Context, req reservation.CreateRequest) (_ *reservation.Reservation, err error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := cfotel.StartBookingSpan(ctx, "create", tc.TenantID, "")
	defer func() { cfotel.End(span, err) }()

	svc, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetBranch(ctx, req.BranchID); err != nil {
		return nil, err
	}
	if err := checkResource(ctx, s.store, req.BranchID, req.ResourceID); err != nil {
		return nil, err
	}
	if err := checkStaff(ctx, s.store, req.StaffID); err != nil {
		return nil, err
	}

	minutes := svc.DurationMinutes
	if req.DurationMinutes != nil {
		minutes = *req.DurationMinutes
	}
	start := req.StartAt.UTC()
	status, payment := reservation.InitialStatus(svc.PriceCents, req.PackageID != "")
	r := reservation.Reservation{
		BranchID:      req.BranchID,
		ServiceID:     req.ServiceID,
		StaffID:       req.StaffID,
		ResourceID:    req.ResourceID,
		PackageID:     req.PackageID,
		StartAt:       start,
		EndAt:         start.Add(time.Duration(minutes) * time.Minute),
		Status:        status,
		PaymentStatus: payment,
		PriceCents:    svc.PriceCents,
		Notes:         req.Notes,
	}
	if req.PackageID != "" {
		r.PriceCents = 0
	}

	var created *reservation.Reservation
	var pkg *userpackage.UserPackage
	err = s.store.InTx(ctx, func(tx database.Queries) error {
		client, err := resolveClient(ctx, tx, req.Client)
		if err != nil {
			return err
		}
		r.ClientID = client.ID

		if err := s.claimSlot(ctx, tx, tc.TenantID, &r); err != nil {
			return err
		}
		if r.PackageID != "" {
			if pkg, err = tx.ConsumePackageSession(ctx, r.PackageID, r.ClientID, s.now()); err != nil {
				return err
			}
		}
		created, err = tx.CreateReservation(ctx, r)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotTaken) && s.metrics != nil {
			s.metrics.ReservationConflicts.Add(ctx, 1, cfotel.Tenant(tc.TenantID))
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("reservation.id", created.ID))
	if s.metrics != nil {
		s.metrics.ReservationsCreated.Add(ctx, 1, cfotel.Tenant(tc.TenantID))
		if pkg != nil {
			s.metrics.PackageConsumed.Add(ctx, 1, cfotel.Tenant(tc.TenantID))
		}
	}
	s.events.ReservationCreated(ctx, created)
	if pkg != nil {
		s.events.PackageConsumed(ctx, pkg, created.ID)
	}
	s.scheduleReminder(ctx, created)
	return created, nil
}

// resolveClient returns the referenced client, creating a guest client
// when the email is not known yet.
func resolveClient(ctx context.Context, q database.Queries, ref reservation.ClientRef) (*clinic.Client, error) {
	if ref.ID != "" {
		return q.GetClient(ctx, ref.ID)
	}
	c, err := q.FindClientByEmail(ctx, ref.Email)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return q.CreateClient(ctx, clinic.Client{Email: clinic.NormalizeEmail(ref.Email), Name: ref.Name, Phone: ref.Phone})
}

// checkResource verifies that resourceID, when set, exists in the bound
// tenant and sits in branchID. Inside a transaction q must be the tx.
func checkResource(ctx context.Context, q database.Queries, branchID, resourceID string) error {
	if resourceID == "" {
		return nil
	}
	res, err := q.GetResource(ctx, resourceID)
	if err != nil {
		return err
	}
	if res.BranchID != branchID {
		return domain.Invalid("resource %s does not belong to branch %s", resourceID, branchID)
	}
	return nil
}

func checkStaff(ctx context.Context, q database.Queries, staffID string) error {
	if staffID == "" {
		return nil
	}
	_, err := q.GetStaff(ctx, staffID)
	return err
}

// claimSlot serializes on r's conflict key and fails when an active
// reservation overlaps it. Must run inside a transaction.
func (s *ReservationService) claimSlot(ctx context.Context, tx database.Queries, tenantID string, r *reservation.Reservation) error {
	c := reservation.ConflictFor(r)
	if err := tx.LockSlot(ctx, c.Key(tenantID)); err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}
	hit, err := tx.FindConflict(ctx, c)
	if err != nil {
		return fmt.Errorf("find conflict: %w", err)
	}
	if hit != nil {
		return domain.ErrSlotTaken
	}
	return nil
}

// Get returns a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// List lists reservations matching f.
func (s *ReservationService) List(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	return s.store.ListReservations(ctx, f)
}

// SetStatus moves a reservation to status. Cancelling refunds the package
// session it consumed in the same transaction; cancelling an already
// cancelled reservation changes nothing.
func (s *ReservationService) SetStatus(ctx context.Context, id string, status reservation.Status) (_ *reservation.Reservation, err error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartBookingSpan(ctx, "status", tc.TenantID, id)
	defer func() { cfotel.End(span, err) }()

	var out *reservation.Reservation
	var refunded *userpackage.UserPackage
	changed := false
	err = s.store.InTx(ctx, func(tx database.Queries) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := reservation.CheckTransition(r.Status, status); err != nil {
			return err
		}
		if r.Status == status {
			out = r
			return nil
		}
		if status == reservation.StatusCancelled && r.PackageID != "" {
			if refunded, err = tx.RefundPackageSession(ctx, r.PackageID); err != nil {
				return err
			}
		}
		r.Status = status
		out, err = tx.UpdateReservation(ctx, *r)
		changed = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return out, nil
	}

	if status == reservation.StatusCancelled {
		s.afterCancel(ctx, out, refunded)
	} else {
		s.events.ReservationStatusChanged(ctx, out)
	}
	return out, nil
}

// Cancel cancels a reservation.
func (s *ReservationService) Cancel(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.SetStatus(ctx, id, reservation.StatusCancelled)
}

func (s *ReservationService) afterCancel(ctx context.Context, r *reservation.Reservation, refunded *userpackage.UserPackage) {
	if s.metrics != nil {
		s.metrics.ReservationsCancelled.Add(ctx, 1, cfotel.Tenant(r.TenantID))
		if refunded != nil {
			s.metrics.PackageRefunded.Add(ctx, 1, cfotel.Tenant(r.TenantID))
		}
	}
	s.events.ReservationCancelled(ctx, r)
	if refunded != nil {
		s.events.PackageRefunded(ctx, refunded, r.ID)
	}
	s.cancelReminder(ctx, r.ID)
}

// Update applies a partial update. Moving the reservation in time or onto
// another resource re-runs the conflict check, ignoring the reservation
// itself.
func (s *ReservationService) Update(ctx context.Context, id string, req reservation.UpdateRequest) (_ *reservation.Reservation, err error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := cfotel.StartBookingSpan(ctx, "update", tc.TenantID, id)
	defer func() { cfotel.End(span, err) }()

	var out *reservation.Reservation
	moved := false
	err = s.store.InTx(ctx, func(tx database.Queries) error {
		cur, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if err := scope.CheckUnchanged(cur.TenantID, req.TenantID); err != nil {
			return err
		}
		next, err := req.Apply(*cur)
		if err != nil {
			return err
		}
		if next.StaffID != cur.StaffID {
			if err := checkStaff(ctx, tx, next.StaffID); err != nil {
				return err
			}
		}
		moved = req.Reschedules() || next.ResourceID != cur.ResourceID
		if moved {
			if !cur.Active() {
				return domain.Invalid("cancelled reservation cannot be rescheduled")
			}
			if next.ResourceID != cur.ResourceID {
				if err := checkResource(ctx, tx, next.BranchID, next.ResourceID); err != nil {
					return err
				}
			}
			if err := s.claimSlot(ctx, tx, tc.TenantID, &next); err != nil {
				return err
			}
		}
		out, err = tx.UpdateReservation(ctx, next)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlotTaken) && s.metrics != nil {
			s.metrics.ReservationConflicts.Add(ctx, 1, cfotel.Tenant(tc.TenantID))
		}
		return nil, err
	}
	if moved {
		s.scheduleReminder(ctx, out)
	}
	return out, nil
}

// Delete removes a reservation, refunding its package session first when the
// appointment was still open.
func (s *ReservationService) Delete(ctx context.Context, id string) error {
	if _, err := tenant.Require(ctx); err != nil {
		return err
	}
	var gone *reservation.Reservation
	var refunded *userpackage.UserPackage
	err := s.store.InTx(ctx, func(tx database.Queries) error {
		r, err := tx.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.Open() && r.PackageID != "" {
			if refunded, err = tx.RefundPackageSession(ctx, r.PackageID); err != nil {
				return err
			}
		}
		gone = r
		return tx.DeleteReservation(ctx, id)
	})
	if err != nil {
		return err
	}
	if gone.Open() {
		s.afterCancel(ctx, gone, refunded)
	}
	return nil
}

func (s *ReservationService) scheduleReminder(ctx context.Context, r *reservation.Reservation) {
	if s.reminders == nil || !r.Active() {
		return
	}
	fireAt := r.StartAt.Add(-s.reminderLead)
	if !fireAt.After(s.now()) {
		return
	}
	rem := reminder.Reminder{TenantID: r.TenantID, ReservationID: r.ID, StartAt: r.StartAt}
	if err := s.reminders.Schedule(context.WithoutCancel(ctx), rem, fireAt); err != nil {
		slog.WarnContext(ctx, "reminder schedule failed", "reservation_id", r.ID, "error", err)
	}
}

func (s *ReservationService) cancelReminder(ctx context.Context, reservationID string) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.Cancel(context.WithoutCancel(ctx), reservationID); err != nil {
		slog.WarnContext(ctx, "reminder cancel failed", "reservation_id", reservationID, "error", err)
	}
}
