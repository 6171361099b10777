package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
)

const reservationColumns = `id, tenant_id, branch_id, service_id, client_id,
	COALESCE(staff_id::text, ''), COALESCE(resource_id::text, ''), COALESCE(package_id::text, ''),
	start_at, end_at, status, payment_status, price_cents, notes, created_at, updated_at`

func scanReservation(row scannable) (reservation.Reservation, error) {
	var r reservation.Reservation
	var status, payment string
	err := row.Scan(&r.ID, &r.TenantID, &r.BranchID, &r.ServiceID, &r.ClientID,
		&r.StaffID, &r.ResourceID, &r.PackageID,
		&r.StartAt, &r.EndAt, &status, &payment, &r.PriceCents, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	r.Status, r.PaymentStatus = reservation.Status(status), reservation.PaymentStatus(payment)
	return r, err
}

// LockSlot takes a transaction-scoped advisory lock on the conflict key.
// Outside a transaction the lock is released immediately and serializes
// nothing.
func (q *queries) LockSlot(ctx context.Context, key string) error {
	if _, err := q.guard.Read(ctx, audit.EntityReservation); err != nil {
		return err
	}
	if _, err := q.db.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return fmt.Errorf("lock slot %s: %w", key, err)
	}
	return nil
}

func (q *queries) FindConflict(ctx context.Context, c reservation.Conflict) (*reservation.Reservation, error) {
	tid, err := q.guard.Read(ctx, audit.EntityReservation)
	if err != nil {
		return nil, err
	}
	var (
		holder string
		target string
	)
	if c.ResourceID != "" {
		holder, target = `resource_id = $3::uuid`, c.ResourceID
	} else {
		holder, target = `resource_id IS NULL AND service_id = $3::uuid`, c.ServiceID
	}
	// Ids that are not UUIDs cannot match any stored reservation.
	if !validUUIDs(c.BranchID, target) {
		return nil, nil
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = $1 AND branch_id = $2::uuid AND `+holder+`
		   AND status <> 'cancelled'
		   AND start_at < $5 AND end_at > $4
		   AND ($6 = '' OR id::text <> $6)
		 ORDER BY start_at LIMIT 1`,
		tid, c.BranchID, target, c.Start, c.End, c.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflict: %w", err)
	}
	hits, err := collect(rows, scanReservation)
	if err != nil || len(hits) == 0 {
		return nil, err
	}
	return &hits[0], nil
}

func (q *queries) CreateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error) {
	tid, err := q.guard.Write(ctx, audit.EntityReservation, audit.OpCreate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if !r.EndAt.After(r.StartAt) {
		return nil, domain.Invalid("reservation must end after it starts")
	}
	out, err := scanReservation(q.db.QueryRow(ctx,
		`INSERT INTO reservations (tenant_id, branch_id, service_id, client_id, staff_id, resource_id, package_id,
		 start_at, end_at, status, payment_status, price_cents, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING `+reservationColumns,
		tid, r.BranchID, r.ServiceID, r.ClientID,
		nullIfEmpty(r.StaffID), nullIfEmpty(r.ResourceID), nullIfEmpty(r.PackageID),
		r.StartAt, r.EndAt, string(r.Status), string(r.PaymentStatus), r.PriceCents, r.Notes))
	if err != nil {
		return nil, writeErr(err, "create reservation")
	}
	q.audit(ctx, tid, audit.EntityReservation, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	tid, err := q.guard.Read(ctx, audit.EntityReservation)
	if err != nil {
		return nil, err
	}
	r, err := scanReservation(q.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND tenant_id = $2`+q.forUpdate(),
		id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrReservationNotFound, "get reservation %s", id)
	}
	return &r, nil
}

func (q *queries) UpdateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error) {
	tid, err := q.guard.Write(ctx, audit.EntityReservation, audit.OpUpdate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if !r.EndAt.After(r.StartAt) {
		return nil, domain.Invalid("reservation must end after it starts")
	}
	out, err := scanReservation(q.db.QueryRow(ctx,
		`UPDATE reservations
		 SET staff_id = $3, resource_id = $4, start_at = $5, end_at = $6, status = $7,
		     payment_status = $8, notes = $9, updated_at = now()
		 WHERE id = $1 AND tenant_id = $2
		 RETURNING `+reservationColumns,
		r.ID, tid, nullIfEmpty(r.StaffID), nullIfEmpty(r.ResourceID), r.StartAt, r.EndAt,
		string(r.Status), string(r.PaymentStatus), r.Notes))
	if err != nil {
		if pgCode(err) != "" {
			return nil, writeErr(err, "update reservation %s", r.ID)
		}
		return nil, notFoundWrap(err, domain.ErrReservationNotFound, "update reservation %s", r.ID)
	}
	q.audit(ctx, tid, audit.EntityReservation, audit.OpUpdate, "", out.ID, &out)
	return &out, nil
}

func (q *queries) DeleteReservation(ctx context.Context, id string) error {
	tid, err := q.guard.Write(ctx, audit.EntityReservation, audit.OpDelete, "")
	if err != nil {
		return err
	}
	r, err := scanReservation(q.db.QueryRow(ctx,
		`DELETE FROM reservations WHERE id = $1 AND tenant_id = $2 RETURNING `+reservationColumns, id, tid))
	if err != nil {
		return notFoundWrap(err, domain.ErrReservationNotFound, "delete reservation %s", id)
	}
	q.audit(ctx, tid, audit.EntityReservation, audit.OpDelete, "", id, &r)
	return nil
}

func (q *queries) ListReservations(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	tid, err := q.guard.Read(ctx, audit.EntityReservation)
	if err != nil {
		return nil, err
	}
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE tenant_id = $1
		   AND ($2 = '' OR branch_id::text = $2)
		   AND ($3 = '' OR service_id::text = $3)
		   AND ($4 = '' OR client_id::text = $4)
		   AND ($5 = '' OR status = $5)
		   AND ($6::timestamptz IS NULL OR start_at >= $6)
		   AND ($7::timestamptz IS NULL OR start_at < $7)
		 ORDER BY start_at, id`,
		tid, f.BranchID, f.ServiceID, f.ClientID, string(f.Status), from, to)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return collect(rows, scanReservation)
}

func (q *queries) CountBooked(ctx context.Context, branchID, serviceID string, day time.Time) (map[string]int, error) {
	tid, err := q.guard.Read(ctx, audit.EntityReservation)
	if err != nil {
		return nil, err
	}
	if !validUUIDs(branchID, serviceID) {
		return map[string]int{}, nil
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := q.db.Query(ctx,
		`SELECT to_char(start_at AT TIME ZONE 'UTC', 'HH24:MI') AS label, count(*)
		 FROM reservations
		 WHERE tenant_id = $1 AND branch_id = $2::uuid AND service_id = $3::uuid
		   AND status <> 'cancelled'
		   AND start_at >= $4 AND start_at < $5
		 GROUP BY label`,
		tid, branchID, serviceID, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("count booked: %w", err)
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	return counts, rows.Err()
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return false
		}
	}
	return true
}
