package memory

import (
	"cmp"
	"context"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/reservation"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/userpackage"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// LockSlot is a no-op: memory transactions are already serialized.
func (q *queries) LockSlot(ctx context.Context, _ string) error {
	_, err := q.s.guard.Read(ctx, audit.EntityReservation)
	return err
}

func (q *queries) FindConflict(ctx context.Context, c reservation.Conflict) (*reservation.Reservation, error) {
	tid, err := q.s.guard.Read(ctx, audit.EntityReservation)
	if err != nil {
		return nil, err
	}
	var hit *reservation.Reservation
	err = q.run(ctx, func(st *state, _ *scope.Journal) error {
		hit = conflictIn(st, tid, c)
		return nil
	})
	return hit, err
}

func conflictIn(st *state, tenantID string, c reservation.Conflict) *reservation.Reservation {
	for _, r := range st.reservations {
		if r.TenantID == tenantID && c.Matches(&r) {
			return &r
		}
	}
	return nil
}

// referencesIn mirrors the tenant-scoped foreign keys of the SQL schema:
// every id r points at must exist in tenantID. Staff, resource and package
// are optional.
func referencesIn(st *state, tenantID string, r *reservation.Reservation) error {
	refs := []struct {
		name     string
		id       string
		optional bool
		owner    func(id string) (string, bool)
	}{
		{"branch", r.BranchID, false, func(id string) (string, bool) { v, ok := st.branches[id]; return v.TenantID, ok }},
		{"service", r.ServiceID, false, func(id string) (string, bool) { v, ok := st.services[id]; return v.TenantID, ok }},
		{"client", r.ClientID, false, func(id string) (string, bool) { v, ok := st.clients[id]; return v.TenantID, ok }},
		{"staff", r.StaffID, true, func(id string) (string, bool) { v, ok := st.staff[id]; return v.TenantID, ok }},
		{"resource", r.ResourceID, true, func(id string) (string, bool) { v, ok := st.resources[id]; return v.TenantID, ok }},
		{"package", r.PackageID, true, func(id string) (string, bool) { v, ok := st.packages[id]; return v.TenantID, ok }},
	}
	for _, ref := range refs {
		if ref.id == "" && ref.optional {
			continue
		}
		if owner, ok := ref.owner(ref.id); !ok || owner != tenantID {
			return domain.Invalid("reservation: invalid %s reference", ref.name)
		}
	}
	return nil
}

func (q *queries) CreateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityReservation, audit.OpCreate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if !r.EndAt.After(r.StartAt) {
		return nil, domain.Invalid("reservation must end after it starts")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		r.ID, r.TenantID = newID(r.ID), tid
		if err := referencesIn(st, tid, &r); err != nil {
			return err
		}
		// Mirrors the exclusion constraint of the SQL schema.
		if r.Active() && conflictIn(st, tid, reservation.ConflictFor(&r)) != nil {
			return domain.ErrSlotTaken
		}
		now := q.clock()
		r.CreatedAt, r.UpdatedAt = now, now
		st.reservations[r.ID] = r
		j.Add(ctx, tid, audit.EntityReservation, audit.OpCreate, r.ID, "", &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *queries) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return getScoped(ctx, q, audit.EntityReservation, id,
		func(st *state) map[string]reservation.Reservation { return st.reservations },
		func(r *reservation.Reservation) string { return r.TenantID }, domain.ErrReservationNotFound)
}

func (q *queries) UpdateReservation(ctx context.Context, r reservation.Reservation) (*reservation.Reservation, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityReservation, audit.OpUpdate, r.TenantID)
	if err != nil {
		return nil, err
	}
	if !r.EndAt.After(r.StartAt) {
		return nil, domain.Invalid("reservation must end after it starts")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		cur, ok := st.reservations[r.ID]
		if !ok || cur.TenantID != tid {
			return domain.ErrReservationNotFound
		}
		r.TenantID, r.CreatedAt, r.UpdatedAt = tid, cur.CreatedAt, q.clock()
		if err := referencesIn(st, tid, &r); err != nil {
			return err
		}
		if r.Active() && conflictIn(st, tid, reservation.ConflictFor(&r)) != nil {
			return domain.ErrSlotTaken
		}
		st.reservations[r.ID] = r
		j.Add(ctx, tid, audit.EntityReservation, audit.OpUpdate, "", r.ID, &r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *queries) DeleteReservation(ctx context.Context, id string) error {
	tid, err := q.s.guard.Write(ctx, audit.EntityReservation, audit.OpDelete, "")
	if err != nil {
		return err
	}
	return q.run(ctx, func(st *state, j *scope.Journal) error {
		cur, ok := st.reservations[id]
		if !ok || cur.TenantID != tid {
			return domain.ErrReservationNotFound
		}
		delete(st.reservations, id)
		j.Add(ctx, tid, audit.EntityReservation, audit.OpDelete, "", id, &cur)
		return nil
	})
}

func (q *queries) ListReservations(ctx context.Context, f reservation.Filter) ([]reservation.Reservation, error) {
	return listScoped(ctx, q, audit.EntityReservation,
		func(st *state) map[string]reservation.Reservation { return st.reservations },
		func(r *reservation.Reservation) string { return r.TenantID },
		func(r *reservation.Reservation) bool {
			return (f.BranchID == "" || r.BranchID == f.BranchID) &&
				(f.ServiceID == "" || r.ServiceID == f.ServiceID) &&
				(f.ClientID == "" || r.ClientID == f.ClientID) &&
				(f.Status == "" || r.Status == f.Status) &&
				(f.From.IsZero() || !r.StartAt.Before(f.From)) &&
				(f.To.IsZero() || r.StartAt.Before(f.To))
		},
		func(a, b reservation.Reservation) int {
			return cmp.Or(a.StartAt.Compare(b.StartAt), cmp.Compare(a.ID, b.ID))
		})
}

func (q *queries) CountBooked(ctx context.Context, branchID, serviceID string, day time.Time) (map[string]int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	active, err := q.ListReservations(ctx, reservation.Filter{
		BranchID: branchID, ServiceID: serviceID, From: from, To: from.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i := range active {
		if active[i].Active() {
			counts[availability.Label(active[i].StartAt)]++
		}
	}
	return counts, nil
}

// --- Packages ---

func (q *queries) CreatePackage(ctx context.Context, p userpackage.UserPackage) (*userpackage.UserPackage, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityPackage, audit.OpCreate, p.TenantID)
	if err != nil {
		return nil, err
	}
	if p.SessionsTotal <= 0 || p.SessionsRemaining < 0 || p.SessionsRemaining > p.SessionsTotal {
		return nil, domain.Invalid("package sessions must satisfy 0 <= remaining <= total")
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		if c, ok := st.clients[p.ClientID]; !ok || c.TenantID != tid {
			return domain.ErrClientNotFound
		}
		now := q.clock()
		p.ID, p.TenantID, p.CreatedAt, p.UpdatedAt = newID(p.ID), tid, now, now
		if p.ValidFrom.IsZero() {
			p.ValidFrom = now
		}
		st.packages[p.ID] = p
		j.Add(ctx, tid, audit.EntityPackage, audit.OpCreate, p.ID, "", &p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (q *queries) GetPackage(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	return getScoped(ctx, q, audit.EntityPackage, id,
		func(st *state) map[string]userpackage.UserPackage { return st.packages },
		func(p *userpackage.UserPackage) string { return p.TenantID }, domain.ErrPackageNotFound)
}

func (q *queries) ListPackages(ctx context.Context, clientID string) ([]userpackage.UserPackage, error) {
	return listScoped(ctx, q, audit.EntityPackage,
		func(st *state) map[string]userpackage.UserPackage { return st.packages },
		func(p *userpackage.UserPackage) string { return p.TenantID },
		func(p *userpackage.UserPackage) bool { return clientID == "" || p.ClientID == clientID },
		byCreated(func(p *userpackage.UserPackage) time.Time { return p.CreatedAt }, func(p *userpackage.UserPackage) string { return p.ID }))
}

func (q *queries) ConsumePackageSession(ctx context.Context, id, clientID string, now time.Time) (*userpackage.UserPackage, error) {
	return q.adjustPackage(ctx, id, func(p *userpackage.UserPackage) error {
		return p.Consume(clientID, now)
	})
}

func (q *queries) RefundPackageSession(ctx context.Context, id string) (*userpackage.UserPackage, error) {
	return q.adjustPackage(ctx, id, func(p *userpackage.UserPackage) error {
		p.Refund()
		return nil
	})
}

func (q *queries) adjustPackage(ctx context.Context, id string, fn func(*userpackage.UserPackage) error) (*userpackage.UserPackage, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityPackage, audit.OpUpdate, "")
	if err != nil {
		return nil, err
	}
	var out userpackage.UserPackage
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		p, ok := st.packages[id]
		if !ok || p.TenantID != tid {
			return domain.ErrPackageNotFound
		}
		if err := fn(&p); err != nil {
			return err
		}
		p.UpdatedAt = q.clock()
		st.packages[id] = p
		j.Add(ctx, tid, audit.EntityPackage, audit.OpUpdate, "", id, &p)
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
