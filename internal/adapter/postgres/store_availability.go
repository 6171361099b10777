package postgres

import (
	"context"
	"fmt"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

// --- Templates ---

const templateColumns = `id, tenant_id, owner_type, owner_id, weekday, start_time, end_time,
	slot_minutes, capacity, created_at, updated_at`

func scanTemplate(row scannable) (availability.Template, error) {
	var t availability.Template
	var ownerType string
	err := row.Scan(&t.ID, &t.TenantID, &ownerType, &t.OwnerID, &t.Weekday, &t.StartTime, &t.EndTime,
		&t.SlotMinutes, &t.Capacity, &t.CreatedAt, &t.UpdatedAt)
	t.OwnerType = availability.OwnerType(ownerType)
	return t, err
}

func (q *queries) insertTemplate(ctx context.Context, tid string, t *availability.Template) (availability.Template, error) {
	out, err := scanTemplate(q.db.QueryRow(ctx,
		`INSERT INTO availability_templates
		 (tenant_id, owner_type, owner_id, weekday, start_time, end_time, slot_minutes, capacity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+templateColumns,
		tid, string(t.OwnerType), t.OwnerID, t.Weekday, t.StartTime, t.EndTime, t.SlotMinutes, t.Capacity))
	if err != nil {
		return out, writeErr(err, "create template")
	}
	return out, nil
}

func (q *queries) CreateTemplate(ctx context.Context, t availability.Template) (*availability.Template, error) {
	tid, err := q.guard.Write(ctx, audit.EntityTemplate, audit.OpCreate, t.TenantID)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	out, err := q.insertTemplate(ctx, tid, &t)
	if err != nil {
		return nil, err
	}
	q.audit(ctx, tid, audit.EntityTemplate, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) CreateTemplates(ctx context.Context, ts []availability.Template) (int, error) {
	tid, err := q.guard.Write(ctx, audit.EntityTemplate, audit.OpCreateMany, "")
	if err != nil {
		return 0, err
	}
	for i := range ts {
		if err := scope.CheckUnchanged(tid, ts[i].TenantID); err != nil {
			return 0, domain.ErrTenantMismatch
		}
		if err := ts[i].Validate(); err != nil {
			return 0, err
		}
	}
	err = q.atomic(ctx, func(q *queries) error {
		for i := range ts {
			if _, err := q.insertTemplate(ctx, tid, &ts[i]); err != nil {
				return err
			}
		}
		q.audit(ctx, tid, audit.EntityTemplate, audit.OpCreateMany, "", "", nil)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ts), nil
}

func (q *queries) GetTemplate(ctx context.Context, id string) (*availability.Template, error) {
	tid, err := q.guard.Read(ctx, audit.EntityTemplate)
	if err != nil {
		return nil, err
	}
	t, err := scanTemplate(q.db.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM availability_templates WHERE id = $1 AND tenant_id = $2`+q.forUpdate(),
		id, tid))
	if err != nil {
		return nil, notFoundWrap(err, domain.ErrTemplateNotFound, "get template %s", id)
	}
	return &t, nil
}

func (q *queries) UpdateTemplate(ctx context.Context, id string, p availability.TemplatePatch) (*availability.Template, error) {
	tid, err := q.guard.Write(ctx, audit.EntityTemplate, audit.OpUpdate, p.TenantID)
	if err != nil {
		return nil, err
	}
	var out availability.Template
	err = q.atomic(ctx, func(q *queries) error {
		cur, err := q.GetTemplate(ctx, id)
		if err != nil {
			return err
		}
		next := p.Apply(*cur)
		if err := next.Validate(); err != nil {
			return err
		}
		out, err = scanTemplate(q.db.QueryRow(ctx,
			`UPDATE availability_templates
			 SET weekday = $3, start_time = $4, end_time = $5, slot_minutes = $6, capacity = $7, updated_at = now()
			 WHERE id = $1 AND tenant_id = $2
			 RETURNING `+templateColumns,
			id, tid, next.Weekday, next.StartTime, next.EndTime, next.SlotMinutes, next.Capacity))
		if err != nil {
			return writeErr(err, "update template %s", id)
		}
		q.audit(ctx, tid, audit.EntityTemplate, audit.OpUpdate, "", id, &out)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *queries) DeleteTemplate(ctx context.Context, id string) error {
	tid, err := q.guard.Write(ctx, audit.EntityTemplate, audit.OpDelete, "")
	if err != nil {
		return err
	}
	t, err := scanTemplate(q.db.QueryRow(ctx,
		`DELETE FROM availability_templates WHERE id = $1 AND tenant_id = $2 RETURNING `+templateColumns,
		id, tid))
	if err != nil {
		return notFoundWrap(err, domain.ErrTemplateNotFound, "delete template %s", id)
	}
	q.audit(ctx, tid, audit.EntityTemplate, audit.OpDelete, "", id, &t)
	return nil
}

func (q *queries) DeleteTemplates(ctx context.Context, owner availability.Owner) (int, error) {
	tid, err := q.guard.Write(ctx, audit.EntityTemplate, audit.OpDeleteMany, "")
	if err != nil {
		return 0, err
	}
	tag, err := q.db.Exec(ctx,
		`DELETE FROM availability_templates WHERE tenant_id = $1 AND owner_type = $2 AND owner_id::text = $3`,
		tid, string(owner.Type), owner.ID)
	if err != nil {
		return 0, fmt.Errorf("delete templates of %s %s: %w", owner.Type, owner.ID, err)
	}
	q.audit(ctx, tid, audit.EntityTemplate, audit.OpDeleteMany, "", "", nil)
	return int(tag.RowsAffected()), nil
}

func (q *queries) ListTemplates(ctx context.Context, f availability.TemplateFilter) ([]availability.Template, error) {
	tid, err := q.guard.Read(ctx, audit.EntityTemplate)
	if err != nil {
		return nil, err
	}
	weekday := -1
	if f.Weekday != nil {
		weekday = *f.Weekday
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+templateColumns+` FROM availability_templates
		 WHERE tenant_id = $1
		   AND ($2 = '' OR owner_type = $2)
		   AND ($3 = '' OR owner_id::text = $3)
		   AND ($4 < 0 OR weekday = $4)
		 ORDER BY weekday, start_time, owner_type, id`,
		tid, string(f.OwnerType), f.OwnerID, weekday)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return collect(rows, scanTemplate)
}

// --- Exceptions ---

const exceptionColumns = `id, tenant_id, owner_type, owner_id, date::text, closed, slots, reason, created_at`

func scanException(row scannable) (availability.Exception, error) {
	var e availability.Exception
	var ownerType string
	err := row.Scan(&e.ID, &e.TenantID, &ownerType, &e.OwnerID, &e.Date, &e.Closed, &e.Slots, &e.Reason, &e.CreatedAt)
	e.OwnerType = availability.OwnerType(ownerType)
	return e, err
}

func (q *queries) CreateException(ctx context.Context, e availability.Exception) (*availability.Exception, error) {
	tid, err := q.guard.Write(ctx, audit.EntityException, audit.OpCreate, e.TenantID)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	out, err := scanException(q.db.QueryRow(ctx,
		`INSERT INTO availability_exceptions (tenant_id, owner_type, owner_id, date, closed, slots, reason)
		 VALUES ($1, $2, $3, $4::date, $5, $6, $7) RETURNING `+exceptionColumns,
		tid, string(e.OwnerType), e.OwnerID, e.Date, e.Closed, orEmpty(e.Slots), e.Reason))
	if err != nil {
		return nil, writeErr(err, "create exception")
	}
	q.audit(ctx, tid, audit.EntityException, audit.OpCreate, out.ID, "", &out)
	return &out, nil
}

func (q *queries) DeleteException(ctx context.Context, id string) error {
	tid, err := q.guard.Write(ctx, audit.EntityException, audit.OpDelete, "")
	if err != nil {
		return err
	}
	e, err := scanException(q.db.QueryRow(ctx,
		`DELETE FROM availability_exceptions WHERE id = $1 AND tenant_id = $2 RETURNING `+exceptionColumns,
		id, tid))
	if err != nil {
		return notFoundWrap(err, domain.ErrExceptionNotFound, "delete exception %s", id)
	}
	q.audit(ctx, tid, audit.EntityException, audit.OpDelete, "", id, &e)
	return nil
}

func (q *queries) ListExceptions(ctx context.Context, date string, owners ...availability.Owner) ([]availability.Exception, error) {
	tid, err := q.guard.Read(ctx, audit.EntityException)
	if err != nil {
		return nil, err
	}
	if _, err := availability.ParseDate(date); err != nil {
		return nil, err
	}
	types := make([]string, len(owners))
	ids := make([]string, len(owners))
	for i, o := range owners {
		types[i], ids[i] = string(o.Type), o.ID
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+exceptionColumns+` FROM availability_exceptions
		 WHERE tenant_id = $1 AND date = $2::date
		   AND (cardinality($3::text[]) = 0
		        OR (owner_type, owner_id::text) IN (SELECT * FROM unnest($3::text[], $4::text[])))
		 ORDER BY created_at, id`,
		tid, date, types, ids)
	if err != nil {
		return nil, fmt.Errorf("list exceptions on %s: %w", date, err)
	}
	return collect(rows, scanException)
}
