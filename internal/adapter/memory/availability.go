package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/audit"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/scope"
)

func templateOrder(a, b availability.Template) int {
	return cmp.Or(
		cmp.Compare(a.Weekday, b.Weekday),
		cmp.Compare(a.StartTime, b.StartTime),
		cmp.Compare(a.OwnerType, b.OwnerType),
		cmp.Compare(a.ID, b.ID),
	)
}

func (q *queries) CreateTemplate(ctx context.Context, t availability.Template) (*availability.Template, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityTemplate, audit.OpCreate, t.TenantID)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		now := q.clock()
		t.ID, t.TenantID, t.CreatedAt, t.UpdatedAt = newID(t.ID), tid, now, now
		st.templates[t.ID] = t
		j.Add(ctx, tid, audit.EntityTemplate, audit.OpCreate, t.ID, "", &t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) CreateTemplates(ctx context.Context, ts []availability.Template) (int, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityTemplate, audit.OpCreateMany, "")
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
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		now := q.clock()
		for _, t := range ts {
			t.ID, t.TenantID, t.CreatedAt, t.UpdatedAt = newID(""), tid, now, now
			st.templates[t.ID] = t
		}
		j.Add(ctx, tid, audit.EntityTemplate, audit.OpCreateMany, "", "", nil)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ts), nil
}

func (q *queries) GetTemplate(ctx context.Context, id string) (*availability.Template, error) {
	return getScoped(ctx, q, audit.EntityTemplate, id,
		func(st *state) map[string]availability.Template { return st.templates },
		func(t *availability.Template) string { return t.TenantID }, domain.ErrTemplateNotFound)
}

func (q *queries) UpdateTemplate(ctx context.Context, id string, p availability.TemplatePatch) (*availability.Template, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityTemplate, audit.OpUpdate, p.TenantID)
	if err != nil {
		return nil, err
	}
	var out availability.Template
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		cur, ok := st.templates[id]
		if !ok || cur.TenantID != tid {
			return domain.ErrTemplateNotFound
		}
		next := p.Apply(cur)
		if err := next.Validate(); err != nil {
			return err
		}
		next.UpdatedAt = q.clock()
		st.templates[id] = next
		j.Add(ctx, tid, audit.EntityTemplate, audit.OpUpdate, "", id, &next)
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (q *queries) DeleteTemplate(ctx context.Context, id string) error {
	tid, err := q.s.guard.Write(ctx, audit.EntityTemplate, audit.OpDelete, "")
	if err != nil {
		return err
	}
	return q.run(ctx, func(st *state, j *scope.Journal) error {
		cur, ok := st.templates[id]
		if !ok || cur.TenantID != tid {
			return domain.ErrTemplateNotFound
		}
		delete(st.templates, id)
		j.Add(ctx, tid, audit.EntityTemplate, audit.OpDelete, "", id, &cur)
		return nil
	})
}

func (q *queries) DeleteTemplates(ctx context.Context, owner availability.Owner) (int, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityTemplate, audit.OpDeleteMany, "")
	if err != nil {
		return 0, err
	}
	n := 0
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		for id, t := range st.templates {
			if t.TenantID == tid && t.Owner() == owner {
				delete(st.templates, id)
				n++
			}
		}
		j.Add(ctx, tid, audit.EntityTemplate, audit.OpDeleteMany, "", "", nil)
		return nil
	})
	return n, err
}

func (q *queries) ListTemplates(ctx context.Context, f availability.TemplateFilter) ([]availability.Template, error) {
	return listScoped(ctx, q, audit.EntityTemplate,
		func(st *state) map[string]availability.Template { return st.templates },
		func(t *availability.Template) string { return t.TenantID },
		func(t *availability.Template) bool {
			return (f.OwnerType == "" || t.OwnerType == f.OwnerType) &&
				(f.OwnerID == "" || t.OwnerID == f.OwnerID) &&
				(f.Weekday == nil || t.Weekday == *f.Weekday)
		},
		templateOrder)
}

func (q *queries) CreateException(ctx context.Context, e availability.Exception) (*availability.Exception, error) {
	tid, err := q.s.guard.Write(ctx, audit.EntityException, audit.OpCreate, e.TenantID)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	e.Slots = slices.Clone(e.Slots)
	err = q.run(ctx, func(st *state, j *scope.Journal) error {
		e.ID, e.TenantID, e.CreatedAt = newID(e.ID), tid, q.clock()
		st.exceptions[e.ID] = e
		j.Add(ctx, tid, audit.EntityException, audit.OpCreate, e.ID, "", &e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (q *queries) DeleteException(ctx context.Context, id string) error {
	tid, err := q.s.guard.Write(ctx, audit.EntityException, audit.OpDelete, "")
	if err != nil {
		return err
	}
	return q.run(ctx, func(st *state, j *scope.Journal) error {
		cur, ok := st.exceptions[id]
		if !ok || cur.TenantID != tid {
			return domain.ErrExceptionNotFound
		}
		delete(st.exceptions, id)
		j.Add(ctx, tid, audit.EntityException, audit.OpDelete, "", id, &cur)
		return nil
	})
}

func (q *queries) ListExceptions(ctx context.Context, date string, owners ...availability.Owner) ([]availability.Exception, error) {
	return listScoped(ctx, q, audit.EntityException,
		func(st *state) map[string]availability.Exception { return st.exceptions },
		func(e *availability.Exception) string { return e.TenantID },
		func(e *availability.Exception) bool {
			if e.Date != date {
				return false
			}
			return len(owners) == 0 || slices.Contains(owners, availability.Owner{Type: e.OwnerType, ID: e.OwnerID})
		},
		byCreated(func(e *availability.Exception) time.Time { return e.CreatedAt }, func(e *availability.Exception) string { return e.ID }))
}
