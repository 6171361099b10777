package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/FerDeGante/Eventora-sub000/internal/adapter/otel"
	"github.com/FerDeGante/Eventora-sub000/internal/domain"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/availability"
	"github.com/FerDeGante/Eventora-sub000/internal/domain/tenant"
	"github.com/FerDeGante/Eventora-sub000/internal/port/cache"
	"github.com/FerDeGante/Eventora-sub000/internal/port/database"
)

// AvailabilityService computes open slots and manages the templates and
// exceptions they derive from.
type AvailabilityService struct {
	store   database.Store
	cache   cache.Cache
	ttl     time.Duration
	metrics *cfotel.Metrics
}

// NewAvailabilityService creates an AvailabilityService. Template lists are
// cached for ttl when c is non-nil.
func NewAvailabilityService(store database.Store, c cache.Cache, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{store: store, cache: c, ttl: ttl}
}

// SetMetrics enables slot computation timing.
func (s *AvailabilityService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// ComputeSlots returns the open slots of serviceID at branchID on date
// ("YYYY-MM-DD", read as a UTC calendar day), ordered by time.
func (s *AvailabilityService) ComputeSlots(ctx context.Context, serviceID, branchID, date string) (_ []availability.Slot, err error) {
	tc, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	ctx, span := cfotel.StartSlotsSpan(ctx, tc.TenantID, branchID, serviceID, date)
	defer func() {
		cfotel.End(span, err)
		if s.metrics != nil {
			s.metrics.SlotsDuration.Record(ctx, time.Since(started).Seconds(), cfotel.Tenant(tc.TenantID))
		}
	}()

	if _, err := s.store.GetService(ctx, serviceID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBranch(ctx, branchID); err != nil {
		return nil, err
	}

	branch := availability.Owner{Type: availability.OwnerBranch, ID: branchID}
	service := availability.Owner{Type: availability.OwnerService, ID: serviceID}

	exceptions, err := s.store.ListExceptions(ctx, date, branch, service)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	if len(exceptions) > 0 {
		return availability.Compute(exceptions, nil, nil), nil
	}

	weekday := int(day.Weekday())
	var branchTpl, serviceTpl []availability.Template
	var booked map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		branchTpl, err = s.templatesFor(gctx, tc.TenantID, branch, weekday)
		return err
	})
	g.Go(func() (err error) {
		serviceTpl, err = s.templatesFor(gctx, tc.TenantID, service, weekday)
		return err
	})
	g.Go(func() (err error) {
		booked, err = s.store.CountBooked(gctx, branchID, serviceID, day)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}

	return availability.Compute(nil, append(branchTpl, serviceTpl...), booked), nil
}

func templateCacheKey(tenantID string, owner availability.Owner, weekday int) string {
	return "tpl:" + tenantID + ":" + string(owner.Type) + ":" + owner.ID + ":" + strconv.Itoa(weekday)
}

func (s *AvailabilityService) templatesFor(ctx context.Context, tenantID string, owner availability.Owner, weekday int) ([]availability.Template, error) {
	key := templateCacheKey(tenantID, owner, weekday)
	if s.cache != nil {
		if ts, ok := cache.GetJSON[[]availability.Template](ctx, s.cache, key); ok {
			return ts, nil
		}
	}
	ts, err := s.store.ListTemplates(ctx, availability.TemplateFilter{OwnerType: owner.Type, OwnerID: owner.ID, Weekday: &weekday})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = cache.SetJSON(ctx, s.cache, key, ts, s.ttl)
	}
	return ts, nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, owner availability.Owner, weekdays ...int) {
	if s.cache == nil {
		return
	}
	tid := tenant.IDFromContext(ctx)
	for _, wd := range weekdays {
		_ = s.cache.Delete(ctx, templateCacheKey(tid, owner, wd))
	}
}

var allWeekdays = []int{0, 1, 2, 3, 4, 5, 6}

// CreateTemplate creates a weekly template.
func (s *AvailabilityService) CreateTemplate(ctx context.Context, req availability.TemplateRequest) (*availability.Template, error) {
	t := req.Template()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	out, err := s.store.CreateTemplate(ctx, t)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.Owner(), out.Weekday)
	return out, nil
}

// GetTemplate returns a template by ID.
func (s *AvailabilityService) GetTemplate(ctx context.Context, id string) (*availability.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// UpdateTemplate applies a partial update to a template.
func (s *AvailabilityService) UpdateTemplate(ctx context.Context, id string, p availability.TemplatePatch) (*availability.Template, error) {
	before, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.store.UpdateTemplate(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.Owner(), before.Weekday, out.Weekday)
	return out, nil
}

// DeleteTemplate removes a template.
func (s *AvailabilityService) DeleteTemplate(ctx context.Context, id string) error {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, t.Owner(), t.Weekday)
	return nil
}

// ListTemplates lists templates matching f.
func (s *AvailabilityService) ListTemplates(ctx context.Context, f availability.TemplateFilter) ([]availability.Template, error) {
	return s.store.ListTemplates(ctx, f)
}

// ReplaceWeeklySchedule atomically replaces every template of owner with
// reqs and returns the number created.
func (s *AvailabilityService) ReplaceWeeklySchedule(ctx context.Context, owner availability.Owner, reqs []availability.TemplateRequest) (int, error) {
	if !owner.Type.Valid() || owner.ID == "" {
		return 0, domain.Invalid("schedule owner is required")
	}
	ts := make([]availability.Template, 0, len(reqs))
	for _, req := range reqs {
		req.OwnerType, req.OwnerID = owner.Type, owner.ID
		t := req.Template()
		if err := t.Validate(); err != nil {
			return 0, err
		}
		ts = append(ts, t)
	}

	var created int
	err := s.store.InTx(ctx, func(tx database.Queries) error {
		if _, err := tx.DeleteTemplates(ctx, owner); err != nil {
			return err
		}
		if len(ts) == 0 {
			return nil
		}
		n, err := tx.CreateTemplates(ctx, ts)
		created = n
		return err
	})
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, owner, allWeekdays...)
	return created, nil
}

// CreateException records a closure or replacement schedule for one date.
func (s *AvailabilityService) CreateException(ctx context.Context, e availability.Exception) (*availability.Exception, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateException(ctx, e)
}

// DeleteException removes an exception.
func (s *AvailabilityService) DeleteException(ctx context.Context, id string) error {
	return s.store.DeleteException(ctx, id)
}

// ListExceptions lists the exceptions of owners on date.
func (s *AvailabilityService) ListExceptions(ctx context.Context, date string, owners ...availability.Owner) ([]availability.Exception, error) {
	if _, err := availability.ParseDate(date); err != nil {
		return nil, err
	}
	return s.store.ListExceptions(ctx, date, owners...)
}
