// Package service implements the tenancy-aware hierarchical repository
// over master data, plus the batch import/export engine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"masters/internal/masters/metrics"
	"masters/internal/masters/models"
	"masters/internal/masters/registry"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
	"masters/pkg/platform/sentinel"
	"masters/pkg/tenancy"
)

// Repository is the read/write surface over master data. *Service is the
// storage-backed implementation; cache.CachedRepository wraps any
// Repository without changing results.
type Repository interface {
	Get(ctx context.Context, typeSlug string, f store.Filter) ([]*models.MasterData, error)
	Find(ctx context.Context, typeSlug string, id domain.RecordID) (*models.MasterData, error)
	Create(ctx context.Context, typeSlug string, attrs models.RecordAttrs) (*models.MasterData, error)
	Update(ctx context.Context, typeSlug string, id domain.RecordID, attrs models.RecordAttrs) (*models.MasterData, error)
	Delete(ctx context.Context, typeSlug string, id domain.RecordID) error
	GetHierarchical(ctx context.Context, typeSlug string, parentID *domain.RecordID) ([]*models.MasterData, error)
	Search(ctx context.Context, typeSlug string, query string, f store.Filter) ([]*models.MasterData, error)
}

// Service is the storage-backed Repository.
type Service struct {
	registry *registry.Registry
	data     store.DataStore
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(reg *registry.Registry, data store.DataStore, log *slog.Logger, opts ...Option) *Service {
	s := &Service{registry: reg, data: data, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the visible, non-deleted records of a type, narrowed by the
// filter, ordered by (sort_order asc, name asc).
func (s *Service) Get(ctx context.Context, typeSlug string, f store.Filter) ([]*models.MasterData, error) {
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	rows, err := s.data.Query(ctx, t.ID, store.ScopeFrom(ctx), f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query master data")
	}
	return rows, nil
}

// Find returns one visible record by id.
func (s *Service) Find(ctx context.Context, typeSlug string, id domain.RecordID) (*models.MasterData, error) {
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	return s.visibleRecord(ctx, t, id)
}

// Create inserts a record under the given type. The slug is derived from
// the name when absent, and non-global types have the current tenant
// assigned unless the caller supplies one explicitly.
func (s *Service) Create(ctx context.Context, typeSlug string, attrs models.RecordAttrs) (_ *models.MasterData, err error) {
	defer func() { observe("create", err) }()
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	if err := applyValidationRules(t, attrs); err != nil {
		return nil, err
	}
	if !t.IsGlobal && attrs.TenantID == nil {
		if tenantID, ok := tenancy.Current(ctx); ok {
			attrs.TenantID = &tenantID
		}
	}

	d, err := models.NewMasterData(domain.NewRecordID(), t.ID, attrs, s.now())
	if err != nil {
		return nil, err
	}
	if d.ParentID != nil {
		if _, err := s.parentInScope(ctx, t, *d.ParentID); err != nil {
			return nil, err
		}
	}

	if err := s.data.Insert(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "record with slug %q already exists in %q", d.Slug, typeSlug)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create master data")
	}
	s.log.Debug("master data created", "type", typeSlug, "id", d.ID.String(), "slug", d.Slug)
	return d, nil
}

// Update applies a partial update to one visible record. Renames re-derive
// the slug unless one is supplied in the same call; parent reassignments
// are checked against cross-type links and ancestor cycles first.
func (s *Service) Update(ctx context.Context, typeSlug string, id domain.RecordID, attrs models.RecordAttrs) (_ *models.MasterData, err error) {
	defer func() { observe("update", err) }()
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return nil, err
	}
	d, err := s.visibleRecord(ctx, t, id)
	if err != nil {
		return nil, err
	}

	if attrs.ParentID != nil && !attrs.ClearParent {
		if err := s.checkReparent(ctx, t, d, *attrs.ParentID); err != nil {
			return nil, err
		}
	}
	if err := d.Apply(attrs, s.now()); err != nil {
		return nil, err
	}

	if err := s.data.Update(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "record with slug %q already exists in %q", d.Slug, typeSlug)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update master data")
	}
	return d, nil
}

// Delete soft-deletes one visible record and re-roots its children.
// Children are orphaned to the root level, never cascade-deleted. Deleting
// an id that is already gone reports NotFound.
func (s *Service) Delete(ctx context.Context, typeSlug string, id domain.RecordID) (err error) {
	defer func() { observe("delete", err) }()
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return err
	}
	d, err := s.visibleRecord(ctx, t, id)
	if err != nil {
		return err
	}

	now := s.now()
	d.DeletedAt = &now
	d.UpdatedAt = now
	if err := s.data.Update(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete master data")
	}
	if err := s.data.SetParentNull(ctx, t.ID, d.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to re-root children")
	}
	s.log.Debug("master data deleted", "type", typeSlug, "id", d.ID.String())
	return nil
}

// GetHierarchical returns one level of the record tree: the active rows
// under parentID (root rows when nil), each loaded with its immediate
// active children. One level keeps responses bounded for incremental UI
// loading.
func (s *Service) GetHierarchical(ctx context.Context, typeSlug string, parentID *domain.RecordID) ([]*models.MasterData, error) {
	t, err := s.registry.Resolve(ctx, typeSlug)
	if err != nil {
		return nil, err
	}

	active := true
	rows, err := s.data.Query(ctx, t.ID, store.ScopeFrom(ctx), store.Filter{IsActive: &active})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query master data")
	}

	// One pass over the arena: group children by parent, then pick the
	// requested level. Query order is preserved within each group.
	byParent := make(map[domain.RecordID][]*models.MasterData)
	var roots []*models.MasterData
	for _, d := range rows {
		if d.ParentID == nil {
			roots = append(roots, d)
			continue
		}
		byParent[*d.ParentID] = append(byParent[*d.ParentID], d)
	}

	level := roots
	if parentID != nil {
		level = byParent[*parentID]
	}
	for _, d := range level {
		d.Children = byParent[d.ID]
	}
	return level, nil
}

// Search is Get with the query folded into the search filter.
func (s *Service) Search(ctx context.Context, typeSlug string, query string, f store.Filter) ([]*models.MasterData, error) {
	f.Search = query
	return s.Get(ctx, typeSlug, f)
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.RepositoryOps.WithLabelValues(op, result).Inc()
}

func (s *Service) visibleRecord(ctx context.Context, t *models.MasterType, id domain.RecordID) (*models.MasterData, error) {
	d, err := s.data.Find(ctx, t.ID, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "record %s not found in %q", id.String(), t.Slug)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load master data")
	}
	scope := store.ScopeFrom(ctx)
	if !d.VisibleTo(scope.TenantID, scope.Scoped) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "record %s not found in %q", id.String(), t.Slug)
	}
	return d, nil
}

// parentInScope validates that a proposed parent exists under the same
// type and is visible in the current scope.
func (s *Service) parentInScope(ctx context.Context, t *models.MasterType, parentID domain.RecordID) (*models.MasterData, error) {
	parent, err := s.data.Find(ctx, t.ID, parentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeIntegrity, "parent %s does not exist in %q", parentID.String(), t.Slug)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load parent record")
	}
	scope := store.ScopeFrom(ctx)
	if !parent.VisibleTo(scope.TenantID, scope.Scoped) {
		return nil, dErrors.Newf(dErrors.CodeIntegrity, "parent %s is not visible in scope", parentID.String())
	}
	return parent, nil
}

// checkReparent rejects parent reassignments that would cross a type
// boundary or close a cycle. The proposed parent's ancestor chain must not
// contain the record itself.
func (s *Service) checkReparent(ctx context.Context, t *models.MasterType, d *models.MasterData, newParent domain.RecordID) error {
	if newParent == d.ID {
		return dErrors.New(dErrors.CodeIntegrity, "record cannot be its own parent")
	}
	parent, err := s.parentInScope(ctx, t, newParent)
	if err != nil {
		return err
	}
	for parent != nil {
		if parent.ID == d.ID {
			return dErrors.Newf(dErrors.CodeIntegrity, "parent %s would create a cycle", newParent.String())
		}
		if parent.ParentID == nil {
			break
		}
		next, err := s.data.Find(ctx, t.ID, *parent.ParentID)
		if errors.Is(err, sentinel.ErrNotFound) {
			break
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk ancestor chain")
		}
		parent = next
	}
	return nil
}

// applyValidationRules enforces the type's declared field rules on create.
// Only the "required" rule is interpreted; unknown rules are ignored.
func applyValidationRules(t *models.MasterType, attrs models.RecordAttrs) error {
	for field, rule := range t.ValidationRules {
		if !strings.Contains(rule, "required") {
			continue
		}
		value, known := attrValue(attrs, field)
		if known && strings.TrimSpace(value) == "" {
			return dErrors.Newf(dErrors.CodeValidation, "field %q is required for type %q", field, t.Slug)
		}
	}
	return nil
}

func attrValue(attrs models.RecordAttrs, field string) (string, bool) {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	switch field {
	case "name":
		return deref(attrs.Name), true
	case "slug":
		return deref(attrs.Slug), true
	case "code":
		return deref(attrs.Code), true
	case "iso_code":
		return deref(attrs.ISOCode), true
	case "description":
		return deref(attrs.Description), true
	default:
		return "", false
	}
}
