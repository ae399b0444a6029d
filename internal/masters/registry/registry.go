// Package registry manages the catalog of master type definitions.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"masters/internal/masters/models"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
	"masters/pkg/platform/sentinel"
	"masters/pkg/tenancy"
)

// Registry resolves, lists, and installs master types.
type Registry struct {
	types store.TypeStore
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry clock for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

func New(types store.TypeStore, log *slog.Logger, opts ...Option) *Registry {
	r := &Registry{types: types, log: log, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the type with the given slug if it is visible in the
// current tenancy scope and not soft-deleted.
func (r *Registry) Resolve(ctx context.Context, slug string) (*models.MasterType, error) {
	if slug == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "type slug is required")
	}
	t, err := r.types.FindBySlug(ctx, slug, store.ScopeFrom(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "master type %q not found", slug)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve master type")
	}
	return t, nil
}

// Upsert creates the type if it does not exist and leaves an existing one
// untouched, making installation idempotent. The second return reports
// whether a new type was created.
func (r *Registry) Upsert(ctx context.Context, slug string, attrs models.TypeAttrs) (*models.MasterType, bool, error) {
	if existing, err := r.Resolve(ctx, slug); err == nil {
		return existing, false, nil
	} else if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, false, err
	}

	if attrs.ParentTypeSlug != "" {
		if err := r.validateParentChain(ctx, slug, attrs.ParentTypeSlug); err != nil {
			return nil, false, err
		}
	}

	var tenantPtr *string
	if tenantID, ok := tenancy.Current(ctx); ok {
		tenantPtr = &tenantID
	}
	t, err := models.NewMasterType(domain.NewTypeID(), slug, attrs, tenantPtr, r.now())
	if err != nil {
		return nil, false, err
	}

	if err := r.types.Insert(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost an install race; the existing definition wins.
			existing, rerr := r.Resolve(ctx, slug)
			if rerr != nil {
				return nil, false, rerr
			}
			return existing, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create master type")
	}
	r.log.Info("master type created", "slug", t.Slug, "hierarchical", t.IsHierarchical, "global", t.IsGlobal)
	return t, true, nil
}

// validateParentChain checks that the parent type exists and that linking
// slug under it keeps the type-level parent graph acyclic.
func (r *Registry) validateParentChain(ctx context.Context, slug, parentSlug string) error {
	seen := map[string]bool{slug: true}
	current := parentSlug
	for current != "" {
		if seen[current] {
			return dErrors.Newf(dErrors.CodeIntegrity, "parent type %q would create a cycle", parentSlug)
		}
		seen[current] = true
		parent, err := r.types.FindBySlug(ctx, current, store.ScopeFrom(ctx))
		if errors.Is(err, sentinel.ErrNotFound) {
			if current == parentSlug {
				return dErrors.Newf(dErrors.CodeValidation, "parent type %q does not exist", parentSlug)
			}
			// A dangling link further up the chain is the linked type's
			// defect, not this upsert's.
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate parent type")
		}
		current = parent.ParentTypeSlug
	}
	return nil
}

// Active lists non-deleted, active types visible in the current scope.
func (r *Registry) Active(ctx context.Context) ([]*models.MasterType, error) {
	all, err := r.types.List(ctx, store.ScopeFrom(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list master types")
	}
	out := all[:0:0]
	for _, t := range all {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

// Install upserts the default type catalog in order. Existing types are
// left untouched, so repeated installs are safe.
func (r *Registry) Install(ctx context.Context, defaults []models.DefaultType) error {
	for _, def := range defaults {
		_, created, err := r.Upsert(ctx, def.Slug, def.Attrs)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to install type "+def.Slug)
		}
		if created {
			r.log.Info("installed master type", "slug", def.Slug)
		}
	}
	return nil
}
