// Package store defines the persistence contracts for master types and
// master data. Implementations live in the memory and postgres
// subpackages; both must satisfy the same visibility, ordering, and
// soft-delete semantics so the service layer stays engine-agnostic.
package store

import (
	"context"

	"masters/internal/masters/models"
	"masters/pkg/domain"
	"masters/pkg/tenancy"
)

// Scope is the tenancy scope a query runs under. Unscoped means global
// scope: only shared rows (nil tenant) are visible.
type Scope struct {
	TenantID string
	Scoped   bool
}

// ScopeFrom derives the query scope from the request context.
func ScopeFrom(ctx context.Context) Scope {
	tenantID, ok := tenancy.Current(ctx)
	return Scope{TenantID: tenantID, Scoped: ok}
}

// Filter narrows a data query. Zero values mean "no constraint".
// Search is a case-insensitive substring match over name, code, and
// description; the remaining fields are exact matches.
type Filter struct {
	ParentID *domain.RecordID
	RootOnly bool
	Search   string
	Name     *string
	Code     *string
	ISOCode  *string
	IsActive *bool
}

// TypeStore persists master type definitions.
//
// FindBySlug and List exclude soft-deleted types and apply scope
// visibility (shared ∪ owned). Insert surfaces slug uniqueness violations
// within a visibility scope as sentinel.ErrConflict.
type TypeStore interface {
	Insert(ctx context.Context, t *models.MasterType) error
	FindBySlug(ctx context.Context, slug string, scope Scope) (*models.MasterType, error)
	List(ctx context.Context, scope Scope) ([]*models.MasterType, error)
}

// DataStore persists master data records.
//
// Find and Query exclude soft-deleted rows; FindAny is the bookkeeping
// escape hatch that sees deleted rows too. Query applies scope visibility
// and returns rows ordered by (sort_order asc, name asc). SetParentNull
// re-roots every child of the given record, across tenants, in one pass.
type DataStore interface {
	Insert(ctx context.Context, d *models.MasterData) error
	Update(ctx context.Context, d *models.MasterData) error
	Find(ctx context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error)
	FindAny(ctx context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error)
	Query(ctx context.Context, typeID domain.TypeID, scope Scope, f Filter) ([]*models.MasterData, error)
	SetParentNull(ctx context.Context, typeID domain.TypeID, parentID domain.RecordID) error
}
