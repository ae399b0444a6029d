package models

import (
	"strings"
	"time"

	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
	"masters/pkg/slug"
)

// MasterType describes a class of reference data ("countries", "categories").
// Types form an optional type-level tree via ParentTypeSlug (states belong
// under countries). A nil TenantID marks a type shared by every tenant.
type MasterType struct {
	ID               domain.TypeID
	Name             string
	Slug             string
	Description      string
	IsHierarchical   bool
	IsGlobal         bool
	ParentTypeSlug   string
	ValidationRules  map[string]string
	AdditionalFields map[string]any
	IsActive         bool
	TenantID         *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// TypeAttrs carries the caller-supplied attributes for a type upsert.
type TypeAttrs struct {
	Name             string
	Description      string
	IsHierarchical   bool
	IsGlobal         bool
	ParentTypeSlug   string
	ValidationRules  map[string]string
	AdditionalFields map[string]any
}

// DefaultType pairs a slug with upsert attributes, used when installing
// the default type catalog.
type DefaultType struct {
	Slug  string
	Attrs TypeAttrs
}

// NewMasterType builds a type definition from upsert attributes.
// Slug falls back to a slugified name when the caller omits it.
func NewMasterType(id domain.TypeID, typeSlug string, attrs TypeAttrs, tenantID *string, now time.Time) (*MasterType, error) {
	name := strings.TrimSpace(attrs.Name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "type name is required")
	}
	if typeSlug == "" {
		typeSlug = slug.Make(name)
	}
	if typeSlug == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "type slug is required")
	}
	t := &MasterType{
		ID:               id,
		Name:             name,
		Slug:             typeSlug,
		Description:      attrs.Description,
		IsHierarchical:   attrs.IsHierarchical,
		IsGlobal:         attrs.IsGlobal,
		ParentTypeSlug:   attrs.ParentTypeSlug,
		ValidationRules:  attrs.ValidationRules,
		AdditionalFields: attrs.AdditionalFields,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if !attrs.IsGlobal {
		t.TenantID = tenantID
	}
	return t, nil
}

// Deleted reports whether the type is soft-deleted.
func (t *MasterType) Deleted() bool {
	return t.DeletedAt != nil
}

// VisibleTo reports whether the type is visible in the given tenancy scope.
// Global types and types without an owner are visible everywhere; owned
// types only to their tenant.
func (t *MasterType) VisibleTo(tenantID string, scoped bool) bool {
	if t.IsGlobal || t.TenantID == nil {
		return true
	}
	return scoped && *t.TenantID == tenantID
}
