package models

import (
	"strings"
	"time"

	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
	"masters/pkg/slug"
)

// MasterData is one record of a master type. Records of a hierarchical type
// form a tree via ParentID; a parent must belong to the same type. A nil
// TenantID marks a record shared by every tenant.
type MasterData struct {
	ID             domain.RecordID
	MasterTypeID   domain.TypeID
	Name           string
	Slug           string
	Code           string
	ISOCode        string
	Description    string
	ParentID       *domain.RecordID
	SortOrder      int
	IsActive       bool
	AdditionalData map[string]any
	MetaData       map[string]any
	TenantID       *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time

	// Children holds the immediate active children when loaded by a
	// hierarchical query. Not persisted.
	Children []*MasterData
}

// RecordAttrs carries caller-supplied attributes for create and update.
// Nil pointers mean "not supplied"; partial updates only touch supplied
// fields. ClearParent distinguishes "set parent to null" from "leave it".
type RecordAttrs struct {
	Name           *string
	Slug           *string
	Code           *string
	ISOCode        *string
	Description    *string
	ParentID       *domain.RecordID
	ClearParent    bool
	SortOrder      *int
	IsActive       *bool
	AdditionalData map[string]any
	MetaData       map[string]any
	TenantID       *string
}

// NewMasterData builds a record for the given type from create attributes.
// Slug falls back to a slugified name; records default to active.
func NewMasterData(id domain.RecordID, typeID domain.TypeID, attrs RecordAttrs, now time.Time) (*MasterData, error) {
	if attrs.Name == nil || strings.TrimSpace(*attrs.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	d := &MasterData{
		ID:             id,
		MasterTypeID:   typeID,
		Name:           strings.TrimSpace(*attrs.Name),
		IsActive:       true,
		AdditionalData: attrs.AdditionalData,
		MetaData:       attrs.MetaData,
		TenantID:       attrs.TenantID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if attrs.Slug != nil && *attrs.Slug != "" {
		d.Slug = *attrs.Slug
	} else {
		d.Slug = slug.Make(d.Name)
	}
	if attrs.Code != nil {
		d.Code = *attrs.Code
	}
	if attrs.ISOCode != nil {
		d.ISOCode = *attrs.ISOCode
	}
	if attrs.Description != nil {
		d.Description = *attrs.Description
	}
	if attrs.ParentID != nil {
		pid := *attrs.ParentID
		d.ParentID = &pid
	}
	if attrs.SortOrder != nil {
		d.SortOrder = *attrs.SortOrder
	}
	if attrs.IsActive != nil {
		d.IsActive = *attrs.IsActive
	}
	return d, nil
}

// Apply merges update attributes into the record, implementing partial
// update semantics. When the name changes and no slug is supplied in the
// same call, the slug is re-derived from the new name.
func (d *MasterData) Apply(attrs RecordAttrs, now time.Time) error {
	if attrs.Name != nil {
		name := strings.TrimSpace(*attrs.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "name must not be empty")
		}
		if name != d.Name && attrs.Slug == nil {
			d.Slug = slug.Make(name)
		}
		d.Name = name
	}
	if attrs.Slug != nil && *attrs.Slug != "" {
		d.Slug = *attrs.Slug
	}
	if attrs.Code != nil {
		d.Code = *attrs.Code
	}
	if attrs.ISOCode != nil {
		d.ISOCode = *attrs.ISOCode
	}
	if attrs.Description != nil {
		d.Description = *attrs.Description
	}
	if attrs.ClearParent {
		d.ParentID = nil
	} else if attrs.ParentID != nil {
		pid := *attrs.ParentID
		d.ParentID = &pid
	}
	if attrs.SortOrder != nil {
		d.SortOrder = *attrs.SortOrder
	}
	if attrs.IsActive != nil {
		d.IsActive = *attrs.IsActive
	}
	if attrs.AdditionalData != nil {
		d.AdditionalData = attrs.AdditionalData
	}
	if attrs.MetaData != nil {
		d.MetaData = attrs.MetaData
	}
	d.UpdatedAt = now
	return nil
}

// Deleted reports whether the record is soft-deleted.
func (d *MasterData) Deleted() bool {
	return d.DeletedAt != nil
}

// IsRoot reports whether the record sits at the top of its tree.
func (d *MasterData) IsRoot() bool {
	return d.ParentID == nil
}

// VisibleTo reports whether the record is visible in the given tenancy
// scope: shared records (nil TenantID) always, owned records only to their
// tenant.
func (d *MasterData) VisibleTo(tenantID string, scoped bool) bool {
	if d.TenantID == nil {
		return true
	}
	return scoped && *d.TenantID == tenantID
}

// Clone returns a deep copy so store internals never alias caller state.
func (d *MasterData) Clone() *MasterData {
	cp := *d
	if d.ParentID != nil {
		pid := *d.ParentID
		cp.ParentID = &pid
	}
	if d.TenantID != nil {
		tid := *d.TenantID
		cp.TenantID = &tid
	}
	if d.DeletedAt != nil {
		t := *d.DeletedAt
		cp.DeletedAt = &t
	}
	cp.AdditionalData = cloneMap(d.AdditionalData)
	cp.MetaData = cloneMap(d.MetaData)
	cp.Children = nil
	return &cp
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
