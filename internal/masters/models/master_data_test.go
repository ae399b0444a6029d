package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func newRecord(t *testing.T, attrs RecordAttrs) *MasterData {
	t.Helper()
	d, err := NewMasterData(domain.NewRecordID(), domain.NewTypeID(), attrs, time.Now())
	require.NoError(t, err)
	return d
}

func TestNewMasterDataDerivesSlug(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("United States")})
	assert.Equal(t, "united-states", d.Slug)
	assert.True(t, d.IsActive, "records default to active")
}

func TestNewMasterDataKeepsExplicitSlug(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("United States"), Slug: strPtr("usa")})
	assert.Equal(t, "usa", d.Slug)
}

func TestNewMasterDataRequiresName(t *testing.T) {
	_, err := NewMasterData(domain.NewRecordID(), domain.NewTypeID(), RecordAttrs{}, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = NewMasterData(domain.NewRecordID(), domain.NewTypeID(), RecordAttrs{Name: strPtr("   ")}, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestApplyRenameRederivesSlug(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("United States")})
	require.NoError(t, d.Apply(RecordAttrs{Name: strPtr("USA")}, time.Now()))
	assert.Equal(t, "USA", d.Name)
	assert.Equal(t, "usa", d.Slug)
}

func TestApplyRenameKeepsSuppliedSlug(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("United States")})
	require.NoError(t, d.Apply(RecordAttrs{Name: strPtr("USA"), Slug: strPtr("the-states")}, time.Now()))
	assert.Equal(t, "the-states", d.Slug)
}

func TestApplyIsPartial(t *testing.T) {
	d := newRecord(t, RecordAttrs{
		Name:      strPtr("Germany"),
		Code:      strPtr("DE"),
		ISOCode:   strPtr("DEU"),
		SortOrder: intPtr(3),
	})

	require.NoError(t, d.Apply(RecordAttrs{SortOrder: intPtr(7)}, time.Now()))

	assert.Equal(t, "Germany", d.Name)
	assert.Equal(t, "germany", d.Slug)
	assert.Equal(t, "DE", d.Code)
	assert.Equal(t, "DEU", d.ISOCode)
	assert.Equal(t, 7, d.SortOrder)
}

func TestApplyRejectsEmptyName(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("Germany")})
	err := d.Apply(RecordAttrs{Name: strPtr("  ")}, time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Equal(t, "Germany", d.Name)
}

func TestApplyClearParent(t *testing.T) {
	parentID := domain.NewRecordID()
	d := newRecord(t, RecordAttrs{Name: strPtr("Bavaria"), ParentID: &parentID})
	require.NotNil(t, d.ParentID)

	require.NoError(t, d.Apply(RecordAttrs{ClearParent: true}, time.Now()))
	assert.Nil(t, d.ParentID)
	assert.True(t, d.IsRoot())
}

func TestApplyDeactivate(t *testing.T) {
	d := newRecord(t, RecordAttrs{Name: strPtr("Germany")})
	require.NoError(t, d.Apply(RecordAttrs{IsActive: boolPtr(false)}, time.Now()))
	assert.False(t, d.IsActive)
}

func TestVisibleTo(t *testing.T) {
	shared := newRecord(t, RecordAttrs{Name: strPtr("Shared")})
	owned := newRecord(t, RecordAttrs{Name: strPtr("Owned"), TenantID: strPtr("acme")})

	assert.True(t, shared.VisibleTo("", false), "shared records visible in global scope")
	assert.True(t, shared.VisibleTo("acme", true), "shared records visible to any tenant")
	assert.True(t, owned.VisibleTo("acme", true))
	assert.False(t, owned.VisibleTo("globex", true))
	assert.False(t, owned.VisibleTo("", false), "owned records hidden from global scope")
}

func TestCloneDoesNotAlias(t *testing.T) {
	parentID := domain.NewRecordID()
	d := newRecord(t, RecordAttrs{
		Name:           strPtr("Germany"),
		ParentID:       &parentID,
		TenantID:       strPtr("acme"),
		AdditionalData: map[string]any{"phone_code": "+49"},
	})

	cp := d.Clone()
	cp.AdditionalData["phone_code"] = "+1"
	*cp.ParentID = domain.NewRecordID()
	*cp.TenantID = "globex"

	assert.Equal(t, "+49", d.AdditionalData["phone_code"])
	assert.Equal(t, parentID, *d.ParentID)
	assert.Equal(t, "acme", *d.TenantID)
}

func TestNewMasterTypeSlugFallback(t *testing.T) {
	mt, err := NewMasterType(domain.NewTypeID(), "", TypeAttrs{Name: "Product Categories"}, nil, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "product-categories", mt.Slug)
	assert.True(t, mt.IsActive)
}

func TestNewMasterTypeGlobalIgnoresTenant(t *testing.T) {
	tenant := "acme"
	mt, err := NewMasterType(domain.NewTypeID(), "countries", TypeAttrs{Name: "Countries", IsGlobal: true}, &tenant, time.Now())
	require.NoError(t, err)
	assert.Nil(t, mt.TenantID, "global types are never tenant-owned")

	owned, err := NewMasterType(domain.NewTypeID(), "categories", TypeAttrs{Name: "Categories"}, &tenant, time.Now())
	require.NoError(t, err)
	require.NotNil(t, owned.TenantID)
	assert.Equal(t, "acme", *owned.TenantID)
}
