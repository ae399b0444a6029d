package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"masters/internal/masters/models"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	"masters/pkg/platform/sentinel"
)

func strPtr(s string) *string { return &s }

type TypeStoreSuite struct {
	suite.Suite
	store *TypeStore
	ctx   context.Context
}

func TestTypeStoreSuite(t *testing.T) {
	suite.Run(t, new(TypeStoreSuite))
}

func (s *TypeStoreSuite) SetupTest() {
	s.store = NewTypeStore()
	s.ctx = context.Background()
}

func (s *TypeStoreSuite) newType(slug string, tenantID *string) *models.MasterType {
	t, err := models.NewMasterType(domain.NewTypeID(), slug, models.TypeAttrs{Name: slug}, tenantID, time.Now())
	s.Require().NoError(err)
	return t
}

func (s *TypeStoreSuite) TestInsertAndFind() {
	t := s.newType("countries", nil)
	s.Require().NoError(s.store.Insert(s.ctx, t))

	found, err := s.store.FindBySlug(s.ctx, "countries", store.Scope{})
	s.Require().NoError(err)
	s.Equal(t.ID, found.ID)
}

func (s *TypeStoreSuite) TestSlugConflictWithinScope() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newType("countries", nil)))

	err := s.store.Insert(s.ctx, s.newType("countries", nil))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *TypeStoreSuite) TestSameSlugDifferentTenants() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newType("categories", strPtr("acme"))))
	s.Require().NoError(s.store.Insert(s.ctx, s.newType("categories", strPtr("globex"))))
}

func (s *TypeStoreSuite) TestVisibility() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newType("countries", nil)))
	s.Require().NoError(s.store.Insert(s.ctx, s.newType("categories", strPtr("acme"))))

	s.Run("tenant sees shared and own", func() {
		types, err := s.store.List(s.ctx, store.Scope{TenantID: "acme", Scoped: true})
		s.Require().NoError(err)
		s.Len(types, 2)
	})

	s.Run("other tenant sees only shared", func() {
		types, err := s.store.List(s.ctx, store.Scope{TenantID: "globex", Scoped: true})
		s.Require().NoError(err)
		s.Require().Len(types, 1)
		s.Equal("countries", types[0].Slug)
	})

	s.Run("global scope sees only shared", func() {
		_, err := s.store.FindBySlug(s.ctx, "categories", store.Scope{})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

type DataStoreSuite struct {
	suite.Suite
	store  *DataStore
	ctx    context.Context
	typeID domain.TypeID
}

func TestDataStoreSuite(t *testing.T) {
	suite.Run(t, new(DataStoreSuite))
}

func (s *DataStoreSuite) SetupTest() {
	s.store = NewDataStore()
	s.ctx = context.Background()
	s.typeID = domain.NewTypeID()
}

func (s *DataStoreSuite) newRecord(name string, mod func(*models.MasterData)) *models.MasterData {
	d, err := models.NewMasterData(domain.NewRecordID(), s.typeID, models.RecordAttrs{Name: &name}, time.Now())
	s.Require().NoError(err)
	if mod != nil {
		mod(d)
	}
	s.Require().NoError(s.store.Insert(s.ctx, d))
	return d
}

func (s *DataStoreSuite) TestInsertAndFind() {
	d := s.newRecord("Germany", nil)

	found, err := s.store.Find(s.ctx, s.typeID, d.ID)
	s.Require().NoError(err)
	s.Equal("Germany", found.Name)
	s.Equal("germany", found.Slug)
}

func (s *DataStoreSuite) TestFindWrongTypeIsNotFound() {
	d := s.newRecord("Germany", nil)
	_, err := s.store.Find(s.ctx, domain.NewTypeID(), d.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *DataStoreSuite) TestSlugConflictWithinTypeAndTenant() {
	s.newRecord("Germany", nil)

	name := "Germany"
	dup, err := models.NewMasterData(domain.NewRecordID(), s.typeID, models.RecordAttrs{Name: &name}, time.Now())
	s.Require().NoError(err)
	s.Require().ErrorIs(s.store.Insert(s.ctx, dup), sentinel.ErrConflict)

	// Same slug under another tenant is fine.
	owned, err := models.NewMasterData(domain.NewRecordID(), s.typeID, models.RecordAttrs{Name: &name, TenantID: strPtr("acme")}, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Insert(s.ctx, owned))
}

func (s *DataStoreSuite) TestQueryOrdering() {
	s.newRecord("Cherry", func(d *models.MasterData) { d.SortOrder = 2 })
	s.newRecord("Apple", func(d *models.MasterData) { d.SortOrder = 1 })
	s.newRecord("Banana", func(d *models.MasterData) { d.SortOrder = 1 })

	rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal("Apple", rows[0].Name)
	s.Equal("Banana", rows[1].Name)
	s.Equal("Cherry", rows[2].Name)
}

func (s *DataStoreSuite) TestQueryTenantVisibility() {
	s.newRecord("Shared", nil)
	s.newRecord("Acme Only", func(d *models.MasterData) { d.TenantID = strPtr("acme") })

	rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{TenantID: "globex", Scoped: true}, store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Shared", rows[0].Name)

	rows, err = s.store.Query(s.ctx, s.typeID, store.Scope{TenantID: "acme", Scoped: true}, store.Filter{})
	s.Require().NoError(err)
	s.Len(rows, 2)
}

func (s *DataStoreSuite) TestQueryFilters() {
	parent := s.newRecord("Parent", nil)
	s.newRecord("Child", func(d *models.MasterData) { d.ParentID = &parent.ID })
	s.newRecord("Inactive", func(d *models.MasterData) { d.IsActive = false })

	s.Run("root only", func() {
		rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{RootOnly: true})
		s.Require().NoError(err)
		s.Len(rows, 2)
	})

	s.Run("by parent", func() {
		rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{ParentID: &parent.ID})
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Equal("Child", rows[0].Name)
	})

	s.Run("active only", func() {
		active := true
		rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{IsActive: &active})
		s.Require().NoError(err)
		s.Len(rows, 2)
	})

	s.Run("search is case-insensitive substring", func() {
		rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{Search: "chi"})
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Equal("Child", rows[0].Name)
	})
}

func (s *DataStoreSuite) TestSoftDeleteVisibility() {
	d := s.newRecord("Germany", nil)

	now := time.Now()
	d.DeletedAt = &now
	s.Require().NoError(s.store.Update(s.ctx, d))

	_, err := s.store.Find(s.ctx, s.typeID, d.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// The bookkeeping read still sees it.
	deleted, err := s.store.FindAny(s.ctx, s.typeID, d.ID)
	s.Require().NoError(err)
	s.NotNil(deleted.DeletedAt)

	rows, err := s.store.Query(s.ctx, s.typeID, store.Scope{}, store.Filter{})
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *DataStoreSuite) TestSetParentNullReRootsChildren() {
	parent := s.newRecord("Parent", nil)
	child1 := s.newRecord("Child One", func(d *models.MasterData) { d.ParentID = &parent.ID })
	child2 := s.newRecord("Child Two", func(d *models.MasterData) { d.ParentID = &parent.ID })

	s.Require().NoError(s.store.SetParentNull(s.ctx, s.typeID, parent.ID))

	for _, id := range []domain.RecordID{child1.ID, child2.ID} {
		got, err := s.store.Find(s.ctx, s.typeID, id)
		s.Require().NoError(err)
		s.Nil(got.ParentID)
	}
}

func (s *DataStoreSuite) TestStoreDoesNotAliasCallerState() {
	d := s.newRecord("Germany", nil)
	d.Name = "Mutated"

	found, err := s.store.Find(s.ctx, s.typeID, d.ID)
	s.Require().NoError(err)
	s.Equal("Germany", found.Name)
}
