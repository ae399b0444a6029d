// Package memory provides in-memory store implementations used by unit
// tests and dependency-free development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"masters/internal/masters/models"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	"masters/pkg/platform/sentinel"
)

// TypeStore is an in-memory store.TypeStore.
type TypeStore struct {
	mu    sync.RWMutex
	types map[domain.TypeID]*models.MasterType
}

func NewTypeStore() *TypeStore {
	return &TypeStore{types: make(map[domain.TypeID]*models.MasterType)}
}

func (s *TypeStore) Insert(_ context.Context, t *models.MasterType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.types {
		if existing.Deleted() || existing.Slug != t.Slug {
			continue
		}
		if sameTenant(existing.TenantID, t.TenantID) {
			return sentinel.ErrConflict
		}
	}
	s.types[t.ID] = cloneType(t)
	return nil
}

func (s *TypeStore) FindBySlug(_ context.Context, slug string, scope store.Scope) (*models.MasterType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.types {
		if t.Slug == slug && !t.Deleted() && t.VisibleTo(scope.TenantID, scope.Scoped) {
			return cloneType(t), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *TypeStore) List(_ context.Context, scope store.Scope) ([]*models.MasterType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MasterType
	for _, t := range s.types {
		if !t.Deleted() && t.VisibleTo(scope.TenantID, scope.Scoped) {
			out = append(out, cloneType(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// DataStore is an in-memory store.DataStore. Records live in an arena
// keyed by id; children holds the parent→children index kept in lockstep
// with every mutation.
type DataStore struct {
	mu       sync.RWMutex
	records  map[domain.RecordID]*models.MasterData
	children map[domain.RecordID][]domain.RecordID
}

func NewDataStore() *DataStore {
	return &DataStore{
		records:  make(map[domain.RecordID]*models.MasterData),
		children: make(map[domain.RecordID][]domain.RecordID),
	}
}

func (s *DataStore) Insert(_ context.Context, d *models.MasterData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[d.ID]; ok {
		return sentinel.ErrConflict
	}
	if d.Slug != "" {
		for _, existing := range s.records {
			if existing.Deleted() || existing.MasterTypeID != d.MasterTypeID {
				continue
			}
			if existing.Slug == d.Slug && sameTenant(existing.TenantID, d.TenantID) {
				return sentinel.ErrConflict
			}
		}
	}
	s.records[d.ID] = d.Clone()
	s.link(d)
	return nil
}

func (s *DataStore) Update(_ context.Context, d *models.MasterData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.records[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.unlink(prev)
	s.records[d.ID] = d.Clone()
	s.link(d)
	return nil
}

func (s *DataStore) Find(_ context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[id]
	if !ok || d.Deleted() || d.MasterTypeID != typeID {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *DataStore) FindAny(_ context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.records[id]
	if !ok || d.MasterTypeID != typeID {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *DataStore) Query(_ context.Context, typeID domain.TypeID, scope store.Scope, f store.Filter) ([]*models.MasterData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.MasterData
	for _, d := range s.records {
		if d.Deleted() || d.MasterTypeID != typeID {
			continue
		}
		if !d.VisibleTo(scope.TenantID, scope.Scoped) {
			continue
		}
		if !matches(d, f) {
			continue
		}
		out = append(out, d.Clone())
	}
	sortRecords(out)
	return out, nil
}

func (s *DataStore) SetParentNull(_ context.Context, typeID domain.TypeID, parentID domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, childID := range s.children[parentID] {
		child, ok := s.records[childID]
		if !ok || child.MasterTypeID != typeID {
			continue
		}
		child.ParentID = nil
	}
	delete(s.children, parentID)
	return nil
}

func (s *DataStore) link(d *models.MasterData) {
	if d.ParentID != nil {
		s.children[*d.ParentID] = append(s.children[*d.ParentID], d.ID)
	}
}

func (s *DataStore) unlink(d *models.MasterData) {
	if d.ParentID == nil {
		return
	}
	ids := s.children[*d.ParentID]
	for i, id := range ids {
		if id == d.ID {
			s.children[*d.ParentID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
}

func matches(d *models.MasterData, f store.Filter) bool {
	if f.RootOnly && d.ParentID != nil {
		return false
	}
	if f.ParentID != nil && (d.ParentID == nil || *d.ParentID != *f.ParentID) {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(d.Name), needle) &&
			!strings.Contains(strings.ToLower(d.Code), needle) &&
			!strings.Contains(strings.ToLower(d.Description), needle) {
			return false
		}
	}
	if f.Name != nil && d.Name != *f.Name {
		return false
	}
	if f.Code != nil && d.Code != *f.Code {
		return false
	}
	if f.ISOCode != nil && d.ISOCode != *f.ISOCode {
		return false
	}
	if f.IsActive != nil && d.IsActive != *f.IsActive {
		return false
	}
	return true
}

// sortRecords orders by sort_order ascending with name as the tie-breaker,
// matching the storage contract.
func sortRecords(records []*models.MasterData) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].SortOrder != records[j].SortOrder {
			return records[i].SortOrder < records[j].SortOrder
		}
		return records[i].Name < records[j].Name
	})
}

func sameTenant(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneType(t *models.MasterType) *models.MasterType {
	cp := *t
	if t.TenantID != nil {
		tid := *t.TenantID
		cp.TenantID = &tid
	}
	if t.DeletedAt != nil {
		ts := *t.DeletedAt
		cp.DeletedAt = &ts
	}
	if t.ValidationRules != nil {
		cp.ValidationRules = make(map[string]string, len(t.ValidationRules))
		for k, v := range t.ValidationRules {
			cp.ValidationRules[k] = v
		}
	}
	if t.AdditionalFields != nil {
		cp.AdditionalFields = make(map[string]any, len(t.AdditionalFields))
		for k, v := range t.AdditionalFields {
			cp.AdditionalFields[k] = v
		}
	}
	return &cp
}
