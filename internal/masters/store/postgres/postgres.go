// Package postgres implements the store contracts on PostgreSQL via
// database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"masters/internal/masters/models"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	"masters/pkg/platform/sentinel"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema applies the reference schema. Intended for tests and dev
// mode; production deployments own their migrations.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply masters schema: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// scopePredicate returns the visibility condition for a tenancy scope.
// Shared rows (NULL tenant) are always visible; owned rows only in their
// tenant's scope.
func scopePredicate(scope store.Scope, args *[]any, col string) string {
	if !scope.Scoped {
		return col + " IS NULL"
	}
	*args = append(*args, scope.TenantID)
	return fmt.Sprintf("(%s IS NULL OR %s = $%d)", col, col, len(*args))
}

// TypeStore is the PostgreSQL store.TypeStore.
type TypeStore struct {
	db *sql.DB
}

func NewTypeStore(db *sql.DB) *TypeStore {
	return &TypeStore{db: db}
}

func (s *TypeStore) Insert(ctx context.Context, t *models.MasterType) error {
	rules, err := marshalJSON(stringMapToAny(t.ValidationRules))
	if err != nil {
		return err
	}
	fields, err := marshalJSON(t.AdditionalFields)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO master_types (
			id, name, slug, description, is_hierarchical, is_global,
			parent_type_slug, validation_rules, additional_fields,
			is_active, tenant_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(t.ID), t.Name, t.Slug, t.Description, t.IsHierarchical, t.IsGlobal,
		nullString(t.ParentTypeSlug), rules, fields,
		t.IsActive, t.TenantID, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert master type: %w", err)
	}
	return nil
}

const typeColumns = `
	id, name, slug, description, is_hierarchical, is_global,
	parent_type_slug, validation_rules, additional_fields,
	is_active, tenant_id, created_at, updated_at, deleted_at
`

func (s *TypeStore) FindBySlug(ctx context.Context, slug string, scope store.Scope) (*models.MasterType, error) {
	args := []any{slug}
	query := fmt.Sprintf(`
		SELECT %s FROM master_types
		WHERE slug = $1 AND deleted_at IS NULL AND %s
	`, typeColumns, scopePredicate(scope, &args, "tenant_id"))

	t, err := scanType(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find master type: %w", err)
	}
	return t, nil
}

func (s *TypeStore) List(ctx context.Context, scope store.Scope) ([]*models.MasterType, error) {
	var args []any
	query := fmt.Sprintf(`
		SELECT %s FROM master_types
		WHERE deleted_at IS NULL AND %s
		ORDER BY slug
	`, typeColumns, scopePredicate(scope, &args, "tenant_id"))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list master types: %w", err)
	}
	defer rows.Close()

	var out []*models.MasterType
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan master type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanType(row rowScanner) (*models.MasterType, error) {
	var (
		t          models.MasterType
		id         uuid.UUID
		desc       sql.NullString
		parentSlug sql.NullString
		rules      []byte
		fields     []byte
		deletedAt  sql.NullTime
	)
	err := row.Scan(
		&id, &t.Name, &t.Slug, &desc, &t.IsHierarchical, &t.IsGlobal,
		&parentSlug, &rules, &fields,
		&t.IsActive, &t.TenantID, &t.CreatedAt, &t.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.ID = domain.TypeID(id)
	t.Description = desc.String
	t.ParentTypeSlug = parentSlug.String
	if deletedAt.Valid {
		ts := deletedAt.Time
		t.DeletedAt = &ts
	}
	if err := unmarshalStringMap(rules, &t.ValidationRules); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(fields, &t.AdditionalFields); err != nil {
		return nil, err
	}
	return &t, nil
}

// DataStore is the PostgreSQL store.DataStore.
type DataStore struct {
	db *sql.DB
}

func NewDataStore(db *sql.DB) *DataStore {
	return &DataStore{db: db}
}

const dataColumns = `
	id, master_type_id, name, slug, code, iso_code, description,
	parent_id, sort_order, is_active, additional_data, meta_data,
	tenant_id, created_at, updated_at, deleted_at
`

func (s *DataStore) Insert(ctx context.Context, d *models.MasterData) error {
	additional, err := marshalJSON(d.AdditionalData)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(d.MetaData)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO master_data (
			id, master_type_id, name, slug, code, iso_code, description,
			parent_id, sort_order, is_active, additional_data, meta_data,
			tenant_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.MasterTypeID), d.Name, d.Slug, d.Code, d.ISOCode, d.Description,
		recordIDValue(d.ParentID), d.SortOrder, d.IsActive, additional, meta,
		d.TenantID, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert master data: %w", err)
	}
	return nil
}

func (s *DataStore) Update(ctx context.Context, d *models.MasterData) error {
	additional, err := marshalJSON(d.AdditionalData)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(d.MetaData)
	if err != nil {
		return err
	}
	query := `
		UPDATE master_data SET
			name = $2, slug = $3, code = $4, iso_code = $5, description = $6,
			parent_id = $7, sort_order = $8, is_active = $9,
			additional_data = $10, meta_data = $11, updated_at = $12, deleted_at = $13
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), d.Name, d.Slug, d.Code, d.ISOCode, d.Description,
		recordIDValue(d.ParentID), d.SortOrder, d.IsActive,
		additional, meta, d.UpdatedAt, d.DeletedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update master data: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update master data: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *DataStore) Find(ctx context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error) {
	return s.findRow(ctx, typeID, id, false)
}

func (s *DataStore) FindAny(ctx context.Context, typeID domain.TypeID, id domain.RecordID) (*models.MasterData, error) {
	return s.findRow(ctx, typeID, id, true)
}

func (s *DataStore) findRow(ctx context.Context, typeID domain.TypeID, id domain.RecordID, includeDeleted bool) (*models.MasterData, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM master_data
		WHERE id = $1 AND master_type_id = $2
	`, dataColumns)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	d, err := scanData(s.db.QueryRowContext(ctx, query, uuid.UUID(id), uuid.UUID(typeID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find master data: %w", err)
	}
	return d, nil
}

func (s *DataStore) Query(ctx context.Context, typeID domain.TypeID, scope store.Scope, f store.Filter) ([]*models.MasterData, error) {
	args := []any{uuid.UUID(typeID)}
	where := "master_type_id = $1 AND deleted_at IS NULL AND " + scopePredicate(scope, &args, "tenant_id")

	if f.RootOnly {
		where += " AND parent_id IS NULL"
	} else if f.ParentID != nil {
		args = append(args, uuid.UUID(*f.ParentID))
		where += fmt.Sprintf(" AND parent_id = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d OR description ILIKE $%d)", n, n, n)
	}
	for col, val := range map[string]*string{"name": f.Name, "code": f.Code, "iso_code": f.ISOCode} {
		if val != nil {
			args = append(args, *val)
			where += fmt.Sprintf(" AND %s = $%d", col, len(args))
		}
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where += fmt.Sprintf(" AND is_active = $%d", len(args))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM master_data
		WHERE %s
		ORDER BY sort_order ASC, name ASC
	`, dataColumns, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query master data: %w", err)
	}
	defer rows.Close()

	var out []*models.MasterData
	for rows.Next() {
		d, err := scanData(rows)
		if err != nil {
			return nil, fmt.Errorf("scan master data: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *DataStore) SetParentNull(ctx context.Context, typeID domain.TypeID, parentID domain.RecordID) error {
	query := `
		UPDATE master_data
		SET parent_id = NULL
		WHERE master_type_id = $1 AND parent_id = $2
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(typeID), uuid.UUID(parentID)); err != nil {
		return fmt.Errorf("re-root children: %w", err)
	}
	return nil
}

func scanData(row rowScanner) (*models.MasterData, error) {
	var (
		d          models.MasterData
		id         uuid.UUID
		typeID     uuid.UUID
		parentID   uuid.NullUUID
		additional []byte
		meta       []byte
		deletedAt  sql.NullTime
	)
	err := row.Scan(
		&id, &typeID, &d.Name, &d.Slug, &d.Code, &d.ISOCode, &d.Description,
		&parentID, &d.SortOrder, &d.IsActive, &additional, &meta,
		&d.TenantID, &d.CreatedAt, &d.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ID = domain.RecordID(id)
	d.MasterTypeID = domain.TypeID(typeID)
	if parentID.Valid {
		pid := domain.RecordID(parentID.UUID)
		d.ParentID = &pid
	}
	if deletedAt.Valid {
		ts := deletedAt.Time
		d.DeletedAt = &ts
	}
	if err := unmarshalJSON(additional, &d.AdditionalData); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(meta, &d.MetaData); err != nil {
		return nil, err
	}
	return &d, nil
}

func recordIDValue(id *domain.RecordID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalJSON(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, dst *map[string]any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

func unmarshalStringMap(b []byte, dst *map[string]string) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

func stringMapToAny(m map[string]string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
