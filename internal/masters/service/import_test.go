package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"masters/internal/masters/models"
	"masters/internal/masters/registry"
	"masters/internal/masters/store"
	"masters/internal/masters/store/memory"
)

type ImportSuite struct {
	suite.Suite
	svc      *Service
	importer *Importer
	ctx      context.Context
}

func TestImportSuite(t *testing.T) {
	suite.Run(t, new(ImportSuite))
}

func (s *ImportSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(memory.NewTypeStore(), log)
	s.svc = New(reg, memory.NewDataStore(), log)
	s.importer = NewImporter(s.svc, log)
	s.ctx = context.Background()

	_, _, err := reg.Upsert(s.ctx, "countries", models.TypeAttrs{Name: "Countries", IsGlobal: true})
	s.Require().NoError(err)
}

func (s *ImportSuite) TestImportContinuesPastFailures() {
	rows := []map[string]any{
		{"name": "Germany", "code": "DE"},
		{"code": "XX"}, // no name
		{"name": "France", "code": "FR"},
	}

	result, err := s.importer.Import(s.ctx, "countries", rows, ImportOptions{})
	s.Require().NoError(err)

	s.Equal(2, result.Success)
	s.Equal(1, result.Failed)
	s.Require().Len(result.Errors, 1)
	s.Equal(2, result.Errors[0].Row, "row numbers are 1-based input positions")
	s.Equal(rows[1], result.Errors[0].Data)
	s.NotEmpty(result.Errors[0].Message)

	stored, err := s.svc.Get(s.ctx, "countries", store.Filter{})
	s.Require().NoError(err)
	s.Len(stored, 2)
}

func (s *ImportSuite) TestImportAllRowsFailStillReturnsSummary() {
	rows := []map[string]any{{"code": "A"}, {"code": "B"}}

	result, err := s.importer.Import(s.ctx, "countries", rows, ImportOptions{})
	s.Require().NoError(err)
	s.Equal(0, result.Success)
	s.Equal(2, result.Failed)
	s.Len(result.Errors, 2)
}

func (s *ImportSuite) TestSkipExisting() {
	_, err := s.svc.Create(s.ctx, "countries", models.RecordAttrs{Name: strPtr("Germany"), Code: strPtr("DE")})
	s.Require().NoError(err)

	rows := []map[string]any{
		{"name": "Germany Again", "code": "DE"},
		{"name": "France", "code": "FR"},
	}

	s.Run("skips rows whose code exists", func() {
		result, err := s.importer.Import(s.ctx, "countries", rows, ImportOptions{SkipExisting: true})
		s.Require().NoError(err)
		s.Equal(1, result.Skipped)
		s.Equal(1, result.Success)
		s.Equal(0, result.Failed)
	})

	s.Run("without the option duplicates fail on slug conflict", func() {
		result, err := s.importer.Import(s.ctx, "countries", []map[string]any{
			{"name": "France", "code": "FR"},
		}, ImportOptions{})
		s.Require().NoError(err)
		s.Equal(1, result.Failed)
	})
}

func (s *ImportSuite) TestExportAllowList() {
	_, err := s.svc.Create(s.ctx, "countries", models.RecordAttrs{
		Name:           strPtr("Germany"),
		Code:           strPtr("DE"),
		ISOCode:        strPtr("DEU"),
		TenantID:       strPtr("acme"),
		AdditionalData: map[string]any{"phone_code": "+49"},
		MetaData:       map[string]any{"internal": "secret"},
	})
	s.Require().NoError(err)

	out, err := s.importer.Export(s.ctx, "countries", store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(out, 1)

	record := out[0]
	s.Equal("Germany", record["name"])
	s.Equal("DE", record["code"])
	s.Equal("DEU", record["iso_code"])
	s.NotEmpty(record["created_at"])

	// Internal bookkeeping never leaves.
	s.NotContains(record, "tenant_id")
	s.NotContains(record, "meta_data")
	s.NotContains(record, "master_type_id")
	s.NotContains(record, "deleted_at")
}

func (s *ImportSuite) TestImportRoundTripsThroughExport() {
	rows := []map[string]any{{"name": "Japan", "code": "JP", "sort_order": float64(5)}}
	result, err := s.importer.Import(s.ctx, "countries", rows, ImportOptions{})
	s.Require().NoError(err)
	s.Equal(1, result.Success)

	out, err := s.importer.Export(s.ctx, "countries", store.Filter{})
	s.Require().NoError(err)
	s.Require().Len(out, 1)
	s.Equal("japan", out[0]["slug"])
	s.Equal(5, out[0]["sort_order"])
}

func TestReadJSONRows(t *testing.T) {
	rows, err := ReadJSONRows(strings.NewReader(`[{"name":"Germany","sort_order":3}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Germany" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestReadJSONRowsRejectsNonArray(t *testing.T) {
	if _, err := ReadJSONRows(strings.NewReader(`{"name":"Germany"}`)); err == nil {
		t.Fatal("expected error for non-array payload")
	}
}

func TestReadCSVRows(t *testing.T) {
	input := "name,code,sort_order\nGermany,DE,1\nFrance,FR,2\n"
	rows, err := ReadCSVRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["name"] != "Germany" || rows[0]["code"] != "DE" {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if rows[1]["sort_order"] != "2" {
		t.Fatalf("CSV values stay strings, got %#v", rows[1]["sort_order"])
	}
}

func TestReadCSVRowsEmptyInput(t *testing.T) {
	rows, err := ReadCSVRows(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != nil {
		t.Fatalf("expected nil rows, got %#v", rows)
	}
}
