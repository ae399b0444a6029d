// Package seed installs the default type catalog and reference data.
package seed

import (
	"context"
	"log/slog"

	"masters/internal/masters/models"
	"masters/internal/masters/registry"
	"masters/internal/masters/service"
	"masters/internal/masters/store"
)

// DefaultTypes is the catalog installed on first boot. Geographic types
// chain countries -> states -> cities; categories are tenant-owned.
func DefaultTypes() []models.DefaultType {
	return []models.DefaultType{
		{Slug: "countries", Attrs: models.TypeAttrs{
			Name:            "Countries",
			Description:     "World countries",
			IsHierarchical:  true,
			IsGlobal:        true,
			ValidationRules: map[string]string{"name": "required", "iso_code": "required"},
		}},
		{Slug: "states", Attrs: models.TypeAttrs{
			Name:            "States",
			Description:     "States and provinces",
			IsHierarchical:  true,
			IsGlobal:        true,
			ParentTypeSlug:  "countries",
			ValidationRules: map[string]string{"name": "required"},
		}},
		{Slug: "cities", Attrs: models.TypeAttrs{
			Name:            "Cities",
			Description:     "Cities and towns",
			IsHierarchical:  true,
			IsGlobal:        true,
			ParentTypeSlug:  "states",
			ValidationRules: map[string]string{"name": "required"},
		}},
		{Slug: "categories", Attrs: models.TypeAttrs{
			Name:            "Categories",
			Description:     "Tenant-defined category tree",
			IsHierarchical:  true,
			IsGlobal:        false,
			ValidationRules: map[string]string{"name": "required"},
		}},
		{Slug: "currencies", Attrs: models.TypeAttrs{
			Name:            "Currencies",
			Description:     "ISO 4217 currencies",
			IsGlobal:        true,
			ValidationRules: map[string]string{"name": "required", "code": "required"},
		}},
		{Slug: "languages", Attrs: models.TypeAttrs{
			Name:            "Languages",
			Description:     "ISO 639-1 languages",
			IsGlobal:        true,
			ValidationRules: map[string]string{"name": "required", "code": "required"},
		}},
	}
}

type record struct {
	name    string
	code    string
	isoCode string
	extra   map[string]any
}

var defaultData = map[string][]record{
	"countries": {
		{name: "United States", code: "US", isoCode: "USA", extra: map[string]any{"phone_code": "+1", "currency": "USD"}},
		{name: "United Kingdom", code: "GB", isoCode: "GBR", extra: map[string]any{"phone_code": "+44", "currency": "GBP"}},
		{name: "Germany", code: "DE", isoCode: "DEU", extra: map[string]any{"phone_code": "+49", "currency": "EUR"}},
		{name: "France", code: "FR", isoCode: "FRA", extra: map[string]any{"phone_code": "+33", "currency": "EUR"}},
		{name: "India", code: "IN", isoCode: "IND", extra: map[string]any{"phone_code": "+91", "currency": "INR"}},
		{name: "Japan", code: "JP", isoCode: "JPN", extra: map[string]any{"phone_code": "+81", "currency": "JPY"}},
		{name: "Brazil", code: "BR", isoCode: "BRA", extra: map[string]any{"phone_code": "+55", "currency": "BRL"}},
		{name: "Australia", code: "AU", isoCode: "AUS", extra: map[string]any{"phone_code": "+61", "currency": "AUD"}},
	},
	"currencies": {
		{name: "US Dollar", code: "USD", extra: map[string]any{"symbol": "$"}},
		{name: "Euro", code: "EUR", extra: map[string]any{"symbol": "€"}},
		{name: "British Pound", code: "GBP", extra: map[string]any{"symbol": "£"}},
		{name: "Indian Rupee", code: "INR", extra: map[string]any{"symbol": "₹"}},
		{name: "Japanese Yen", code: "JPY", extra: map[string]any{"symbol": "¥"}},
	},
	"languages": {
		{name: "English", code: "en"},
		{name: "German", code: "de"},
		{name: "French", code: "fr"},
		{name: "Spanish", code: "es"},
		{name: "Hindi", code: "hi"},
		{name: "Japanese", code: "ja"},
	},
}

// Seeder installs default types and reference rows.
type Seeder struct {
	registry *registry.Registry
	repo     service.Repository
	log      *slog.Logger
}

func New(reg *registry.Registry, repo service.Repository, log *slog.Logger) *Seeder {
	return &Seeder{registry: reg, repo: repo, log: log}
}

// Run installs the default catalog and the reference rows for each
// seeded type. Rows whose code already exists are skipped, so repeated
// runs converge instead of duplicating.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.registry.Install(ctx, DefaultTypes()); err != nil {
		return err
	}
	for typeSlug, rows := range defaultData {
		seeded := 0
		for _, row := range rows {
			exists, err := s.codeExists(ctx, typeSlug, row.code)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			name, code := row.name, row.code
			attrs := models.RecordAttrs{Name: &name, Code: &code, AdditionalData: row.extra}
			if row.isoCode != "" {
				iso := row.isoCode
				attrs.ISOCode = &iso
			}
			if _, err := s.repo.Create(ctx, typeSlug, attrs); err != nil {
				return err
			}
			seeded++
		}
		if seeded > 0 {
			s.log.Info("seeded master data", "type", typeSlug, "rows", seeded)
		}
	}
	return nil
}

func (s *Seeder) codeExists(ctx context.Context, typeSlug, code string) (bool, error) {
	rows, err := s.repo.Get(ctx, typeSlug, store.Filter{Code: &code})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}
