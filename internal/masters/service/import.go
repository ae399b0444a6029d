package service

import (
	"context"
	"log/slog"
	"time"

	"masters/internal/masters/metrics"
	"masters/internal/masters/models"
	"masters/internal/masters/store"
)

// RowError reports a single failed import row. Row is 1-based and follows
// input order.
type RowError struct {
	Row     int            `json:"row"`
	Data    map[string]any `json:"data"`
	Message string         `json:"error"`
}

// ImportResult summarizes a batch import. The summary is always complete:
// a batch where every row fails still returns normally.
type ImportResult struct {
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

// ImportOptions tune batch import behavior. SkipExisting dedups rows by
// code within the type and tenancy scope before creating; the default
// imports every row as-is.
type ImportOptions struct {
	SkipExisting bool
}

// Importer drives batched creates and flat exports through a Repository.
// Going through the Repository interface keeps cache invalidation in the
// loop when the repository is the cached wrapper.
type Importer struct {
	repo Repository
	log  *slog.Logger
}

func NewImporter(repo Repository, log *slog.Logger) *Importer {
	return &Importer{repo: repo, log: log}
}

// Import creates each row independently. A row failure is recorded and the
// batch continues; there is no cross-row rollback.
func (im *Importer) Import(ctx context.Context, typeSlug string, rows []map[string]any, opts ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}
	for i, row := range rows {
		attrs, err := models.RecordAttrsFromMap(row)
		if err == nil && opts.SkipExisting {
			var exists bool
			exists, err = im.codeExists(ctx, typeSlug, attrs)
			if err == nil && exists {
				result.Skipped++
				metrics.ImportRows.WithLabelValues("skipped").Inc()
				continue
			}
		}
		if err == nil {
			_, err = im.repo.Create(ctx, typeSlug, attrs)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{
				Row:     i + 1,
				Data:    row,
				Message: err.Error(),
			})
			metrics.ImportRows.WithLabelValues("failed").Inc()
			continue
		}
		result.Success++
		metrics.ImportRows.WithLabelValues("success").Inc()
	}
	im.log.Info("import finished",
		"type", typeSlug,
		"success", result.Success,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (im *Importer) codeExists(ctx context.Context, typeSlug string, attrs models.RecordAttrs) (bool, error) {
	if attrs.Code == nil || *attrs.Code == "" {
		return false, nil
	}
	existing, err := im.repo.Get(ctx, typeSlug, store.Filter{Code: attrs.Code})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

// exportFields is the allow-list of publicly exportable fields. Internal
// bookkeeping (tenant, type id, deletion marker, meta data) never leaves.
var exportFields = []string{
	"id", "name", "slug", "code", "iso_code", "description",
	"parent_id", "sort_order", "is_active", "additional_data",
	"created_at", "updated_at",
}

// Export returns the filtered records of a type as flat maps restricted to
// the public field allow-list.
func (im *Importer) Export(ctx context.Context, typeSlug string, f store.Filter) ([]map[string]any, error) {
	rows, err := im.repo.Get(ctx, typeSlug, f)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, d := range rows {
		out = append(out, exportRecord(d))
	}
	return out, nil
}

func exportRecord(d *models.MasterData) map[string]any {
	var parentID any
	if d.ParentID != nil {
		parentID = d.ParentID.String()
	}
	full := map[string]any{
		"id":              d.ID.String(),
		"name":            d.Name,
		"slug":            d.Slug,
		"code":            d.Code,
		"iso_code":        d.ISOCode,
		"description":     d.Description,
		"parent_id":       parentID,
		"sort_order":      d.SortOrder,
		"is_active":       d.IsActive,
		"additional_data": d.AdditionalData,
		"created_at":      d.CreatedAt.Format(time.RFC3339),
		"updated_at":      d.UpdatedAt.Format(time.RFC3339),
	}
	out := make(map[string]any, len(exportFields))
	for _, field := range exportFields {
		out[field] = full[field]
	}
	return out
}
