package models

import (
	"strconv"
	"strings"

	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
)

// RecordAttrsFromMap decodes a loosely-typed row (JSON object or CSV row)
// into RecordAttrs. Values arrive as strings from CSV and as native types
// from JSON, so scalars are coerced. Unrecognized keys are ignored.
func RecordAttrsFromMap(row map[string]any) (RecordAttrs, error) {
	var attrs RecordAttrs
	for key, raw := range row {
		var err error
		switch key {
		case "name":
			attrs.Name, err = stringField(raw, key)
		case "slug":
			attrs.Slug, err = stringField(raw, key)
		case "code":
			attrs.Code, err = stringField(raw, key)
		case "iso_code":
			attrs.ISOCode, err = stringField(raw, key)
		case "description":
			attrs.Description, err = stringField(raw, key)
		case "tenant_id":
			attrs.TenantID, err = stringField(raw, key)
		case "parent_id":
			if raw == nil || raw == "" {
				attrs.ClearParent = true
				continue
			}
			s, serr := stringField(raw, key)
			if serr != nil {
				err = serr
				break
			}
			var id domain.RecordID
			id, err = domain.ParseRecordID(*s)
			if err == nil {
				attrs.ParentID = &id
			}
		case "sort_order":
			attrs.SortOrder, err = intField(raw, key)
		case "is_active":
			attrs.IsActive, err = boolField(raw, key)
		case "additional_data":
			attrs.AdditionalData, err = mapField(raw, key)
		case "meta_data":
			attrs.MetaData, err = mapField(raw, key)
		}
		if err != nil {
			return RecordAttrs{}, err
		}
	}
	return attrs, nil
}

func stringField(raw any, key string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be a string", key)
	}
	return &s, nil
}

func intField(raw any, key string) (*int, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return &v, nil
	case float64:
		n := int(v)
		return &n, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be an integer", key)
		}
		return &n, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be an integer", key)
	}
}

func boolField(raw any, key string) (*bool, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return &v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be a boolean", key)
		}
		return &b, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be a boolean", key)
	}
}

func mapField(raw any, key string) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "field %q must be an object", key)
	}
	return m, nil
}
