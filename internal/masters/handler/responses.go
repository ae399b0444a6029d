package handler

import (
	"time"

	"masters/internal/masters/models"
)

// dataResponse is the wire shape of a master data record. Internal
// bookkeeping (tenant, deletion marker) stays out of API payloads.
type dataResponse struct {
	ID             string          `json:"id"`
	MasterTypeID   string          `json:"master_type_id"`
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Code           string          `json:"code,omitempty"`
	ISOCode        string          `json:"iso_code,omitempty"`
	Description    string          `json:"description,omitempty"`
	ParentID       *string         `json:"parent_id"`
	SortOrder      int             `json:"sort_order"`
	IsActive       bool            `json:"is_active"`
	AdditionalData map[string]any  `json:"additional_data,omitempty"`
	MetaData       map[string]any  `json:"meta_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Children       []*dataResponse `json:"children,omitempty"`
}

func toDataResponse(d *models.MasterData) *dataResponse {
	resp := &dataResponse{
		ID:             d.ID.String(),
		MasterTypeID:   d.MasterTypeID.String(),
		Name:           d.Name,
		Slug:           d.Slug,
		Code:           d.Code,
		ISOCode:        d.ISOCode,
		Description:    d.Description,
		SortOrder:      d.SortOrder,
		IsActive:       d.IsActive,
		AdditionalData: d.AdditionalData,
		MetaData:       d.MetaData,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.ParentID != nil {
		pid := d.ParentID.String()
		resp.ParentID = &pid
	}
	for _, child := range d.Children {
		resp.Children = append(resp.Children, toDataResponse(child))
	}
	return resp
}

func toDataResponses(rows []*models.MasterData) []*dataResponse {
	out := make([]*dataResponse, 0, len(rows))
	for _, d := range rows {
		out = append(out, toDataResponse(d))
	}
	return out
}

type typeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	Description    string `json:"description,omitempty"`
	IsHierarchical bool   `json:"is_hierarchical"`
	IsGlobal       bool   `json:"is_global"`
	ParentTypeSlug string `json:"parent_type_slug,omitempty"`
	IsActive       bool   `json:"is_active"`
}

func toTypeResponse(t *models.MasterType) *typeResponse {
	return &typeResponse{
		ID:             t.ID.String(),
		Name:           t.Name,
		Slug:           t.Slug,
		Description:    t.Description,
		IsHierarchical: t.IsHierarchical,
		IsGlobal:       t.IsGlobal,
		ParentTypeSlug: t.ParentTypeSlug,
		IsActive:       t.IsActive,
	}
}
