// Package handler wires the masters API onto a chi router. The handlers
// stay thin: decode, delegate to the repository, translate domain errors.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"masters/internal/masters/models"
	"masters/internal/masters/registry"
	"masters/internal/masters/service"
	"masters/internal/masters/store"
	"masters/pkg/domain"
	dErrors "masters/pkg/domain-errors"
)

// Flusher is the administrative cache flush, satisfied by the cached
// repository. A nil Flusher disables the flush route.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Handler serves the masters HTTP API.
type Handler struct {
	repo     service.Repository
	registry *registry.Registry
	importer *service.Importer
	flusher  Flusher
	log      *slog.Logger
}

func New(repo service.Repository, reg *registry.Registry, importer *service.Importer, flusher Flusher, log *slog.Logger) *Handler {
	return &Handler{repo: repo, registry: reg, importer: importer, flusher: flusher, log: log}
}

// Register mounts the API routes. The write guard wraps mutating routes;
// reads stay open to any tenant-scoped caller.
func (h *Handler) Register(r chi.Router, writeGuard func(http.Handler) http.Handler) {
	r.Get("/types", h.listTypes)
	r.Route("/{type}", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/tree", h.tree)
		r.Get("/children", h.children)
		r.Get("/children/{parentID}", h.children)
		r.Get("/search", h.search)
		r.Get("/export", h.export)
		r.Get("/{id}", h.show)

		r.Group(func(r chi.Router) {
			if writeGuard != nil {
				r.Use(writeGuard)
			}
			r.Post("/", h.create)
			r.Post("/import", h.importRows)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.remove)
		})
	})
	if h.flusher != nil {
		guarded := chi.NewRouter()
		if writeGuard != nil {
			guarded.Use(writeGuard)
		}
		guarded.Post("/", h.flushCache)
		r.Mount("/cache/flush", guarded)
	}
}

func (h *Handler) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.registry.Active(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]*typeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, toTypeResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out, "count": len(out)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.repo.Get(r.Context(), typeSlug, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  toDataResponses(rows),
		"type":  typeSlug,
		"count": len(rows),
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.repo.Find(r.Context(), typeSlug, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": toDataResponse(d)})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	attrs, err := decodeAttrs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.repo.Create(r.Context(), typeSlug, attrs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": toDataResponse(d)})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	attrs, err := decodeAttrs(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.repo.Update(r.Context(), typeSlug, id, attrs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": toDataResponse(d)})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.repo.Delete(r.Context(), typeSlug, id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "deleted"})
}

func (h *Handler) tree(w http.ResponseWriter, r *http.Request) {
	h.writeLevel(w, r, nil)
}

func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
	var parentID *domain.RecordID
	if raw := chi.URLParam(r, "parentID"); raw != "" {
		id, err := domain.ParseRecordID(raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		parentID = &id
	}
	h.writeLevel(w, r, parentID)
}

func (h *Handler) writeLevel(w http.ResponseWriter, r *http.Request, parentID *domain.RecordID) {
	typeSlug := chi.URLParam(r, "type")
	rows, err := h.repo.GetHierarchical(r.Context(), typeSlug, parentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := map[string]any{"data": toDataResponses(rows), "type": typeSlug}
	if parentID != nil {
		resp["parent_id"] = parentID.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	query := r.URL.Query().Get("q")
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.repo.Search(r.Context(), typeSlug, query, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  toDataResponses(rows),
		"query": query,
		"count": len(rows),
	})
}

func (h *Handler) importRows(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")

	var (
		rows []map[string]any
		err  error
	)
	if r.URL.Query().Get("format") == "csv" {
		rows, err = service.ReadCSVRows(r.Body)
	} else {
		rows, err = service.ReadJSONRows(r.Body)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	opts := service.ImportOptions{
		SkipExisting: r.URL.Query().Get("skip_existing") == "true",
	}
	result, err := h.importer.Import(r.Context(), typeSlug, rows, opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	typeSlug := chi.URLParam(r, "type")
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	records, err := h.importer.Export(r.Context(), typeSlug, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  records,
		"type":  typeSlug,
		"count": len(records),
	})
}

func (h *Handler) flushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.flusher.Flush(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.InfoContext(r.Context(), "cache flushed by admin request")
	writeJSON(w, http.StatusOK, map[string]any{"message": "cache flushed"})
}

// filterFromQuery lifts the supported filter keys from the query string.
// Unrecognized keys are ignored.
func filterFromQuery(q url.Values) (store.Filter, error) {
	var f store.Filter
	if q.Has("parent_id") {
		raw := q.Get("parent_id")
		if raw == "" || raw == "null" {
			f.RootOnly = true
		} else {
			id, err := domain.ParseRecordID(raw)
			if err != nil {
				return f, err
			}
			f.ParentID = &id
		}
	}
	f.Search = q.Get("search")
	for key, dst := range map[string]**string{"name": &f.Name, "code": &f.Code, "iso_code": &f.ISOCode} {
		if q.Has(key) {
			v := q.Get(key)
			*dst = &v
		}
	}
	if q.Has("is_active") {
		b, err := strconv.ParseBool(q.Get("is_active"))
		if err != nil {
			return f, dErrors.New(dErrors.CodeBadRequest, "is_active must be a boolean")
		}
		f.IsActive = &b
	}
	return f, nil
}

func decodeAttrs(r *http.Request) (models.RecordAttrs, error) {
	var row map[string]any
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		return models.RecordAttrs{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return models.RecordAttrsFromMap(row)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError translates domain error codes into HTTP statuses with a
// consistent JSON envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		status = http.StatusNotFound
	case dErrors.CodeValidation, dErrors.CodeIntegrity:
		status = http.StatusUnprocessableEntity
	case dErrors.CodeConflict:
		status = http.StatusConflict
	case dErrors.CodeBadRequest:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error":   string(dErrors.CodeOf(err)),
		"message": err.Error(),
	})
}
