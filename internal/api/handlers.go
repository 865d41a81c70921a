package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/catalog"
)

// Handler holds API route handlers.
type Handler struct {
	cat *catalog.Catalog
}

// NewHandler creates a new Handler.
func NewHandler(cat *catalog.Catalog) *Handler {
	return &Handler{cat: cat}
}

// entrySlug extracts the slug from the URL (everything after /entries/).
// Supports encoded slashes from OpenAPI clients (e.g. docs%2Fbutton).
func entrySlug(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func writeLookupError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	slog.Error(msg, slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

// ListCollections handles GET /api/collections.
//
//	@Summary		List collections with their schemas and entry counts
//	@Tags			collections
//	@Produce		json
//	@Success		200		{object}	CollectionListResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) ListCollections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: h.cat.Collections()})
}

// GetCollection handles GET /api/collections/{name}.
//
//	@Summary		Describe one collection
//	@Tags			collections
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Success		200		{object}	CollectionInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name} [get]
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := h.cat.Collection(chi.URLParam(r, "name"))
	if err != nil {
		writeLookupError(w, "get collection failed", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ListEntries handles GET /api/collections/{name}/entries.
//
//	@Summary		List entries sorted by slug
//	@Tags			entries
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			prefix	query		string	false	"Slug prefix filter"
//	@Success		200		{object}	EntryListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = catalog.DefaultLimit
	}
	offset = max(offset, 0)

	entries, total, err := h.cat.Entries(chi.URLParam(r, "name"), catalog.ListOptions{
		Limit:  limit,
		Offset: offset,
		Prefix: q.Get("prefix"),
	})
	if err != nil {
		writeLookupError(w, "list entries failed", err)
		return
	}
	writeJSON(w, http.StatusOK, EntryListResponse{Entries: entries, Total: total, Limit: limit, Offset: offset})
}

// GetEntry handles GET /api/collections/{name}/entries/*.
//
//	@Summary		Get a single entry by slug
//	@Tags			entries
//	@Produce		json
//	@Param			name	path		string	true	"Collection name"
//	@Param			slug	path		string	true	"Entry slug"
//	@Param			If-None-Match	header	string	false	"Entry checksum from a previous response"
//	@Success		200		{object}	Entry
//	@Success		304
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/{name}/entries/{slug} [get]
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	slug := entrySlug(r)
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("slug is required"))
		return
	}
	e, err := h.cat.Entry(chi.URLParam(r, "name"), slug)
	if err != nil {
		writeLookupError(w, "get entry failed", err)
		return
	}
	etag := `"` + e.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && (match == etag || strings.Trim(match, `"`) == e.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// GetReport handles GET /api/report.
//
//	@Summary		Report of the most recent build
//	@Tags			builds
//	@Produce		json
//	@Success		200		{object}	pipeline.Report
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) GetReport(w http.ResponseWriter, _ *http.Request) {
	rep, err := h.cat.Report()
	if err != nil {
		writeLookupError(w, "get report failed", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ListBuilds handles GET /api/builds.
//
//	@Summary		Recent builds, newest first
//	@Tags			builds
//	@Produce		json
//	@Param			limit	query		int		false	"Number of builds"
//	@Success		200		{object}	BuildListResponse
//	@Security		BearerAuth
//	@Router			/builds [get]
func (h *Handler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	builds, err := h.cat.Builds(limit)
	if err != nil {
		writeLookupError(w, "list builds failed", err)
		return
	}
	if builds == nil {
		builds = []Build{}
	}
	writeJSON(w, http.StatusOK, BuildListResponse{Builds: builds})
}
