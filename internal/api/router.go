package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/catalog"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(cat *catalog.Catalog, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(cat)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Collections.
	r.Get("/collections", h.ListCollections)
	r.Get("/collections/{name}", h.GetCollection)
	r.Get("/collections/{name}/entries", h.ListEntries)
	r.Get("/collections/{name}/entries/*", h.GetEntry)

	// Builds.
	r.Get("/report", h.GetReport)
	r.Get("/builds", h.ListBuilds)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
