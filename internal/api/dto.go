package api

import (
	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
)

// CollectionInfo describes a collection (aliased from the domain layer).
type CollectionInfo = catalog.CollectionInfo

// Entry is a single collection entry (aliased from the domain layer).
type Entry = models.Entry

// Build is one recorded build (aliased from the index layer).
type Build = index.Build

// CollectionListResponse wraps the collection listing.
type CollectionListResponse struct {
	Collections []CollectionInfo `json:"collections" validate:"required"`
}

// EntryListResponse wraps paginated entry listings.
type EntryListResponse struct {
	Entries []Entry `json:"entries" validate:"required"`
	Total   int     `json:"total" example:"42" validate:"required"`
	Limit   int     `json:"limit" example:"50"`
	Offset  int     `json:"offset" example:"0"`
}

// BuildListResponse wraps the build history.
type BuildListResponse struct {
	Builds []Build `json:"builds" validate:"required"`
}
