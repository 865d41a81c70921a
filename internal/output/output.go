// Package output writes the collection output as JSON artifacts.
package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/registry"
	"github.com/starford/quire/internal/storage"
)

// ManifestFile lists the written collections.
const ManifestFile = "manifest.json"

// Manifest describes one set of written artifacts.
type Manifest struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Collections []string       `json:"collections"`
	Counts      map[string]int `json:"counts"`
	Files       []string       `json:"files"`
}

// FileName returns the artifact name of a collection.
func FileName(collection string) string {
	return collection + ".json"
}

// Write stores one JSON array per collection and then the manifest. Each
// file is written atomically; readers never see a partial artifact.
func Write(store storage.Provider, out *registry.Output, now time.Time) (*Manifest, error) {
	m := &Manifest{
		GeneratedAt: now.UTC(),
		Collections: out.Names(),
		Counts:      make(map[string]int),
	}
	for _, name := range m.Collections {
		col, err := out.Collection(name)
		if err != nil {
			return nil, err
		}
		entries := col.Entries()
		if entries == nil {
			entries = []models.Entry{}
		}
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("output: encode %s: %w", name, err)
		}
		file := FileName(name)
		if err := store.Write(file, append(data, '\n')); err != nil {
			return nil, fmt.Errorf("output: write %s: %w", file, err)
		}
		m.Counts[name] = len(entries)
		m.Files = append(m.Files, file)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("output: encode manifest: %w", err)
	}
	if err := store.Write(ManifestFile, append(data, '\n')); err != nil {
		return nil, fmt.Errorf("output: write manifest: %w", err)
	}
	return m, nil
}

// Read loads the artifact of one collection.
func Read(store storage.Provider, collection string) ([]models.Entry, error) {
	data, err := store.Read(FileName(collection))
	if err != nil {
		return nil, err
	}
	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("output: decode %s: %w", collection, err)
	}
	return entries, nil
}
