// Package registry accumulates validated entries per collection and
// freezes them into an immutable, queryable output.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Registry is safe for concurrent Add calls.
type Registry struct {
	mu     sync.Mutex
	order  []string
	byName map[string]map[string]models.Entry
	frozen bool
}

// New returns a registry for the named collections, kept in that order.
func New(names ...string) *Registry {
	r := &Registry{byName: make(map[string]map[string]models.Entry, len(names))}
	for _, name := range names {
		if _, ok := r.byName[name]; ok {
			continue
		}
		r.order = append(r.order, name)
		r.byName[name] = make(map[string]models.Entry)
	}
	return r
}

// Add stores e under its slug. A second entry with the same slug in the
// same collection is a *apperr.DuplicateSlugError.
func (r *Registry) Add(collection string, e models.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return apperr.ErrFrozen
	}
	entries, ok := r.byName[collection]
	if !ok {
		return fmt.Errorf("registry: unknown collection %q", collection)
	}
	if prev, dup := entries[e.Slug]; dup {
		paths := []string{prev.SourcePath, e.SourcePath}
		sort.Strings(paths)
		return &apperr.DuplicateSlugError{Collection: collection, Slug: e.Slug, Paths: paths}
	}
	e.Collection = collection
	entries[e.Slug] = e
	return nil
}

// Len returns the number of entries added to collection so far.
func (r *Registry) Len(collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName[collection])
}

// Freeze builds the output and rejects later writes.
func (r *Registry) Freeze() *Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true

	out := &Output{
		order:       append([]string(nil), r.order...),
		collections: make(map[string]*Collection, len(r.order)),
	}
	for _, name := range r.order {
		entries := r.byName[name]
		c := &Collection{name: name, bySlug: make(map[string]int, len(entries))}
		c.entries = make([]models.Entry, 0, len(entries))
		for _, e := range entries {
			c.entries = append(c.entries, e)
		}
		sort.Slice(c.entries, func(i, j int) bool { return c.entries[i].Slug < c.entries[j].Slug })
		for i, e := range c.entries {
			c.bySlug[e.Slug] = i
		}
		out.collections[name] = c
	}
	return out
}

// Output is the frozen result of a run. Accessors return copies.
type Output struct {
	order       []string
	collections map[string]*Collection
}

// Names returns the collection names in definition order.
func (o *Output) Names() []string {
	return append([]string(nil), o.order...)
}

// Collection returns the named collection.
func (o *Output) Collection(name string) (*Collection, error) {
	c, ok := o.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", name, apperr.ErrNotFound)
	}
	return c, nil
}

// Len returns the total number of entries.
func (o *Output) Len() int {
	n := 0
	for _, c := range o.collections {
		n += len(c.entries)
	}
	return n
}

// Empty returns an output with the named, empty collections.
func Empty(names ...string) *Output {
	return New(names...).Freeze()
}

// Collection is the frozen entry list of one collection, sorted by slug.
type Collection struct {
	name    string
	entries []models.Entry
	bySlug  map[string]int
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Len returns the number of entries.
func (c *Collection) Len() int { return len(c.entries) }

// Entries returns deep copies of the entries, sorted by slug.
func (c *Collection) Entries() []models.Entry {
	out := make([]models.Entry, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Clone()
	}
	return out
}

// Entry returns a copy of the entry with the given slug.
func (c *Collection) Entry(slug string) (models.Entry, error) {
	i, ok := c.bySlug[slug]
	if !ok {
		return models.Entry{}, fmt.Errorf("entry %q in %s: %w", slug, c.name, apperr.ErrNotFound)
	}
	return c.entries[i].Clone(), nil
}
