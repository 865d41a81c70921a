// Package catalog serves read-only queries over the latest successful build
// and records every build.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/output"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/registry"
	"github.com/starford/quire/internal/schema"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
)

// DefaultLimit is the page size of entry listings.
const DefaultLimit = 50

// Builder produces collection output. *pipeline.Pipeline satisfies it.
type Builder interface {
	Run(ctx context.Context) (*registry.Output, *pipeline.Report, error)
	Definitions() []collections.Definition
}

// Notifier receives build notifications. *sse.Broker satisfies it.
type Notifier interface {
	PublishBuild(failed bool, summary sse.BuildSummary)
}

// Snapshot is the output of one successful build.
type Snapshot struct {
	Output  *registry.Output
	Report  *pipeline.Report
	BuiltAt time.Time
}

// CollectionInfo describes one collection of the current snapshot.
type CollectionInfo struct {
	Name     string        `json:"name"`
	Patterns []string      `json:"patterns"`
	Hook     string        `json:"hook,omitempty"`
	Count    int           `json:"count"`
	Schema   schema.Schema `json:"schema"`
}

// ListOptions pages and filters an entry listing.
type ListOptions struct {
	Limit  int
	Offset int
	// Prefix keeps entries whose slug starts with it.
	Prefix string
}

// Catalog is safe for concurrent use. Queries read the snapshot published
// by the last successful Rebuild; a failed run leaves it untouched.
type Catalog struct {
	builder  Builder
	defs     []collections.Definition
	db       index.BuildIndex
	out      storage.Provider
	notifier Notifier
	logger   *slog.Logger

	snap atomic.Pointer[Snapshot]
	last atomic.Pointer[pipeline.Report]
	mu   sync.Mutex // serializes rebuilds
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithIndex stores entries and build history in db.
func WithIndex(db index.BuildIndex) Option {
	return func(c *Catalog) { c.db = db }
}

// WithOutput writes JSON artifacts to store after each successful build.
func WithOutput(store storage.Provider) Option {
	return func(c *Catalog) { c.out = store }
}

// WithNotifier publishes build events.
func WithNotifier(n Notifier) Option {
	return func(c *Catalog) { c.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// New creates a catalog with an empty snapshot.
func New(b Builder, opts ...Option) *Catalog {
	c := &Catalog{builder: b, defs: b.Definitions(), logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	c.snap.Store(&Snapshot{Output: registry.Empty(collections.Names(c.defs)...)})
	return c
}

// Rebuild runs a build and, when it is not fatal, swaps in the new
// snapshot, persists it and writes the artifacts. The report is returned
// for every run that got as far as producing one.
func (c *Catalog) Rebuild(ctx context.Context) (*pipeline.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out, rep, runErr := c.builder.Run(ctx)
	if rep != nil {
		c.last.Store(rep)
	}
	if runErr == nil {
		c.snap.Store(&Snapshot{Output: out, Report: rep, BuiltAt: time.Now().UTC()})
		if err := c.persist(out); err != nil {
			runErr = err
		}
	}

	if rep != nil {
		c.record(out, rep)
		c.notify(out, rep, runErr != nil)
	}
	if runErr != nil {
		return rep, runErr
	}
	return rep, nil
}

func (c *Catalog) persist(out *registry.Output) error {
	if c.db != nil {
		if err := c.db.SaveOutput(out); err != nil {
			return fmt.Errorf("catalog: save cache: %w", err)
		}
	}
	if c.out != nil {
		if _, err := output.Write(c.out, out, time.Now()); err != nil {
			return fmt.Errorf("catalog: write output: %w", err)
		}
	}
	return nil
}

func (c *Catalog) record(out *registry.Output, rep *pipeline.Report) {
	if c.db == nil {
		return
	}
	data, err := json.Marshal(rep)
	if err != nil {
		c.logger.Warn("catalog: encode report", slog.String("error", err.Error()))
		return
	}
	b := index.Build{
		RunID:     rep.ID,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
		Failures:  len(rep.Failures),
		Cached:    rep.Cached,
		Fatal:     rep.Fatal,
		Report:    data,
	}
	if out != nil {
		b.Entries = out.Len()
	}
	if _, err := c.db.RecordBuild(b); err != nil {
		c.logger.Warn("catalog: record build", slog.String("error", err.Error()))
	}
}

func (c *Catalog) notify(out *registry.Output, rep *pipeline.Report, failed bool) {
	if c.notifier == nil {
		return
	}
	s := sse.BuildSummary{
		RunID:    rep.ID,
		Failures: len(rep.Failures),
		Cached:   rep.Cached,
		Counts:   rep.Counts,
		Fatal:    rep.Fatal,
		Duration: rep.Duration.String(),
	}
	if out != nil {
		s.Entries = out.Len()
	}
	c.notifier.PublishBuild(failed, s)
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Report returns the report of the most recent run, successful or not.
func (c *Catalog) Report() (*pipeline.Report, error) {
	rep := c.last.Load()
	if rep == nil {
		return nil, fmt.Errorf("catalog: no build yet: %w", apperr.ErrNotFound)
	}
	return rep, nil
}

// Collections describes every collection in definition order.
func (c *Catalog) Collections() []CollectionInfo {
	out := c.snap.Load().Output
	infos := make([]CollectionInfo, 0, len(c.defs))
	for _, d := range c.defs {
		info := CollectionInfo{Name: d.Name, Patterns: d.Patterns, Hook: d.Hook, Schema: d.Schema}
		if col, err := out.Collection(d.Name); err == nil {
			info.Count = col.Len()
		}
		infos = append(infos, info)
	}
	return infos
}

// Collection describes one collection.
func (c *Catalog) Collection(name string) (*CollectionInfo, error) {
	for _, info := range c.Collections() {
		if info.Name == name {
			return &info, nil
		}
	}
	return nil, fmt.Errorf("catalog: collection %q: %w", name, apperr.ErrNotFound)
}

// Entries returns a page of a collection's entries sorted by slug and the
// number of entries matching the filter.
func (c *Catalog) Entries(name string, opts ListOptions) ([]models.Entry, int, error) {
	col, err := c.snap.Load().Output.Collection(name)
	if err != nil {
		return nil, 0, err
	}
	all := col.Entries()
	if opts.Prefix != "" {
		kept := all[:0]
		for _, e := range all {
			if strings.HasPrefix(e.Slug, opts.Prefix) {
				kept = append(kept, e)
			}
		}
		all = kept
	}
	total := len(all)

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(opts.Offset, 0)
	if offset >= total {
		return []models.Entry{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

// Entry returns one entry by slug.
func (c *Catalog) Entry(name, slug string) (models.Entry, error) {
	col, err := c.snap.Load().Output.Collection(name)
	if err != nil {
		return models.Entry{}, err
	}
	return col.Entry(slug)
}

// Builds returns the most recent builds, newest first. Without an index
// only the last report is known.
func (c *Catalog) Builds(limit int) ([]index.Build, error) {
	if c.db != nil {
		return c.db.ListBuilds(limit)
	}
	rep := c.last.Load()
	if rep == nil {
		return []index.Build{}, nil
	}
	return []index.Build{{
		RunID:     rep.ID,
		StartedAt: rep.StartedAt,
		Duration:  rep.Duration,
		Entries:   sum(rep.Counts),
		Failures:  len(rep.Failures),
		Cached:    rep.Cached,
		Fatal:     rep.Fatal,
	}}, nil
}

func sum(counts map[string]int) int {
	n := 0
	for _, v := range counts {
		n += v
	}
	return n
}
