// Package pipeline runs every collection through scan, validation, the
// transform chain and its hook, and collects the results in a registry.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/compiler"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/registry"
	"github.com/starford/quire/internal/scanner"
	"github.com/starford/quire/internal/schema"
	"github.com/starford/quire/internal/storage"
)

// DefaultContentDir is the content directory relative to the root.
const DefaultContentDir = "content"

// Config holds the run settings shared by every collection.
type Config struct {
	// ContentDir is stripped from paths when deriving slugs.
	ContentDir string
	// Workers bounds the files processed concurrently within a collection.
	Workers int
	Links   collections.LinkConfig
}

// Cache returns a previously built entry for an unchanged source record.
type Cache interface {
	Lookup(collection, sourcePath string, ordinal int, checksum string) (models.Entry, bool, error)
}

// Pipeline is reusable: each Run re-scans the store.
type Pipeline struct {
	store    storage.Provider
	defs     []collections.Definition
	compiler *compiler.Compiler
	cfg      Config
	cache    Cache
	logger   *slog.Logger

	// keys holds the per-collection configuration fingerprint.
	keys map[string][]byte
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCache enables entry reuse for unchanged records.
func WithCache(c Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New validates the definitions and builds a pipeline. Invalid
// configuration is a *apperr.ConfigError and nothing is scanned.
func New(store storage.Provider, defs []collections.Definition, comp *compiler.Compiler, cfg Config, opts ...Option) (*Pipeline, error) {
	if err := collections.Check(defs); err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, &apperr.ConfigError{Subject: "pipeline", Reason: "no compiler"}
	}
	if cfg.ContentDir == "" {
		cfg.ContentDir = DefaultContentDir
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	p := &Pipeline{
		store:    store,
		defs:     defs,
		compiler: comp,
		cfg:      cfg,
		logger:   slog.Default(),
		keys:     make(map[string][]byte, len(defs)),
	}
	for _, o := range opts {
		o(p)
	}
	for _, d := range defs {
		key, err := json.Marshal(struct {
			Def        collections.Definition
			Compiler   string
			ContentDir string
			Links      collections.LinkConfig
		}{d, comp.Fingerprint(), cfg.ContentDir, cfg.Links})
		if err != nil {
			return nil, fmt.Errorf("pipeline: fingerprint %s: %w", d.Name, err)
		}
		p.keys[d.Name] = key
	}
	return p, nil
}

// Definitions returns the collection definitions in processing order.
func (p *Pipeline) Definitions() []collections.Definition {
	return append([]collections.Definition(nil), p.defs...)
}

// Run processes every collection in definition order. Per-file failures
// are recorded in the report and the run continues. A duplicate slug or a
// cancelled context aborts the run and no output is returned.
func (p *Pipeline) Run(ctx context.Context) (*registry.Output, *Report, error) {
	start := time.Now()
	names := collections.Names(p.defs)
	reg := registry.New(names...)
	col := &collector{}
	rep := &Report{ID: uuid.NewString(), StartedAt: start.UTC(), Counts: make(map[string]int, len(names))}
	logger := p.logger.With(slog.String("run_id", rep.ID))

	finish := func(err error) {
		rep.Failures = col.sorted(names)
		rep.Cached = col.cached
		rep.Duration = time.Since(start)
		if err != nil {
			rep.Fatal = err.Error()
		}
	}

	for _, def := range p.defs {
		if err := p.runCollection(ctx, def, reg, col, logger); err != nil {
			finish(err)
			logger.Error("pipeline: run aborted", slog.String("collection", def.Name), slog.String("error", err.Error()))
			return nil, rep, err
		}
		rep.Counts[def.Name] = reg.Len(def.Name)
		logger.Debug("pipeline: collection done", slog.String("collection", def.Name), slog.Int("entries", rep.Counts[def.Name]))
	}

	out := reg.Freeze()
	finish(nil)
	logger.Info("pipeline: run complete",
		slog.Int("entries", out.Len()),
		slog.Int("failures", len(rep.Failures)),
		slog.Int("cached", rep.Cached),
		slog.Duration("duration", rep.Duration),
	)
	return out, rep, nil
}

func (p *Pipeline) runCollection(ctx context.Context, def collections.Definition, reg *registry.Registry, col *collector, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for f, err := range scanner.Scan(p.store, def.Patterns) {
		if gctx.Err() != nil {
			break
		}
		if err != nil {
			path, ordinal := "", models.NoOrdinal
			if f != nil {
				path, ordinal = f.RelPath, f.Ordinal
			}
			failure := col.fail(def.Name, path, ordinal, err)
			logger.Warn("pipeline: scan failed", slog.String("collection", def.Name), slog.String("path", path), slog.String("error", failure.Message))
			continue
		}
		g.Go(func() error {
			e, err := p.process(def, f, col, logger)
			if err != nil {
				failure := col.fail(def.Name, f.RelPath, f.Ordinal, err)
				logger.Warn("pipeline: file failed",
					slog.String("collection", def.Name),
					slog.String("path", location(f)),
					slog.String("kind", string(failure.Kind)),
					slog.String("error", failure.Message),
				)
				return nil
			}
			return reg.Add(def.Name, e)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// location names a source record in error messages: the path, plus
// "#<ordinal>" for data file records.
func location(f *models.SourceFile) string {
	if f.IsDataRecord() {
		return f.RelPath + "#" + strconv.Itoa(f.Ordinal)
	}
	return f.RelPath
}

// process turns one source record into an entry.
func (p *Pipeline) process(def collections.Definition, f *models.SourceFile, col *collector, logger *slog.Logger) (models.Entry, error) {
	key := checksum.SumParts(p.keys[def.Name], []byte(f.Checksum))
	if p.cache != nil {
		e, ok, err := p.cache.Lookup(def.Name, f.RelPath, f.Ordinal, key)
		if err != nil {
			logger.Warn("pipeline: cache lookup failed", slog.String("path", f.RelPath), slog.String("error", err.Error()))
		} else if ok {
			col.hit()
			return e, nil
		}
	}

	res, err := schema.Validate(def.Schema, f.Frontmatter)
	if err != nil {
		var vErr *apperr.ValidationError
		if errors.As(err, &vErr) {
			vErr.Path = location(f)
		}
		return models.Entry{}, err
	}

	data := res.Data
	if err := p.fill(data, res.Deferred, f.Body); err != nil {
		var te *apperr.TransformError
		if errors.As(err, &te) {
			te.Path = location(f)
		}
		return models.Entry{}, err
	}

	e := models.Entry{
		Collection: def.Name,
		SourcePath: f.RelPath,
		Ordinal:    f.Ordinal,
		Checksum:   key,
		Data:       data,
	}
	if def.Hook == "" {
		e.Slug = collections.DefaultSlug(f.RelPath, p.cfg.ContentDir, f.Ordinal)
		return e, nil
	}
	hook, _ := collections.LookupHook(def.Hook)
	return collections.RunHook(hook, def.Name, e, collections.HookMeta{
		SourcePath: f.Path,
		RelPath:    f.RelPath,
		ContentDir: p.cfg.ContentDir,
		Links:      p.cfg.Links,
	})
}

// fill computes the specialized fields. The full chain runs at most once
// per file.
func (p *Pipeline) fill(data map[string]any, deferred []schema.Field, body []byte) error {
	var doc *compiler.Document
	compiled := func() (*compiler.Document, error) {
		if doc != nil {
			return doc, nil
		}
		d, err := p.compiler.Compile(body)
		if err != nil {
			return nil, err
		}
		doc = d
		return doc, nil
	}

	for _, field := range deferred {
		switch field.Kind {
		case schema.KindMDX:
			d, err := compiled()
			if err != nil {
				return err
			}
			data[field.Name] = d.HTML
		case schema.KindTOC:
			d, err := compiled()
			if err != nil {
				return err
			}
			data[field.Name] = models.TOCValue(d.TOC)
		case schema.KindMarkdown:
			html, err := p.compiler.RenderPlain(body)
			if err != nil {
				return err
			}
			data[field.Name] = html
		case schema.KindMetadata:
			data[field.Name] = compiler.Measure(body).Value()
		}
	}
	return nil
}
