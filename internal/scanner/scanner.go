// Package scanner discovers the source files of a collection and yields
// them as parsed records.
package scanner

import (
	"errors"
	"iter"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// Match returns the sorted, de-duplicated root-relative paths matched by
// any of patterns.
func Match(store storage.Provider, patterns []string) ([]string, error) {
	var all []string
	for _, p := range patterns {
		matches, err := store.Glob(p)
		if err != nil {
			return nil, err
		}
		all = append(all, matches...)
	}
	slices.Sort(all)
	return slices.Compact(all), nil
}

// Scan yields one record per matched content file, or one per element of a
// matched data file. Per-file failures are yielded alongside a record that
// carries only the paths; iteration continues with the next file. A failing
// glob is yielded once with a nil record and ends the scan.
//
// The sequence is single-pass: each range re-globs the store.
func Scan(store storage.Provider, patterns []string) iter.Seq2[*models.SourceFile, error] {
	return func(yield func(*models.SourceFile, error) bool) {
		paths, err := Match(store, patterns)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, rel := range paths {
			if !scanFile(store, rel, yield) {
				return
			}
		}
	}
}

func scanFile(store storage.Provider, rel string, yield func(*models.SourceFile, error) bool) bool {
	stub := &models.SourceFile{
		Path:    filepath.Join(store.Root(), filepath.FromSlash(rel)),
		RelPath: rel,
		Ordinal: models.NoOrdinal,
	}

	raw, err := store.Read(rel)
	if err != nil {
		return yield(stub, &apperr.ReadError{Path: rel, Err: err})
	}
	stub.Raw = raw
	if info, err := store.Stat(rel); err == nil {
		stub.ModTime = info.ModTime()
	}

	if parser.IsDataFile(rel) {
		return scanData(stub, yield)
	}

	res, err := parser.Parse(raw)
	if err != nil {
		return yield(stub, withPath(err, rel))
	}
	stub.Frontmatter = res.Frontmatter
	stub.Body = res.Body
	stub.Checksum = checksum.Sum(raw)
	return yield(stub, nil)
}

func scanData(stub *models.SourceFile, yield func(*models.SourceFile, error) bool) bool {
	records, multi, err := parser.ParseData(stub.RelPath, stub.Raw)
	if err != nil {
		return yield(stub, withPath(err, stub.RelPath))
	}
	for i, fm := range records {
		rec := *stub
		rec.Frontmatter = fm
		rec.Checksum = checksum.Sum(stub.Raw)
		if multi {
			rec.Ordinal = i
			rec.Checksum = checksum.SumParts(stub.Raw, []byte(strconv.Itoa(i)))
		}
		if !yield(&rec, nil) {
			return false
		}
	}
	return true
}

func withPath(err error, rel string) error {
	var fmErr *apperr.FrontmatterParseError
	if errors.As(err, &fmErr) && fmErr.Path == "" {
		fmErr.Path = rel
	}
	return err
}
