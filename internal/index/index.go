package index

import (
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/registry"
)

// BuildIndex defines the cache and history operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type BuildIndex interface {
	Lookup(collection, sourcePath string, ordinal int, checksum string) (models.Entry, bool, error)
	SaveOutput(out *registry.Output) error
	EntryCount() (int, error)
	RecordBuild(b Build) (int64, error)
	ListBuilds(limit int) ([]Build, error)
	LastBuild() (*Build, error)
	Close() error
}

// Verify *DB satisfies BuildIndex at compile time.
var _ BuildIndex = (*DB)(nil)
