// Package storage defines the root-scoped file-system abstraction.
package storage

import "io/fs"

// Provider is the interface for root-relative file operations.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Glob returns the slash-separated paths (relative to root) of regular
	// files matching a doublestar pattern, sorted.
	Glob(pattern string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Stat returns file info for path (relative to root).
	Stat(path string) (fs.FileInfo, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
