package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/registry"
)

// Lookup returns the cached entry for a source record when its stored
// checksum equals checksum.
func (db *DB) Lookup(collection, sourcePath string, ordinal int, checksum string) (models.Entry, bool, error) {
	var (
		slug, stored, data string
	)
	err := db.conn.QueryRow(`
		SELECT slug, checksum, data FROM entries
		WHERE collection = ? AND source_path = ? AND ordinal = ?
	`, collection, sourcePath, ordinal).Scan(&slug, &stored, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, false, nil
	}
	if err != nil {
		return models.Entry{}, false, fmt.Errorf("index: lookup: %w", err)
	}
	if stored != checksum {
		return models.Entry{}, false, nil
	}
	doc, err := parser.DecodeJSON([]byte(data))
	if err != nil {
		return models.Entry{}, false, fmt.Errorf("index: decode %s: %w", sourcePath, err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return models.Entry{}, false, fmt.Errorf("index: decode %s: data is %T", sourcePath, doc)
	}
	return models.Entry{
		Collection: collection,
		Slug:       slug,
		SourcePath: sourcePath,
		Ordinal:    ordinal,
		Checksum:   stored,
		Data:       m,
	}, true, nil
}

// SaveOutput replaces the cached entries of every collection in out within
// a transaction, so rows of removed files disappear.
func (db *DB) SaveOutput(out *registry.Output) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT INTO entries (collection, source_path, ordinal, slug, checksum, data, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, name := range out.Names() {
		col, err := out.Collection(name)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM entries WHERE collection = ?`, name); err != nil {
			return fmt.Errorf("index: clear %s: %w", name, err)
		}
		for _, e := range col.Entries() {
			data, err := json.Marshal(e.Data)
			if err != nil {
				return fmt.Errorf("index: encode %s: %w", e.SourcePath, err)
			}
			if _, err := stmt.Exec(name, e.SourcePath, e.Ordinal, e.Slug, e.Checksum, string(data), now); err != nil {
				return fmt.Errorf("index: insert entry: %w", err)
			}
		}
	}
	return tx.Commit()
}

// EntryCount returns the number of cached entries.
func (db *DB) EntryCount() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count entries: %w", err)
	}
	return n, nil
}
