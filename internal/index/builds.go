package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Build is one row of the build history.
type Build struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Entries   int             `json:"entries"`
	Failures  int             `json:"failures"`
	Cached    int             `json:"cached"`
	Fatal     string          `json:"fatal,omitempty"`
	Report    json.RawMessage `json:"report,omitempty"`
}

// RecordBuild appends b to the history and returns its id.
func (db *DB) RecordBuild(b Build) (int64, error) {
	report := string(b.Report)
	if report == "" {
		report = "{}"
	}
	res, err := db.conn.Exec(`
		INSERT INTO builds (run_id, started_at, duration_ms, entries, failures, cached, fatal, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.RunID, b.StartedAt.UTC(), b.Duration.Milliseconds(), b.Entries, b.Failures, b.Cached, b.Fatal, report)
	if err != nil {
		return 0, fmt.Errorf("index: record build: %w", err)
	}
	return res.LastInsertId()
}

// ListBuilds returns the most recent builds, newest first.
func (db *DB) ListBuilds(limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, run_id, started_at, duration_ms, entries, failures, cached, fatal, report
		FROM builds ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("index: list builds: %w", err)
	}
	defer rows.Close()

	var out []Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// LastBuild returns the newest build, or nil when none was recorded.
func (db *DB) LastBuild() (*Build, error) {
	row := db.conn.QueryRow(`
		SELECT id, run_id, started_at, duration_ms, entries, failures, cached, fatal, report
		FROM builds ORDER BY id DESC LIMIT 1
	`)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(s scanner) (*Build, error) {
	var (
		b      Build
		ms     int64
		report string
	)
	if err := s.Scan(&b.ID, &b.RunID, &b.StartedAt, &ms, &b.Entries, &b.Failures, &b.Cached, &b.Fatal, &report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("index: scan build: %w", err)
	}
	b.Duration = time.Duration(ms) * time.Millisecond
	b.Report = json.RawMessage(report)
	return &b, nil
}
