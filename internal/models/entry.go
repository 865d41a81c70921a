// Package models defines the domain types shared by the pipeline stages.
package models

import "time"

// NoOrdinal marks a source record that is the whole file rather than one
// element of a data file.
const NoOrdinal = -1

// SourceFile is one discovered record: a content file, or one element of a
// JSON/YAML data file.
type SourceFile struct {
	Path        string // absolute path
	RelPath     string // slash-separated path relative to the content root
	Raw         []byte
	Frontmatter map[string]any
	Body        []byte
	Ordinal     int
	Checksum    string
	ModTime     time.Time
}

// IsDataRecord reports whether the record came from a data file.
func (s *SourceFile) IsDataRecord() bool {
	return s.Ordinal != NoOrdinal
}

// Entry is a validated, transformed and post-processed record.
//
// Data holds JSON-shaped values only (maps, slices, strings, numbers, bools)
// so entries survive a round trip through the build cache unchanged.
type Entry struct {
	Collection string         `json:"collection"`
	Slug       string         `json:"slug"`
	SourcePath string         `json:"source_path"`
	Ordinal    int            `json:"ordinal"`
	Checksum   string         `json:"checksum"`
	Data       map[string]any `json:"data"`
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	out := e
	out.Data = CloneMap(e.Data)
	return out
}

// String returns the string value stored under key, or "".
func (e Entry) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// CloneMap deep-copies a JSON-shaped map.
func CloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies maps and slices; other values are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Heading is a document heading recorded by the slug pass.
type Heading struct {
	ID    string
	Text  string
	Level int
}

// TOCItem is one node of a table of contents.
type TOCItem struct {
	Title string    `json:"title"`
	URL   string    `json:"url"`
	Items []TOCItem `json:"items"`
}

// Value converts the item into its JSON-shaped form.
func (t TOCItem) Value() map[string]any {
	items := make([]any, len(t.Items))
	for i, child := range t.Items {
		items[i] = child.Value()
	}
	return map[string]any{
		"title": t.Title,
		"url":   t.URL,
		"items": items,
	}
}

// TOCValue converts a table of contents into its JSON-shaped form.
func TOCValue(items []TOCItem) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item.Value()
	}
	return out
}

// Metadata holds computed reading statistics for a body.
type Metadata struct {
	ReadingTime int `json:"readingTime"`
	WordCount   int `json:"wordCount"`
}

// Value converts the metadata into its JSON-shaped form.
func (m Metadata) Value() map[string]any {
	return map[string]any{
		"readingTime": m.ReadingTime,
		"wordCount":   m.WordCount,
	}
}

// Link is a titled cross-reference attached to an entry.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Value converts the link into its JSON-shaped form.
func (l Link) Value() map[string]any {
	return map[string]any{"title": l.Title, "url": l.URL}
}
