// Package parser splits source files into YAML frontmatter and body, and
// decodes JSON/YAML data files into records.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/quire/internal/apperr"
)

const delim = "---"

var bom = []byte("\xef\xbb\xbf")

// ErrMissingClosingDelimiter indicates the file starts with a frontmatter
// delimiter but never closes it.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Result holds the output of parsing a Markdown/MDX file.
type Result struct {
	Frontmatter    map[string]any
	Body           []byte
	HadFrontmatter bool
}

// Parse extracts the YAML frontmatter mapping and the body from raw bytes.
// A file without a leading delimiter has an empty mapping and is all body.
func Parse(data []byte) (*Result, error) {
	block, body, had, err := splitFrontmatter(data)
	if err != nil {
		return nil, &apperr.FrontmatterParseError{Reason: "unterminated block", Err: err}
	}
	if !had {
		return &Result{Frontmatter: map[string]any{}, Body: body}, nil
	}
	fm, err := parseYAML(block)
	if err != nil {
		return nil, err
	}
	return &Result{Frontmatter: fm, Body: body, HadFrontmatter: true}, nil
}

// splitFrontmatter separates the block between the leading delimiter line
// and the next delimiter line from the body that follows it.
func splitFrontmatter(data []byte) (block, body []byte, had bool, err error) {
	data = bytes.TrimPrefix(data, bom)
	first, rest, more := cutLine(data)
	if !isDelimiter(first) {
		return nil, data, false, nil
	}
	if !more {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	offset := 0
	for {
		line, next, more := cutLine(rest[offset:])
		if isDelimiter(line) {
			return rest[:offset], next, true, nil
		}
		if !more {
			return nil, nil, false, ErrMissingClosingDelimiter
		}
		offset += len(line) + 1
	}
}

// cutLine returns the first line (without its "\n"), the remainder, and
// whether a newline was found.
func cutLine(b []byte) (line, rest []byte, found bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return b, nil, false
	}
	return b[:i], b[i+1:], true
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == delim
}

func parseYAML(block []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(block)) == 0 {
		return map[string]any{}, nil
	}
	doc, err := decodeYAML(block)
	if err != nil {
		return nil, &apperr.FrontmatterParseError{Reason: "invalid YAML", Err: err}
	}
	switch v := doc.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		return nil, &apperr.FrontmatterParseError{Reason: fmt.Sprintf("block must be a mapping, got %T", doc)}
	}
}

// decodeYAML decodes a YAML document into JSON-shaped values. Timestamps
// stay strings, as under the YAML core schema.
func decodeYAML(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return nil, nil
	}
	untagTimestamps(&node)
	var doc any
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func untagTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		untagTimestamps(c)
	}
}

// IsDataFile reports whether path names a JSON or YAML data file.
func IsDataFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// ParseData decodes a data file into records. A top-level array yields one
// record per element; a top-level object yields a single record and
// multi is false.
func ParseData(path string, data []byte) (records []map[string]any, multi bool, err error) {
	var doc any
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		v, err := DecodeJSON(data)
		if err != nil {
			return nil, false, &apperr.FrontmatterParseError{Reason: "invalid JSON", Err: err}
		}
		doc = v
	} else {
		v, err := decodeYAML(data)
		if err != nil {
			return nil, false, &apperr.FrontmatterParseError{Reason: "invalid YAML", Err: err}
		}
		doc = v
	}

	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}, false, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, true, &apperr.FrontmatterParseError{Reason: fmt.Sprintf("record %d is not an object", i)}
			}
			out = append(out, m)
		}
		return out, true, nil
	default:
		return nil, false, &apperr.FrontmatterParseError{Reason: fmt.Sprintf("data file must hold an object or an array, got %T", doc)}
	}
}

// DecodeJSON decodes a JSON document into JSON-shaped values, keeping
// integers as int.
func DecodeJSON(data []byte) (any, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return normalizeJSON(doc), nil
}

// normalizeJSON turns json.Number values into int or float64 so JSON and
// YAML sources produce the same value types.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalizeJSON(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = normalizeJSON(item)
		}
		return t
	case json.Number:
		if i, err := t.Int64(); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
