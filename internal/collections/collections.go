// Package collections defines the content collections: where their files
// live, their frontmatter schema, and the hook that post-processes entries.
package collections

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/schema"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// Definition describes one collection. It is immutable once configured.
type Definition struct {
	Name     string        `yaml:"name" json:"name"`
	Patterns []string      `yaml:"patterns" json:"patterns"`
	Schema   schema.Schema `yaml:"schema" json:"schema"`
	Hook     string        `yaml:"hook,omitempty" json:"hook,omitempty"`
}

// Validate validates the definition, not including its schema.
func (d *Definition) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Name, validation.Required, validation.Match(namePattern)),
		validation.Field(&d.Patterns, validation.Required, validation.Each(validation.Required, validation.By(validPattern))),
		validation.Field(&d.Hook, validation.By(knownHook)),
	)
}

func validPattern(value any) error {
	p, _ := value.(string)
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid glob %q", p)
	}
	return nil
}

func knownHook(value any) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if _, ok := LookupHook(name); !ok {
		return fmt.Errorf("unknown hook %q", name)
	}
	return nil
}

// Check validates every definition and its schema. Names must be unique.
// All failures are *apperr.ConfigError.
func Check(defs []Definition) error {
	if len(defs) == 0 {
		return &apperr.ConfigError{Subject: "collections", Reason: "none defined"}
	}
	seen := make(map[string]struct{}, len(defs))
	for i := range defs {
		d := &defs[i]
		if err := d.Validate(); err != nil {
			return &apperr.ConfigError{Subject: "collection " + d.Name, Err: err}
		}
		if _, dup := seen[d.Name]; dup {
			return &apperr.ConfigError{Subject: "collection " + d.Name, Reason: "defined twice"}
		}
		seen[d.Name] = struct{}{}
		if err := schema.Check(d.Schema); err != nil {
			return &apperr.ConfigError{Subject: "collection " + d.Name, Err: err}
		}
	}
	return nil
}

// Names returns the collection names in definition order.
func Names(defs []Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

type fileFormat struct {
	Collections []Definition `yaml:"collections"`
}

// Load decodes a collections file.
func Load(data []byte) ([]Definition, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &apperr.ConfigError{Subject: "collections file", Reason: "invalid YAML", Err: err}
	}
	if err := Check(f.Collections); err != nil {
		return nil, err
	}
	return f.Collections, nil
}

// Builtin returns the documentation site's collections.
func Builtin() []Definition {
	return []Definition{
		{
			Name:     "docs",
			Patterns: []string{"content/docs/**/*.mdx"},
			Hook:     "docs",
			Schema: schema.New(
				schema.String("title"),
				schema.String("description"),
				schema.Metadata("metadata"),
				schema.Markdown("content"),
				schema.String("status").Opt(),
				schema.TOC("toc"),
				schema.MDX("code"),
				schema.Boolean("hideToc").Opt(),
				schema.Array("links", schema.Object("", schema.String("title"), schema.String("url"))).Opt(),
			),
		},
		{
			Name:     "notes",
			Patterns: []string{"content/notes/**/*.mdx"},
			Schema: schema.New(
				schema.String("title"),
				schema.String("description"),
				schema.Metadata("metadata"),
				schema.Markdown("content"),
				schema.MDX("code"),
			),
		},
		{
			Name:     "showcases",
			Patterns: []string{"content/showcases.json"},
			Schema: schema.New(
				schema.String("title"),
				schema.String("description").Opt(),
				schema.String("url"),
				schema.String("image"),
			),
		},
		{
			Name:     "blog",
			Patterns: []string{"content/blog/**/*.mdx"},
			Hook:     "slug",
			Schema: schema.New(
				schema.String("title"),
				schema.Enum("type", "release", "announcement", "article"),
				schema.String("description"),
				schema.Metadata("metadata"),
				schema.MDX("content"),
				schema.Array("authors", schema.String("")),
				schema.String("publishedAt"),
				schema.TOC("toc"),
			),
		},
	}
}
