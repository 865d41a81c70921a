// Package schema describes collection frontmatter declaratively and
// validates raw frontmatter mappings against it.
package schema

// Kind is the type of a schema field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindObject  Kind = "object"

	// Specialized kinds are populated by the transform chain, not read
	// from frontmatter.
	KindMarkdown Kind = "markdown"
	KindMDX      Kind = "mdx"
	KindTOC      Kind = "toc"
	KindMetadata Kind = "metadata"
)

var kindValues = []any{
	KindString, KindNumber, KindBoolean, KindEnum, KindArray, KindObject,
	KindMarkdown, KindMDX, KindTOC, KindMetadata,
}

// Specialized reports whether k is filled by the transform chain.
func (k Kind) Specialized() bool {
	switch k {
	case KindMarkdown, KindMDX, KindTOC, KindMetadata:
		return true
	}
	return false
}

// Field describes one frontmatter field.
type Field struct {
	Name     string   `yaml:"name" json:"name"`
	Kind     Kind     `yaml:"kind" json:"kind"`
	Optional bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Values   []string `yaml:"values,omitempty" json:"values,omitempty"`
	Items    *Field   `yaml:"items,omitempty" json:"items,omitempty"`
	Fields   []Field  `yaml:"fields,omitempty" json:"fields,omitempty"`
	Default  any      `yaml:"default,omitempty" json:"default,omitempty"`
}

// Schema is the ordered top-level field list of a collection.
type Schema struct {
	Fields []Field `yaml:"fields" json:"fields"`
}

// New builds a schema from fields in declaration order.
func New(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// Specialized returns the top-level fields filled by the transform chain.
func (s Schema) Specialized() []Field {
	var out []Field
	for _, f := range s.Fields {
		if f.Kind.Specialized() {
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether the schema declares a top-level field of kind k.
func (s Schema) Has(k Kind) bool {
	for _, f := range s.Fields {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// String declares a string field.
func String(name string) Field { return Field{Name: name, Kind: KindString} }

// Number declares a numeric field.
func Number(name string) Field { return Field{Name: name, Kind: KindNumber} }

// Boolean declares a boolean field.
func Boolean(name string) Field { return Field{Name: name, Kind: KindBoolean} }

// Enum declares a string field restricted to values.
func Enum(name string, values ...string) Field {
	return Field{Name: name, Kind: KindEnum, Values: values}
}

// Array declares an array whose elements match items.
func Array(name string, items Field) Field {
	return Field{Name: name, Kind: KindArray, Items: &items}
}

// Object declares a nested object.
func Object(name string, fields ...Field) Field {
	return Field{Name: name, Kind: KindObject, Fields: fields}
}

// Markdown declares the plain rendered body.
func Markdown(name string) Field { return Field{Name: name, Kind: KindMarkdown} }

// MDX declares the body compiled through the full transform chain.
func MDX(name string) Field { return Field{Name: name, Kind: KindMDX} }

// TOC declares the table of contents of the body.
func TOC(name string) Field { return Field{Name: name, Kind: KindTOC} }

// Metadata declares the reading statistics of the body.
func Metadata(name string) Field { return Field{Name: name, Kind: KindMetadata} }

// Opt marks the field optional.
func (f Field) Opt() Field {
	f.Optional = true
	return f
}

// WithDefault marks the field optional with a default value.
func (f Field) WithDefault(v any) Field {
	f.Optional = true
	f.Default = v
	return f
}
