// Package markdown holds the Markdown-stage passes of the transform chain.
// Passes operate on a goldmark AST; passes that need parser support also
// implement goldmark.Extender and are installed when the engine is built.
package markdown

import (
	"bytes"
	"fmt"
	"slices"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/starford/quire/internal/transform"
)

// Doc is a parsed Markdown document and the source its segments point into.
type Doc struct {
	Node   ast.Node
	Source []byte
}

// Pass is a Markdown-stage pass.
type Pass = transform.Pass[*Doc]

// DefaultPasses is the Markdown stage in application order.
var DefaultPasses = []string{"directive", "gfm", "callout", "code-title", "code-group", "steps", "card"}

var registry = map[string]func() Pass{
	"directive":  func() Pass { return directivePass{} },
	"gfm":        func() Pass { return gfmPass{} },
	"callout":    func() Pass { return calloutPass{} },
	"code-title": func() Pass { return codeTitlePass{} },
	"code-group": func() Pass { return codeGroupPass{} },
	"steps":      func() Pass { return stepsPass{} },
	"card":       func() Pass { return cardPass{} },
}

// Known reports whether name is a registered Markdown pass.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns every registered pass name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Passes instantiates the named passes in the given order.
func Passes(names []string) ([]Pass, error) {
	out := make([]Pass, 0, len(names))
	for _, name := range names {
		mk, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("markdown: unknown pass %q", name)
		}
		out = append(out, mk())
	}
	return out, nil
}

// NewEngine builds a goldmark engine with the parser extensions the passes
// need. Raw HTML in the source is kept.
func NewEngine(passes []Pass) goldmark.Markdown {
	exts := []goldmark.Extender{Nodes}
	for _, p := range passes {
		if ext, ok := p.(goldmark.Extender); ok {
			exts = append(exts, ext)
		}
	}
	return goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
}

// Parse parses src into a document tree.
func Parse(md goldmark.Markdown, src []byte) *Doc {
	return &Doc{Node: md.Parser().Parse(text.NewReader(src)), Source: src}
}

// Render renders doc to HTML.
func Render(md goldmark.Markdown, doc *Doc) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, doc.Source, doc.Node); err != nil {
		return nil, fmt.Errorf("markdown: render: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
