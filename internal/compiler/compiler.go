// Package compiler runs one document body through the two-stage transform
// chain and derives the computed fields (TOC, reading metadata).
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/htmlpass"
	"github.com/starford/quire/internal/markdown"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/transform"
)

// DefaultTOCMaxDepth is the deepest heading level listed in a TOC.
const DefaultTOCMaxDepth = 3

// WordsPerMinute is the reading speed behind Metadata.ReadingTime.
const WordsPerMinute = 200

// Options selects the passes and their settings.
type Options struct {
	// MarkdownPasses and HTMLPasses default to the full chains when nil.
	MarkdownPasses []string
	HTMLPasses     []string
	TOCMaxDepth    int
	Highlight      highlight.Options
	Autolink       htmlpass.AutolinkOptions
}

// Compiler is safe for concurrent use.
type Compiler struct {
	md          goldmark.Markdown
	plain       goldmark.Markdown
	mdStage     *transform.Stage[*markdown.Doc]
	htmlStage   *transform.Stage[*html.Node]
	tocDepth    int
	fingerprint string
}

// Document is the compiled form of one body.
type Document struct {
	HTML       string
	Headings   []models.Heading
	TOC        []models.TOCItem
	Metadata   models.Metadata
	CodeBlocks int
}

// New builds a compiler. Unknown pass names, themes or autolink behaviors
// are reported as *apperr.ConfigError.
func New(opts Options) (*Compiler, error) {
	mdNames := opts.MarkdownPasses
	if mdNames == nil {
		mdNames = markdown.DefaultPasses
	}
	htmlNames := opts.HTMLPasses
	if htmlNames == nil {
		htmlNames = htmlpass.DefaultPasses
	}

	mdPasses, err := markdown.Passes(mdNames)
	if err != nil {
		return nil, &apperr.ConfigError{Subject: "markdown.passes", Err: err}
	}

	hl, err := highlight.New(opts.Highlight)
	if err != nil {
		return nil, err
	}
	htmlPasses, err := htmlpass.Passes(htmlNames, htmlpass.Options{Highlighter: hl, Autolink: opts.Autolink})
	if err != nil {
		return nil, &apperr.ConfigError{Subject: "markdown.html_passes", Err: err}
	}

	depth := opts.TOCMaxDepth
	if depth == 0 {
		depth = DefaultTOCMaxDepth
	}
	if depth < 2 || depth > 6 {
		return nil, &apperr.ConfigError{Subject: "markdown.toc_max_depth", Reason: fmt.Sprintf("must be between 2 and 6, got %d", depth)}
	}

	resolved := opts
	resolved.MarkdownPasses, resolved.HTMLPasses, resolved.TOCMaxDepth = mdNames, htmlNames, depth
	resolved.Highlight.Theme = hl.Theme()
	fp, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("compiler: fingerprint: %w", err)
	}

	plain := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	return &Compiler{
		md:          markdown.NewEngine(mdPasses),
		plain:       plain,
		mdStage:     transform.NewStage("markdown", mdPasses...),
		htmlStage:   transform.NewStage("html", htmlPasses...),
		tocDepth:    depth,
		fingerprint: checksum.Sum(fp),
	}, nil
}

// Fingerprint identifies the compiler configuration. Two compilers with
// the same fingerprint produce the same output for the same body.
func (c *Compiler) Fingerprint() string { return c.fingerprint }

// Passes returns the pass names of both stages in application order.
func (c *Compiler) Passes() (mdPasses, htmlPasses []string) {
	return c.mdStage.Passes(), c.htmlStage.Passes()
}

// Compile runs body through the Markdown stage, renders it, and runs the
// result through the HTML stage. Any pass failure is a
// *apperr.TransformError and no document is returned.
func (c *Compiler) Compile(body []byte) (*Document, error) {
	ann := transform.NewAnnotations()

	doc := markdown.Parse(c.md, body)
	doc, err := c.mdStage.Run(doc, ann)
	if err != nil {
		return nil, err
	}
	rendered, err := markdown.Render(c.md, doc)
	if err != nil {
		return nil, &apperr.TransformError{Pass: "render", Reason: err.Error()}
	}

	tree, err := htmlpass.Parse(rendered)
	if err != nil {
		return nil, &apperr.TransformError{Pass: "render", Reason: err.Error()}
	}
	tree, err = c.htmlStage.Run(tree, ann)
	if err != nil {
		return nil, err
	}
	out, err := htmlpass.Render(tree)
	if err != nil {
		return nil, &apperr.TransformError{Pass: "render", Reason: err.Error()}
	}

	return &Document{
		HTML:       string(out),
		Headings:   ann.Headings,
		TOC:        BuildTOC(ann.Headings, c.tocDepth),
		Metadata:   Measure(body),
		CodeBlocks: ann.CodeBlocks,
	}, nil
}

// RenderPlain renders body as CommonMark with GFM only.
func (c *Compiler) RenderPlain(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := c.plain.Convert(body, &buf); err != nil {
		return "", &apperr.TransformError{Pass: "render", Reason: err.Error()}
	}
	return buf.String(), nil
}

// BuildTOC nests headings of levels 2..maxDepth. A heading deeper than its
// predecessor nests under it; a heading with no shallower predecessor is
// a top-level item.
func BuildTOC(headings []models.Heading, maxDepth int) []models.TOCItem {
	type frame struct {
		level int
		items *[]models.TOCItem
	}
	var root []models.TOCItem
	stack := []frame{{level: 1, items: &root}}
	for _, h := range headings {
		if h.Level < 2 || h.Level > maxDepth {
			continue
		}
		for len(stack) > 1 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].items
		*parent = append(*parent, models.TOCItem{Title: h.Text, URL: "#" + h.ID, Items: []models.TOCItem{}})
		item := &(*parent)[len(*parent)-1]
		stack = append(stack, frame{level: h.Level, items: &item.Items})
	}
	if root == nil {
		root = []models.TOCItem{}
	}
	return root
}

// Measure counts the words of body and estimates its reading time.
func Measure(body []byte) models.Metadata {
	words := 0
	for _, f := range strings.Fields(string(body)) {
		if strings.IndexFunc(f, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			words++
		}
	}
	minutes := 0
	if words > 0 {
		minutes = int(math.Ceil(float64(words) / WordsPerMinute))
	}
	return models.Metadata{ReadingTime: minutes, WordCount: words}
}
