// Package htmlpass holds the HTML-stage passes of the transform chain.
// Passes operate on an x/net/html tree rooted at a document node.
package htmlpass

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/transform"
)

// Pass is an HTML-stage pass.
type Pass = transform.Pass[*html.Node]

// DefaultPasses is the HTML stage in application order.
var DefaultPasses = []string{"slug", "highlight", "autolink"}

// Options configures the HTML-stage passes.
type Options struct {
	Highlighter *highlight.Highlighter
	Autolink    AutolinkOptions
}

// Known reports whether name is a registered HTML pass.
func Known(name string) bool {
	return slices.Contains([]string{"slug", "highlight", "autolink"}, name)
}

// Passes instantiates the named passes in the given order.
func Passes(names []string, opts Options) ([]Pass, error) {
	out := make([]Pass, 0, len(names))
	for _, name := range names {
		switch name {
		case "slug":
			out = append(out, slugPass{})
		case "highlight":
			if opts.Highlighter == nil {
				return nil, fmt.Errorf("htmlpass: highlight pass needs a highlighter")
			}
			out = append(out, &highlightPass{h: opts.Highlighter})
		case "autolink":
			p, err := newAutolinkPass(opts.Autolink)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		default:
			return nil, fmt.Errorf("htmlpass: unknown pass %q", name)
		}
	}
	return out, nil
}

// Parse parses an HTML fragment into a tree rooted at a document node.
func Parse(fragment []byte) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("htmlpass: parse: %w", err)
	}
	doc := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		doc.AppendChild(n)
	}
	return doc, nil
}

// Render serializes the children of doc.
func Render(doc *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("htmlpass: render: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// TextContent returns the concatenated text of n and its descendants.
func TextContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func headingLevel(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func isHeading(n *html.Node) bool { return headingLevel(n) > 0 }
