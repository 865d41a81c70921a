package htmlpass

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/transform"
)

// highlightPass replaces pre > code with highlighted markup. Code without
// a language is rendered as plain text lines.
type highlightPass struct {
	h *highlight.Highlighter
}

func (p *highlightPass) Name() string { return "highlight" }

func (p *highlightPass) Apply(doc *html.Node, ann *transform.Annotations) (*html.Node, error) {
	pres := findAll(doc, func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == atom.Pre })
	for _, pre := range pres {
		code := firstElement(pre)
		if code == nil || code.DataAtom != atom.Code {
			continue
		}
		lang := codeLanguage(code)
		meta, _ := getAttr(code, "data-meta")
		out, err := p.h.Highlight(TextContent(code), lang, meta)
		if err != nil {
			return nil, transform.Errorf(p.Name(), "%v", err)
		}
		pre.Parent.InsertBefore(out, pre)
		pre.Parent.RemoveChild(pre)
		ann.CodeBlocks++
	}
	return doc, nil
}

func firstElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

func codeLanguage(code *html.Node) string {
	class, _ := getAttr(code, "class")
	for _, c := range strings.Fields(class) {
		if lang, ok := strings.CutPrefix(c, "language-"); ok {
			return lang
		}
	}
	return ""
}
