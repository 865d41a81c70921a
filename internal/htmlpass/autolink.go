package htmlpass

import (
	"fmt"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quire/internal/transform"
)

// Autolink behaviors.
const (
	BehaviorWrap    = "wrap"
	BehaviorPrepend = "prepend"
	BehaviorAppend  = "append"
)

// DefaultAnchorClass is the class of generated heading anchors.
const DefaultAnchorClass = "subheading-anchor"

// AutolinkOptions configures the autolink pass.
type AutolinkOptions struct {
	Behavior string
	Class    string
}

// autolinkPass links every heading that has an id to itself.
type autolinkPass struct {
	behavior string
	class    string
}

func newAutolinkPass(opts AutolinkOptions) (*autolinkPass, error) {
	p := &autolinkPass{behavior: opts.Behavior, class: opts.Class}
	if p.behavior == "" {
		p.behavior = BehaviorWrap
	}
	if p.class == "" {
		p.class = DefaultAnchorClass
	}
	switch p.behavior {
	case BehaviorWrap, BehaviorPrepend, BehaviorAppend:
	default:
		return nil, fmt.Errorf("htmlpass: unknown autolink behavior %q", p.behavior)
	}
	return p, nil
}

func (p *autolinkPass) Name() string { return "autolink" }

func (p *autolinkPass) Apply(doc *html.Node, _ *transform.Annotations) (*html.Node, error) {
	for _, h := range findAll(doc, isHeading) {
		id, ok := getAttr(h, "id")
		if !ok || id == "" {
			continue
		}
		a := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A, Attr: []html.Attribute{
			{Key: "class", Val: p.class},
			{Key: "href", Val: "#" + id},
		}}
		switch p.behavior {
		case BehaviorWrap:
			for c := h.FirstChild; c != nil; {
				next := c.NextSibling
				h.RemoveChild(c)
				a.AppendChild(c)
				c = next
			}
			h.AppendChild(a)
		case BehaviorPrepend, BehaviorAppend:
			a.Attr = append(a.Attr,
				html.Attribute{Key: "aria-hidden", Val: "true"},
				html.Attribute{Key: "tabindex", Val: "-1"},
			)
			icon := &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span, Attr: []html.Attribute{
				{Key: "class", Val: "icon icon-link"},
			}}
			a.AppendChild(icon)
			if p.behavior == BehaviorPrepend && h.FirstChild != nil {
				h.InsertBefore(a, h.FirstChild)
			} else {
				h.AppendChild(a)
			}
		}
	}
	return doc, nil
}
