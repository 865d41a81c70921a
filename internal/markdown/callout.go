package markdown

import (
	"github.com/starford/quire/internal/transform"
)

var calloutKinds = []string{"note", "tip", "info", "warning", "caution", "important", "danger"}

// calloutPass turns admonition directives into callout blocks.
type calloutPass struct{}

func (calloutPass) Name() string { return "callout" }

func (calloutPass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, d := range directivesNamed(doc.Node, calloutKinds...) {
		el := NewElement("div", "callout callout-"+d.Name)
		if id := d.Attrs["id"]; id != "" {
			setAttr(el, "id", id)
		}
		if extra := d.Attrs["class"]; extra != "" {
			addClass(el, extra)
		}
		replace(d, el)
		if d.Label != "" {
			title := NewElement("p", "callout-title")
			title.Content = d.Label
			if first := el.FirstChild(); first != nil {
				el.InsertBefore(el, first, title)
			} else {
				el.AppendChild(el, title)
			}
		}
	}
	return doc, nil
}
