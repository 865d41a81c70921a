package markdown

import (
	"github.com/starford/quire/internal/transform"
)

// cardPass turns :::card[Title]{href=...} into a card.
type cardPass struct{}

func (cardPass) Name() string { return "card" }

func (p cardPass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, d := range directivesNamed(doc.Node, "card") {
		el := NewElement("div", "card")
		if extra := d.Attrs["class"]; extra != "" {
			addClass(el, extra)
		}
		body := NewElement("div", "card-body")
		replace(d, body)
		parent := body.Parent()
		parent.ReplaceChild(parent, body, el)

		if d.Label != "" {
			tag := "div"
			if d.Attrs["href"] != "" {
				tag = "a"
			}
			title := NewElement(tag, "card-title")
			if tag == "a" {
				setAttr(title, "href", d.Attrs["href"])
			}
			title.Content = d.Label
			el.AppendChild(el, title)
		} else if href := d.Attrs["href"]; href != "" {
			setAttr(el, "data-href", href)
		}
		if body.HasChildren() {
			el.AppendChild(el, body)
		}
	}
	return doc, nil
}
