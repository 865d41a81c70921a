package markdown

import (
	"github.com/yuin/goldmark/ast"

	"github.com/starford/quire/internal/transform"
)

// stepsPass marks every heading inside :::steps as a step.
type stepsPass struct{}

func (stepsPass) Name() string { return "steps" }

func (stepsPass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, d := range directivesNamed(doc.Node, "steps") {
		el := NewElement("div", "steps")
		replace(d, el)
		for c := el.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Kind() == ast.KindHeading {
				addClass(c, "step")
			}
		}
	}
	return doc, nil
}
