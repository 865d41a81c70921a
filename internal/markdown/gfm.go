package markdown

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"

	"github.com/starford/quire/internal/transform"
)

// gfmPass enables GitHub Flavored Markdown and classes task lists.
type gfmPass struct{}

func (gfmPass) Name() string { return "gfm" }

func (gfmPass) Extend(m goldmark.Markdown) { extension.GFM.Extend(m) }

func (gfmPass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	var boxes []ast.Node
	_ = ast.Walk(doc.Node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == extast.KindTaskCheckBox {
			boxes = append(boxes, n)
		}
		return ast.WalkContinue, nil
	})
	marked := make(map[ast.Node]bool)
	for _, box := range boxes {
		item := box.Parent()
		for item != nil && item.Kind() != ast.KindListItem {
			item = item.Parent()
		}
		if item == nil || marked[item] {
			continue
		}
		marked[item] = true
		addClass(item, "task-list-item")
		if list := item.Parent(); list != nil && !marked[list] {
			marked[list] = true
			addClass(list, "contains-task-list")
		}
	}
	return doc, nil
}
