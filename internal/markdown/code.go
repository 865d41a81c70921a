package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/starford/quire/internal/transform"
)

var titleMeta = regexp.MustCompile(`(?:^|\s)title=(?:"([^"]*)"|'([^']*)'|(\S+))`)

// codeTitlePass wraps fenced code whose meta carries title="..." with a
// title bar and removes the title from the meta.
type codeTitlePass struct{}

func (codeTitlePass) Name() string { return "code-title" }

func (codeTitlePass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, code := range fencedCode(doc.Node) {
		meta := CodeMeta(code, doc.Source)
		m := titleMeta.FindStringSubmatchIndex(meta)
		if m == nil {
			continue
		}
		title := submatch(meta, m)
		rest := strings.TrimSpace(meta[:m[0]] + " " + meta[m[1]:])
		setAttr(code, "data-meta", strings.Join(strings.Fields(rest), " "))

		wrapper := NewElement("div", "code-block")
		setAttr(wrapper, "data-title", title)
		bar := NewElement("div", "code-title")
		bar.Content = title

		parent := code.Parent()
		parent.ReplaceChild(parent, code, wrapper)
		wrapper.AppendChild(wrapper, bar)
		wrapper.AppendChild(wrapper, code)
	}
	return doc, nil
}

func submatch(s string, m []int) string {
	for g := 1; g*2+1 < len(m); g++ {
		if m[g*2] >= 0 {
			return s[m[g*2]:m[g*2+1]]
		}
	}
	return ""
}

func fencedCode(root ast.Node) []*ast.FencedCodeBlock {
	var out []*ast.FencedCodeBlock
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if fc, ok := n.(*ast.FencedCodeBlock); ok && entering {
			out = append(out, fc)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// codeGroupPass turns :::code-group containers into tabbed groups. Only
// fenced code, optionally titled, may appear inside a group.
type codeGroupPass struct{}

func (codeGroupPass) Name() string { return "code-group" }

func (p codeGroupPass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, d := range directivesNamed(doc.Node, "code-group") {
		var blocks []ast.Node
		var labels []string
		for c := d.FirstChild(); c != nil; c = c.NextSibling() {
			label, ok := codeLabel(c, doc.Source)
			if !ok {
				return nil, transform.Errorf(p.Name(), "code-group may only contain code blocks, found %s", c.Kind())
			}
			if label == "" {
				label = "Code " + strconv.Itoa(len(blocks)+1)
			}
			blocks = append(blocks, c)
			labels = append(labels, label)
		}
		if len(blocks) == 0 {
			return nil, transform.Errorf(p.Name(), "code-group is empty")
		}

		group := NewElement("div", "code-group")
		tabs := NewElement("div", "code-group-tabs")
		group.AppendChild(group, tabs)
		for i, label := range labels {
			tab := NewElement("button", "code-group-tab")
			setAttr(tab, "data-index", strconv.Itoa(i))
			tab.Content = label
			tabs.AppendChild(tabs, tab)
		}

		parent := d.Parent()
		parent.ReplaceChild(parent, d, group)
		for i, block := range blocks {
			panel := NewElement("div", "code-group-panel")
			setAttr(panel, "data-index", strconv.Itoa(i))
			d.RemoveChild(d, block)
			panel.AppendChild(panel, block)
			group.AppendChild(group, panel)
		}
	}
	return doc, nil
}

// codeLabel returns the tab label of a code-group member, and false when
// n is not a code block.
func codeLabel(n ast.Node, src []byte) (string, bool) {
	switch t := n.(type) {
	case *ast.FencedCodeBlock:
		return string(t.Language(src)), true
	case *Element:
		if title, ok := attr(t, "data-title"); ok {
			return title, true
		}
	}
	return "", false
}
