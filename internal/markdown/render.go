package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Nodes registers the HTML renderers for directive, element and fenced
// code nodes. It is installed on every engine built by the compiler.
var Nodes goldmark.Extender = &nodes{}

type nodes struct{}

func (e *nodes) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&nodeRenderer{}, 100),
	))
}

type nodeRenderer struct{}

func (r *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindDirective, r.renderDirective)
	reg.Register(KindElement, r.renderElement)
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

// renderDirective renders directives no pass claimed.
func (r *nodeRenderer) renderDirective(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Directive)
	if !entering {
		_, _ = w.WriteString("</div>\n")
		return ast.WalkContinue, nil
	}
	class := "directive directive-" + n.Name
	if extra := n.Attrs["class"]; extra != "" {
		class += " " + extra
	}
	_, _ = w.WriteString(`<div class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(class)))
	_ = w.WriteByte('"')
	for _, key := range sortedKeys(n.Attrs) {
		if key == "class" {
			continue
		}
		name := key
		if key != "id" {
			name = "data-" + key
		}
		writeAttr(w, name, n.Attrs[key])
	}
	if n.Label != "" {
		writeAttr(w, "data-label", n.Label)
	}
	_, _ = w.WriteString(">\n")
	return ast.WalkContinue, nil
}

func (r *nodeRenderer) renderElement(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Element)
	if !entering {
		_, _ = w.WriteString("</" + n.Tag + ">\n")
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<" + n.Tag)
	if n.Attributes() != nil {
		html.RenderAttributes(w, n, nil)
	}
	_ = w.WriteByte('>')
	if n.Content != "" {
		_, _ = w.Write(util.EscapeHTML([]byte(n.Content)))
	}
	if n.HasChildren() {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

// renderFencedCode renders <pre><code class="language-x" data-meta="..."> so
// the HTML stage can see the fence meta.
func (r *nodeRenderer) renderFencedCode(w util.BufWriter, src []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)
	_, _ = w.WriteString("<pre><code")
	if lang := n.Language(src); len(lang) > 0 {
		_, _ = w.WriteString(` class="language-`)
		_, _ = w.Write(util.EscapeHTML(lang))
		_ = w.WriteByte('"')
	}
	if meta := CodeMeta(n, src); meta != "" {
		writeAttr(w, "data-meta", meta)
	}
	_ = w.WriteByte('>')
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.Write(util.EscapeHTML(line.Value(src)))
	}
	_, _ = w.WriteString("</code></pre>\n")
	return ast.WalkSkipChildren, nil
}

// CodeMeta returns the info string of a fenced code block after its
// language, as rewritten by earlier passes.
func CodeMeta(n *ast.FencedCodeBlock, src []byte) string {
	if meta, ok := attr(n, "data-meta"); ok {
		return meta
	}
	if n.Info == nil {
		return ""
	}
	info := strings.TrimSpace(string(n.Info.Segment.Value(src)))
	if i := strings.IndexAny(info, " \t"); i >= 0 {
		return strings.TrimSpace(info[i+1:])
	}
	return ""
}

func writeAttr(w util.BufWriter, name, value string) {
	_ = w.WriteByte(' ')
	_, _ = w.WriteString(name)
	_, _ = w.WriteString(`="`)
	_, _ = w.Write(util.EscapeHTML([]byte(value)))
	_ = w.WriteByte('"')
}
