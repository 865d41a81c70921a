package markdown

import (
	"strconv"

	"github.com/yuin/goldmark/ast"
)

// KindDirective is the node kind of a parsed :::name or ::name directive.
var KindDirective = ast.NewNodeKind("Directive")

// Directive is a container (:::name) or leaf (::name) directive block.
type Directive struct {
	ast.BaseBlock

	Name  string
	Label string
	Attrs map[string]string
	Leaf  bool
	// Fence is the number of colons in the opening line.
	Fence int

	// Malformed is set when the opening line could not be parsed.
	Malformed string
	// Unterminated is set when a container is closed without its fence.
	Unterminated bool

	closed bool
}

// Kind implements ast.Node.
func (n *Directive) Kind() ast.NodeKind { return KindDirective }

// Dump implements ast.Node.
func (n *Directive) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Name":  n.Name,
		"Label": n.Label,
		"Leaf":  strconv.FormatBool(n.Leaf),
	}, nil)
}

// KindElement is the node kind of a generic HTML element produced by the
// directive passes.
var KindElement = ast.NewNodeKind("Element")

// Element renders as <Tag attrs>Content children</Tag>.
type Element struct {
	ast.BaseBlock

	Tag string
	// Content is escaped text written before the children.
	Content string
}

// NewElement returns an element with the given tag and class.
func NewElement(tag, class string) *Element {
	el := &Element{Tag: tag}
	if class != "" {
		el.SetAttributeString("class", []byte(class))
	}
	return el
}

// Kind implements ast.Node.
func (n *Element) Kind() ast.NodeKind { return KindElement }

// Dump implements ast.Node.
func (n *Element) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Tag": n.Tag, "Content": n.Content}, nil)
}

// attr returns the string value of a node attribute.
func attr(n ast.Node, name string) (string, bool) {
	v, ok := n.AttributeString(name)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case []byte:
		return string(t), true
	case string:
		return t, true
	}
	return "", false
}

func setAttr(n ast.Node, name, value string) {
	n.SetAttributeString(name, []byte(value))
}

// addClass appends class to the node's class attribute.
func addClass(n ast.Node, class string) {
	if cur, ok := attr(n, "class"); ok && cur != "" {
		class = cur + " " + class
	}
	setAttr(n, "class", class)
}

// replace swaps old for el in the tree and moves old's children under el.
func replace(old ast.Node, el ast.Node) {
	parent := old.Parent()
	parent.ReplaceChild(parent, old, el)
	moveChildren(old, el)
}

func moveChildren(from, to ast.Node) {
	for c := from.FirstChild(); c != nil; {
		next := c.NextSibling()
		from.RemoveChild(from, c)
		to.AppendChild(to, c)
		c = next
	}
}

// directives returns every directive in the tree in document order.
func directives(root ast.Node) []*Directive {
	var out []*Directive
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if d, ok := n.(*Directive); ok && entering {
			out = append(out, d)
		}
		return ast.WalkContinue, nil
	})
	return out
}

// directivesNamed returns the directives whose name is in names.
func directivesNamed(root ast.Node, names ...string) []*Directive {
	var out []*Directive
	for _, d := range directives(root) {
		for _, name := range names {
			if d.Name == name {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
