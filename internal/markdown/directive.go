package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/quire/internal/transform"
)

// directivePass installs the directive block parser and rejects
// directives whose syntax could not be parsed.
type directivePass struct{}

func (directivePass) Name() string { return "directive" }

func (directivePass) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&directiveParser{}, 70),
	))
}

func (p directivePass) Apply(doc *Doc, _ *transform.Annotations) (*Doc, error) {
	for _, d := range directives(doc.Node) {
		switch {
		case d.Malformed != "":
			return nil, transform.Errorf(p.Name(), "directive %q: %s", d.Name, d.Malformed)
		case d.Unterminated:
			return nil, transform.Errorf(p.Name(), "directive %q: container not closed with %s", d.Name, strings.Repeat(":", d.Fence))
		}
	}
	return doc, nil
}

// directiveParser parses ":::name[label]{attrs}" containers closed by a
// line of at least as many colons, and "::name[label]{attrs}" leaves.
type directiveParser struct{}

func (b *directiveParser) Trigger() []byte { return []byte{':'} }

func (b *directiveParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) {
		return nil, parser.NoChildren
	}
	rest := line[pos:]
	fence := 0
	for fence < len(rest) && rest[fence] == ':' {
		fence++
	}
	if fence < 2 {
		return nil, parser.NoChildren
	}
	name, tail := scanName(rest[fence:])
	if name == "" {
		return nil, parser.NoChildren
	}
	// Prose such as "::before and ::after" stays paragraph text.
	if t := bytes.TrimRight(tail, " \t\r\n"); len(t) > 0 && t[0] != '[' && t[0] != '{' {
		return nil, parser.NoChildren
	}

	node := &Directive{Name: name, Fence: fence, Leaf: fence == 2, Attrs: map[string]string{}}
	if err := parseDirectiveTail(node, tail); err != nil {
		node.Malformed = err.Error()
	}

	reader.Advance(segment.Len() - trailingNewline(line))
	if node.Leaf {
		return node, parser.NoChildren
	}
	return node, parser.HasChildren
}

func (b *directiveParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	d := node.(*Directive)
	if d.Leaf {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if isClosingFence(line, d.Fence) {
		d.closed = true
		reader.Advance(segment.Len() - trailingNewline(line))
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (b *directiveParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	d := node.(*Directive)
	if !d.Leaf && !d.closed {
		d.Unterminated = true
	}
}

func (b *directiveParser) CanInterruptParagraph() bool { return true }

func (b *directiveParser) CanAcceptIndentedLine() bool { return false }

func trailingNewline(line []byte) int {
	if len(line) > 0 && line[len(line)-1] == '\n' {
		return 1
	}
	return 0
}

func isClosingFence(line []byte, fence int) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) < fence {
		return false
	}
	for _, c := range trimmed {
		if c != ':' {
			return false
		}
	}
	return true
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case first:
		return false
	case c >= '0' && c <= '9', c == '-', c == '_':
		return true
	}
	return false
}

func scanName(b []byte) (string, []byte) {
	i := 0
	for i < len(b) && isNameByte(b[i], i == 0) {
		i++
	}
	return string(b[:i]), b[i:]
}

// parseDirectiveTail parses the optional [label] and {attributes} that
// follow a directive name.
func parseDirectiveTail(d *Directive, tail []byte) error {
	tail = bytes.TrimRight(tail, " \t\r\n")
	if len(tail) > 0 && tail[0] == '[' {
		label, rest, err := scanLabel(tail)
		if err != nil {
			return err
		}
		d.Label = label
		tail = rest
	}
	if len(tail) > 0 && tail[0] == '{' {
		end := bytes.IndexByte(tail, '}')
		if end < 0 {
			return fmt.Errorf("unclosed attribute block")
		}
		attrs, err := parseAttributes(string(tail[1:end]))
		if err != nil {
			return err
		}
		d.Attrs = attrs
		tail = tail[end+1:]
	}
	if len(bytes.TrimSpace(tail)) > 0 {
		return fmt.Errorf("unexpected %q after directive", bytes.TrimSpace(tail))
	}
	return nil
}

func scanLabel(b []byte) (string, []byte, error) {
	depth := 0
	for i := 0; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return string(b[1:i]), b[i+1:], nil
			}
		}
	}
	return "", nil, fmt.Errorf("unclosed label")
}

// parseAttributes parses `#id .class key=value key="quoted value" flag`.
func parseAttributes(s string) (map[string]string, error) {
	attrs := map[string]string{}
	var classes []string
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		switch s[i] {
		case '#', '.':
			start := i + 1
			j := start
			for j < len(s) && s[j] != ' ' && s[j] != '\t' {
				j++
			}
			if j == start {
				return nil, fmt.Errorf("empty %q shorthand", s[i])
			}
			if s[i] == '#' {
				attrs["id"] = s[start:j]
			} else {
				classes = append(classes, s[start:j])
			}
			i = j
			continue
		}
		start := i
		for i < len(s) && s[i] != '=' && s[i] != ' ' && s[i] != '\t' {
			if s[i] == '"' || s[i] == '\'' {
				return nil, fmt.Errorf("unexpected quote in attribute name")
			}
			i++
		}
		key := s[start:i]
		if i >= len(s) || s[i] != '=' {
			attrs[key] = ""
			continue
		}
		i++
		if key == "" {
			return nil, fmt.Errorf("attribute value without a name")
		}
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			quote := s[i]
			end := strings.IndexByte(s[i+1:], quote)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted value for %q", key)
			}
			attrs[key] = s[i+1 : i+1+end]
			i += end + 2
			continue
		}
		vstart := i
		for i < len(s) && s[i] != ' ' && s[i] != '\t' {
			i++
		}
		attrs[key] = s[vstart:i]
	}
	if len(classes) > 0 {
		if cur := attrs["class"]; cur != "" {
			classes = append([]string{cur}, classes...)
		}
		attrs["class"] = strings.Join(classes, " ")
	}
	return attrs, nil
}
