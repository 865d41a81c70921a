// Package highlight renders code blocks as syntax-highlighted HTML trees
// with line annotations, in the markup shape shiki produces.
package highlight

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/quire/internal/apperr"
)

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "github-dark"

// Notation families.
const (
	FamilyDiff      = "diff"
	FamilyFocus     = "focus"
	FamilyHighlight = "highlight"
	FamilyWord      = "word"
)

// Families lists every notation family.
var Families = []string{FamilyDiff, FamilyFocus, FamilyHighlight, FamilyWord}

// Options configures a Highlighter.
type Options struct {
	Theme string
	// Notations lists the enabled comment notation families. Nil enables all.
	Notations []string
}

// Highlighter renders code with a fixed theme.
type Highlighter struct {
	theme    string
	style    *chroma.Style
	families map[string]bool
}

// New returns a Highlighter. An unknown theme or notation family is a
// *apperr.ConfigError.
func New(opts Options) (*Highlighter, error) {
	theme := opts.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	style, ok := styles.Registry[theme]
	if !ok {
		return nil, &apperr.ConfigError{Subject: "highlight.theme", Reason: fmt.Sprintf("unknown theme %q", theme)}
	}
	notations := opts.Notations
	if notations == nil {
		notations = Families
	}
	families := make(map[string]bool, len(notations))
	for _, f := range notations {
		if !slices.Contains(Families, f) {
			return nil, &apperr.ConfigError{Subject: "highlight.notations", Reason: fmt.Sprintf("unknown notation family %q", f)}
		}
		families[f] = true
	}
	return &Highlighter{theme: theme, style: style, families: families}, nil
}

// Theme returns the theme name.
func (h *Highlighter) Theme() string { return h.theme }

// Themes returns the names of every available theme.
func Themes() []string {
	return styles.Names()
}

// Highlight tokenizes code for lang and returns a <pre> element. meta is
// the fence meta string ("{1,3-4} /word/"). The result depends only on
// (code, lang, meta) and the highlighter configuration.
func (h *Highlighter) Highlight(code, lang, meta string) (*html.Node, error) {
	code = strings.TrimSuffix(code, "\n")
	lines, marks := h.notations(strings.Split(code, "\n"))

	metaLines, metaWords := ParseMeta(meta, len(marks))
	for _, n := range metaLines {
		marks[n-1].highlighted = true
	}
	if len(metaWords) > 0 {
		for i := range marks {
			marks[i].words = append(marks[i].words, metaWords...)
		}
	}

	tokens, err := h.tokenize(strings.Join(lines, "\n"), lang, len(lines))
	if err != nil {
		return nil, fmt.Errorf("highlight: tokenize %s: %w", lang, err)
	}
	return h.render(lang, tokens, marks), nil
}

func (h *Highlighter) tokenize(src, lang string, n int) ([][]chroma.Token, error) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	it, err := lexer.Tokenise(nil, src)
	if err != nil {
		return nil, err
	}
	lines := make([][]chroma.Token, n)
	li := 0
	for _, tok := range it.Tokens() {
		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				li++
			}
			if part == "" || li >= n {
				continue
			}
			lines[li] = append(lines[li], chroma.Token{Type: tok.Type, Value: part})
		}
	}
	return lines, nil
}

func (h *Highlighter) render(lang string, lines [][]chroma.Token, marks []lineMark) *html.Node {
	var hasHighlighted, hasDiff, hasFocused bool
	for _, m := range marks {
		hasHighlighted = hasHighlighted || m.highlighted
		hasDiff = hasDiff || m.add || m.remove
		hasFocused = hasFocused || m.focused
	}

	class := []string{"shiki", h.theme}
	if hasHighlighted {
		class = append(class, "has-highlighted")
	}
	if hasDiff {
		class = append(class, "has-diff")
	}
	if hasFocused {
		class = append(class, "has-focused")
	}

	pre := element(atom.Pre, attr("class", strings.Join(class, " ")))
	if s := h.backgroundStyle(); s != "" {
		pre.Attr = append(pre.Attr, attr("style", s))
	}
	pre.Attr = append(pre.Attr, attr("tabindex", "0"))
	if lang != "" {
		pre.Attr = append(pre.Attr, attr("data-language", lang))
	}
	code := element(atom.Code)
	pre.AppendChild(code)

	for i, toks := range lines {
		if i > 0 {
			code.AppendChild(text("\n"))
		}
		line := element(atom.Span, attr("class", marks[i].class()))
		h.appendTokens(line, toks, marks[i].words)
		code.AppendChild(line)
	}
	return pre
}

func (h *Highlighter) backgroundStyle() string {
	bg := h.style.Get(chroma.Background)
	var parts []string
	if bg.Background.IsSet() {
		parts = append(parts, "background-color:"+bg.Background.String())
	}
	if bg.Colour.IsSet() {
		parts = append(parts, "color:"+bg.Colour.String())
	}
	return strings.Join(parts, ";")
}

func (h *Highlighter) tokenStyle(t chroma.TokenType) string {
	entry := h.style.Get(t)
	var parts []string
	if entry.Colour.IsSet() {
		parts = append(parts, "color:"+entry.Colour.String())
	}
	if entry.Bold == chroma.Yes {
		parts = append(parts, "font-weight:bold")
	}
	if entry.Italic == chroma.Yes {
		parts = append(parts, "font-style:italic")
	}
	return strings.Join(parts, ";")
}

// appendTokens emits one span per token, splitting tokens at the
// boundaries of highlighted words.
func (h *Highlighter) appendTokens(line *html.Node, toks []chroma.Token, words []string) {
	mask := wordMask(toks, words)
	offset := 0
	for _, tok := range toks {
		style := h.tokenStyle(tok.Type)
		for _, seg := range segments(tok.Value, mask, offset) {
			n := tokenNode(seg.text, style)
			if seg.word {
				w := element(atom.Span, attr("class", "highlighted-word"))
				w.AppendChild(n)
				n = w
			}
			line.AppendChild(n)
		}
		offset += len(tok.Value)
	}
}

func tokenNode(s, style string) *html.Node {
	if style == "" || strings.TrimSpace(s) == "" {
		return text(s)
	}
	span := element(atom.Span, attr("style", style))
	span.AppendChild(text(s))
	return span
}

type segment struct {
	text string
	word bool
}

// segments splits s (starting at offset in the line) into runs that are
// uniformly inside or outside highlighted words.
func segments(s string, mask []bool, offset int) []segment {
	if mask == nil {
		return []segment{{text: s}}
	}
	var out []segment
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || mask[offset+i] != mask[offset+start] {
			out = append(out, segment{text: s[start:i], word: mask[offset+start]})
			start = i
		}
	}
	return out
}

func wordMask(toks []chroma.Token, words []string) []bool {
	if len(words) == 0 {
		return nil
	}
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Value)
	}
	plain := b.String()
	mask := make([]bool, len(plain)+1)
	found := false
	for _, w := range words {
		if w == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(plain[from:], w)
			if i < 0 {
				break
			}
			for j := from + i; j < from+i+len(w); j++ {
				mask[j] = true
			}
			found = true
			from += i + len(w)
		}
	}
	if !found {
		return nil
	}
	return mask
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a, Attr: attrs}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
