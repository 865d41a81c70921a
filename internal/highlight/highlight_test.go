package highlight

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/starford/quire/internal/apperr"
)

func newHighlighter(t *testing.T, opts Options) *Highlighter {
	t.Helper()
	h, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func renderString(t *testing.T, n *html.Node) string {
	t.Helper()
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return b.String()
}

func lineClasses(pre *html.Node) []string {
	var out []string
	code := pre.FirstChild
	for c := code.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, a := range c.Attr {
			if a.Key == "class" {
				out = append(out, a.Val)
			}
		}
	}
	return out
}

func preClass(pre *html.Node) string {
	for _, a := range pre.Attr {
		if a.Key == "class" {
			return a.Val
		}
	}
	return ""
}

const sample = "import { Button } from '@quire/react'\nconst App = () => <Button>Click</Button>\nexport default App\n"

func TestHighlight_MetaLine(t *testing.T) {
	h := newHighlighter(t, Options{})
	pre, err := h.Highlight(sample, "tsx", "{2}")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	want := []string{"line", "line highlighted", "line"}
	if got := lineClasses(pre); !slices.Equal(got, want) {
		t.Errorf("line classes = %v, want %v", got, want)
	}
	if got := preClass(pre); got != "shiki github-dark has-highlighted" {
		t.Errorf("pre class = %q", got)
	}
}

func TestHighlight_NotationLine(t *testing.T) {
	h := newHighlighter(t, Options{})
	code := "const a = 1\nconst b = 2 // [!code highlight]\nconst c = 3\n"
	pre, err := h.Highlight(code, "js", "")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	want := []string{"line", "line highlighted", "line"}
	if got := lineClasses(pre); !slices.Equal(got, want) {
		t.Errorf("line classes = %v, want %v", got, want)
	}
	if out := renderString(t, pre); strings.Contains(out, "[!code") {
		t.Errorf("notation comment left in output: %s", out)
	}
}

func TestHighlight_NotationOnlyLineAppliesForward(t *testing.T) {
	h := newHighlighter(t, Options{})
	code := "# [!code focus:2]\nfoo = 1\nbar = 2\nbaz = 3\n"
	pre, err := h.Highlight(code, "python", "")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	want := []string{"line focused", "line focused", "line"}
	if got := lineClasses(pre); !slices.Equal(got, want) {
		t.Errorf("line classes = %v, want %v", got, want)
	}
	if !strings.Contains(preClass(pre), "has-focused") {
		t.Errorf("pre class = %q", preClass(pre))
	}
}

func TestHighlight_Diff(t *testing.T) {
	h := newHighlighter(t, Options{})
	code := "<div>\n<Old /> {/* [!code --] */}\n<New /> {/* [!code ++] */}\n</div>\n"
	pre, err := h.Highlight(code, "jsx", "")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	want := []string{"line", "line diff remove", "line diff add", "line"}
	if got := lineClasses(pre); !slices.Equal(got, want) {
		t.Errorf("line classes = %v, want %v", got, want)
	}
}

func TestHighlight_DisabledFamilyIsLeftAlone(t *testing.T) {
	h := newHighlighter(t, Options{Notations: []string{FamilyHighlight}})
	pre, err := h.Highlight("x = 1 # [!code ++]\n", "python", "")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if got := lineClasses(pre); !slices.Equal(got, []string{"line"}) {
		t.Errorf("line classes = %v", got)
	}
	if out := renderString(t, pre); !strings.Contains(out, "[!code ++]") {
		t.Errorf("disabled notation must stay in the code: %s", out)
	}
}

func TestHighlight_Words(t *testing.T) {
	h := newHighlighter(t, Options{})
	pre, err := h.Highlight("const Button = Button\n", "js", "/Button/")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	out := renderString(t, pre)
	if n := strings.Count(out, `class="highlighted-word"`); n != 2 {
		t.Errorf("highlighted words = %d: %s", n, out)
	}
}

func TestHighlight_Deterministic(t *testing.T) {
	h := newHighlighter(t, Options{})
	a, err := h.Highlight(sample, "tsx", "{1-2} /App/")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	b, _ := h.Highlight(sample, "tsx", "{1-2} /App/")
	if renderString(t, a) != renderString(t, b) {
		t.Error("output differs between runs")
	}
}

func TestHighlight_UnknownLanguageFallsBack(t *testing.T) {
	h := newHighlighter(t, Options{})
	pre, err := h.Highlight("plain <text>\n", "no-such-lang", "")
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if out := renderString(t, pre); !strings.Contains(out, "plain &lt;text&gt;") {
		t.Errorf("output = %s", out)
	}
}

func TestNew_UnknownTheme(t *testing.T) {
	_, err := New(Options{Theme: "no-such-theme"})
	var cfgErr *apperr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if _, err := New(Options{Notations: []string{"sparkle"}}); !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
}

func TestParseMeta(t *testing.T) {
	lines, words := ParseMeta(`{1,3-4} /useState/ /a\/b/`, 10)
	if !slices.Equal(lines, []int{1, 3, 4}) {
		t.Errorf("lines = %v", lines)
	}
	if !slices.Equal(words, []string{"useState", "a/b"}) {
		t.Errorf("words = %v", words)
	}
}

func TestParseMeta_ClampsToLineCount(t *testing.T) {
	lines, _ := ParseMeta("{0-2, 5, 1-2000000000}", 3)
	if !slices.Equal(lines, []int{1, 2, 1, 2, 3}) {
		t.Errorf("lines = %v", lines)
	}
}
