package htmlpass

import (
	"strings"
	"testing"

	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/transform"
)

func run(t *testing.T, fragment string, names []string, opts Options) (string, *transform.Annotations) {
	t.Helper()
	if opts.Highlighter == nil {
		h, err := highlight.New(highlight.Options{})
		if err != nil {
			t.Fatalf("highlight.New: %v", err)
		}
		opts.Highlighter = h
	}
	passes, err := Passes(names, opts)
	if err != nil {
		t.Fatalf("Passes: %v", err)
	}
	doc, err := Parse([]byte(fragment))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ann := transform.NewAnnotations()
	doc, err = transform.NewStage("html", passes...).Run(doc, ann)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out, err := Render(doc)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return string(out), ann
}

func TestSlug_UniqueIDs(t *testing.T) {
	out, ann := run(t, "<h2>Usage</h2><h2>Usage</h2><h3>What's new?</h3><h2 id=\"custom\">Custom</h2>", []string{"slug"}, Options{})
	for _, want := range []string{`<h2 id="usage">`, `<h2 id="usage-1">`, `<h3 id="whats-new">`, `<h2 id="custom">`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if len(ann.Headings) != 4 {
		t.Fatalf("headings = %d", len(ann.Headings))
	}
	if h := ann.Headings[2]; h.ID != "whats-new" || h.Text != "What's new?" || h.Level != 3 {
		t.Errorf("heading = %+v", h)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":      "hello-world",
		"API_Reference":    "api_reference",
		"  Two  Spaces ":   "--two--spaces-",
		"Ünïcödé & Emoji": "ünïcödé--emoji",
		"v2.0 (beta)":      "v20-beta",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugger_RepeatsAfterSuffixCollision(t *testing.T) {
	s := NewSlugger()
	got := []string{s.Slug("a"), s.Slug("a"), s.Slug("a-1"), s.Slug("a")}
	want := []string{"a", "a-1", "a-1-1", "a-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slug %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHighlightPass(t *testing.T) {
	fragment := "<pre><code class=\"language-go\" data-meta=\"{2}\">package main\nfunc main() {}\n</code></pre>"
	out, ann := run(t, fragment, []string{"highlight"}, Options{})
	if !strings.Contains(out, `<pre class="shiki github-dark has-highlighted"`) {
		t.Errorf("missing highlighted pre: %s", out)
	}
	if !strings.Contains(out, `<span class="line highlighted">`) {
		t.Errorf("missing highlighted line: %s", out)
	}
	if !strings.Contains(out, `data-language="go"`) {
		t.Errorf("missing language: %s", out)
	}
	if ann.CodeBlocks != 1 {
		t.Errorf("code blocks = %d", ann.CodeBlocks)
	}
}

func TestHighlightPass_PlainFence(t *testing.T) {
	fragment := "<pre><code>plain\nadded // [!code ++]\n</code></pre>"
	out, ann := run(t, fragment, []string{"highlight"}, Options{})
	if !strings.Contains(out, `<pre class="shiki github-dark has-diff"`) {
		t.Errorf("plain fence not highlighted: %s", out)
	}
	if !strings.Contains(out, `<span class="line">`) || !strings.Contains(out, `<span class="line diff add">`) || !strings.Contains(out, "plain") {
		t.Errorf("missing line spans: %s", out)
	}
	if strings.Contains(out, "[!code ++]") || strings.Contains(out, "data-language") {
		t.Errorf("unexpected output: %s", out)
	}
	if ann.CodeBlocks != 1 {
		t.Errorf("code blocks = %d", ann.CodeBlocks)
	}
}

func TestAutolink_Behaviors(t *testing.T) {
	cases := map[string]string{
		BehaviorWrap:    `<h2 id="intro"><a class="subheading-anchor" href="#intro">Intro</a></h2>`,
		BehaviorPrepend: `<h2 id="intro"><a class="subheading-anchor" href="#intro" aria-hidden="true" tabindex="-1"><span class="icon icon-link"></span></a>Intro</h2>`,
		BehaviorAppend:  `<h2 id="intro">Intro<a class="subheading-anchor" href="#intro" aria-hidden="true" tabindex="-1"><span class="icon icon-link"></span></a></h2>`,
	}
	for behavior, want := range cases {
		out, _ := run(t, "<h2>Intro</h2>", []string{"slug", "autolink"}, Options{Autolink: AutolinkOptions{Behavior: behavior}})
		if out != want {
			t.Errorf("%s:\n got %s\nwant %s", behavior, out, want)
		}
	}
}

func TestAutolink_CustomClass(t *testing.T) {
	out, _ := run(t, "<h3 id=\"x\">X</h3>", []string{"autolink"}, Options{Autolink: AutolinkOptions{Class: "anchor"}})
	if !strings.Contains(out, `<a class="anchor" href="#x">X</a>`) {
		t.Errorf("out = %s", out)
	}
}

func TestPasses_Unknown(t *testing.T) {
	if _, err := Passes([]string{"slug", "minify"}, Options{}); err == nil {
		t.Fatal("expected error for unknown pass")
	}
	if _, err := Passes([]string{"autolink"}, Options{Autolink: AutolinkOptions{Behavior: "around"}}); err == nil {
		t.Fatal("expected error for unknown behavior")
	}
}
