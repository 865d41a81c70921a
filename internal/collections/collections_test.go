package collections

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

func TestSlugFromPath(t *testing.T) {
	cases := []struct {
		rel, dir, want string
	}{
		{"content/docs/button.mdx", "content", "docs/button"},
		{"content/docs/forms/input.md", "content", "docs/forms/input"},
		{"content/blog/v1.mdx", "content", "blog/v1"},
		{"site/content/notes/a.mdx", "site/content", "notes/a"},
		{"mycontent/docs/a.mdx", "content", "mycontent/docs/a"},
		{"content/content/a.mdx", "content", "a"},
		{"docs/a.md.mdx", "", "docs/a"},
		{"docs/button", "content", "docs/button"},
	}
	for _, tc := range cases {
		got := SlugFromPath(tc.rel, tc.dir)
		if got != tc.want {
			t.Errorf("SlugFromPath(%q, %q) = %q, want %q", tc.rel, tc.dir, got, tc.want)
		}
		if again := SlugFromPath(got, tc.dir); again != got {
			t.Errorf("not idempotent: %q -> %q -> %q", tc.rel, got, again)
		}
	}
}

func TestDefaultSlug(t *testing.T) {
	if got := DefaultSlug("content/notes/a.mdx", "content", models.NoOrdinal); got != "notes/a" {
		t.Errorf("file slug = %q", got)
	}
	if got := DefaultSlug("content/showcases.json", "content", 2); got != "showcases/2" {
		t.Errorf("record slug = %q", got)
	}
}

func hookMeta(rel string) HookMeta {
	return HookMeta{
		RelPath:    rel,
		ContentDir: "content",
		Links:      LinkConfig{RepoURL: "https://github.com/acme/ui", StorybookURL: "https://storybook.acme.dev"},
	}
}

func TestDocsHook(t *testing.T) {
	e := models.Entry{Collection: "docs", Data: map[string]any{"title": "Button"}}
	out, err := RunHook(DocsHook, "docs", e, hookMeta("content/docs/button.mdx"))
	if err != nil {
		t.Fatalf("RunHook: %v", err)
	}
	if out.Slug != "docs/button" || out.Data["slug"] != "docs/button" {
		t.Errorf("slug = %q / %v", out.Slug, out.Data["slug"])
	}
	if out.Data["category"] != "docs" {
		t.Errorf("category = %v", out.Data["category"])
	}
	links, ok := out.Data["links"].([]any)
	if !ok || len(links) != 3 {
		t.Fatalf("links = %#v", out.Data["links"])
	}
	want := []string{
		"https://github.com/acme/ui/tree/main/packages/react/src/components/button",
		"https://storybook.acme.dev/?path=/story/components-button-basic",
		"https://github.com/acme/ui/tree/main/packages/react/src/theme/recipes/button",
	}
	for i, l := range links {
		url := l.(map[string]any)["url"].(string)
		if url != want[i] || !strings.Contains(url, "button") {
			t.Errorf("link %d = %q, want %q", i, url, want[i])
		}
	}
	if _, ok := e.Data["slug"]; ok {
		t.Error("hook mutated the caller's entry")
	}
}

func TestDocsHook_KeepsExistingLinks(t *testing.T) {
	e := models.Entry{Data: map[string]any{"links": []any{map[string]any{"title": "Spec", "url": "/spec"}}}}
	out, err := RunHook(DocsHook, "docs", e, hookMeta("content/docs/forms/input.mdx"))
	if err != nil {
		t.Fatalf("RunHook: %v", err)
	}
	if links := out.Data["links"].([]any); len(links) != 4 {
		t.Errorf("links = %d, want 4", len(links))
	}
	if out.Data["category"] != "docs/forms" {
		t.Errorf("category = %v", out.Data["category"])
	}
}

func TestRunHook_ErrorsAndPanics(t *testing.T) {
	failing := func(models.Entry, HookMeta) (models.Entry, error) { return models.Entry{}, errors.New("nope") }
	panicking := func(models.Entry, HookMeta) (models.Entry, error) { panic("boom") }
	empty := func(e models.Entry, _ HookMeta) (models.Entry, error) { return e, nil }

	for name, h := range map[string]Hook{"error": failing, "panic": panicking, "empty slug": empty} {
		_, err := RunHook(h, "blog", models.Entry{Data: map[string]any{}}, hookMeta("content/blog/a.mdx"))
		var pte *apperr.PostTransformError
		if !errors.As(err, &pte) {
			t.Errorf("%s: error = %v, want PostTransformError", name, err)
			continue
		}
		if pte.Collection != "blog" || pte.SourcePath != "content/blog/a.mdx" {
			t.Errorf("%s: error = %+v", name, pte)
		}
	}
}

func TestBuiltin_Valid(t *testing.T) {
	defs := Builtin()
	if err := Check(defs); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if got := strings.Join(Names(defs), ","); got != "docs,notes,showcases,blog" {
		t.Errorf("names = %s", got)
	}
}

func TestCheck_Errors(t *testing.T) {
	base := Builtin()[1]
	bad := func(mut func(*Definition)) []Definition {
		d := base
		mut(&d)
		return []Definition{d}
	}
	cases := map[string][]Definition{
		"none":         nil,
		"no name":      bad(func(d *Definition) { d.Name = "" }),
		"bad glob":     bad(func(d *Definition) { d.Patterns = []string{"content/[notes"} }),
		"no patterns":  bad(func(d *Definition) { d.Patterns = nil }),
		"unknown hook": bad(func(d *Definition) { d.Hook = "magic" }),
		"bad schema":   bad(func(d *Definition) { d.Schema.Fields = nil }),
		"duplicate":    {base, base},
	}
	for name, defs := range cases {
		err := Check(defs)
		var cfgErr *apperr.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("%s: error = %v, want ConfigError", name, err)
		}
	}
}

func TestLoad(t *testing.T) {
	src := `
collections:
  - name: changelog
    patterns: ["content/changelog/*.md"]
    hook: slug
    schema:
      fields:
        - {name: title, kind: string}
        - {name: version, kind: string}
        - {name: body, kind: mdx}
`
	defs, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "changelog" || defs[0].Hook != "slug" || len(defs[0].Schema.Fields) != 3 {
		t.Errorf("defs = %+v", defs)
	}
	if _, err := Load([]byte("collections: [")); err == nil {
		t.Error("expected error for invalid YAML")
	}
}
