package parser

import (
	"errors"
	"testing"

	"github.com/starford/quire/internal/apperr"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Button\ndescription: A clickable element\nlinks:\n  - title: Docs\n    url: /docs\n---\n# Button\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter["title"] != "Button" {
		t.Errorf("title = %v, want Button", r.Frontmatter["title"])
	}
	links, ok := r.Frontmatter["links"].([]any)
	if !ok || len(links) != 1 {
		t.Fatalf("links = %#v", r.Frontmatter["links"])
	}
	if string(r.Body) != "# Button\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if !r.HadFrontmatter {
		t.Error("HadFrontmatter = false")
	}
}

func TestParse_CRLF(t *testing.T) {
	r, err := Parse([]byte("---\r\ntitle: Win\r\n---\r\nBody\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter["title"] != "Win" {
		t.Errorf("title = %v", r.Frontmatter["title"])
	}
	if string(r.Body) != "Body\r\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	input := []byte("# Just a heading\nSome text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Frontmatter) != 0 {
		t.Errorf("expected empty frontmatter, got %v", r.Frontmatter)
	}
	if string(r.Body) != string(input) {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_EmptyBlock(t *testing.T) {
	r, err := Parse([]byte("---\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r.Frontmatter) != 0 || string(r.Body) != "Body\n" {
		t.Errorf("got fm=%v body=%q", r.Frontmatter, r.Body)
	}
}

func TestParse_Unterminated(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: Open\nno closing\n"))
	var fmErr *apperr.FrontmatterParseError
	if !errors.As(err, &fmErr) {
		t.Fatalf("error = %v, want FrontmatterParseError", err)
	}
	if !errors.Is(err, ErrMissingClosingDelimiter) {
		t.Errorf("error should wrap ErrMissingClosingDelimiter: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	var fmErr *apperr.FrontmatterParseError
	if !errors.As(err, &fmErr) {
		t.Fatalf("error = %v, want FrontmatterParseError", err)
	}
}

func TestParse_NonMappingBlock(t *testing.T) {
	_, err := Parse([]byte("---\n- a\n- b\n---\nBody\n"))
	var fmErr *apperr.FrontmatterParseError
	if !errors.As(err, &fmErr) {
		t.Fatalf("error = %v, want FrontmatterParseError", err)
	}
}

func TestParseData_JSONArray(t *testing.T) {
	data := []byte(`[{"title":"Acme","url":"https://acme.dev","image":"/a.png","stars":12},{"title":"Beta","url":"https://beta.dev","image":"/b.png"}]`)
	records, multi, err := ParseData("content/showcases.json", data)
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if !multi || len(records) != 2 {
		t.Fatalf("multi=%v len=%d", multi, len(records))
	}
	if records[0]["stars"] != 12 {
		t.Errorf("stars = %#v, want int 12", records[0]["stars"])
	}
}

func TestParseData_YAMLObject(t *testing.T) {
	records, multi, err := ParseData("content/site.yaml", []byte("title: Site\n"))
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if multi || len(records) != 1 || records[0]["title"] != "Site" {
		t.Errorf("records = %v multi = %v", records, multi)
	}
}

func TestParse_TimestampsStayStrings(t *testing.T) {
	r, err := Parse([]byte("---\ntitle: Release\npublishedAt: 2024-05-01\nhistory:\n  - 2023-01-02T10:00:00Z\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter["publishedAt"] != "2024-05-01" {
		t.Errorf("publishedAt = %#v, want string", r.Frontmatter["publishedAt"])
	}
	history, ok := r.Frontmatter["history"].([]any)
	if !ok || len(history) != 1 || history[0] != "2023-01-02T10:00:00Z" {
		t.Errorf("history = %#v", r.Frontmatter["history"])
	}
}

func TestParseData_YAMLTimestamps(t *testing.T) {
	records, _, err := ParseData("content/events.yml", []byte("- title: Launch\n  date: 2024-05-01\n  seats: 3\n"))
	if err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if records[0]["date"] != "2024-05-01" || records[0]["seats"] != 3 {
		t.Errorf("record = %#v", records[0])
	}
}

func TestParseData_EmptyYAML(t *testing.T) {
	if _, _, err := ParseData("content/empty.yaml", nil); err == nil {
		t.Error("expected error for empty data file")
	}
}

func TestParseData_RejectsScalars(t *testing.T) {
	if _, _, err := ParseData("x.json", []byte(`[1, 2]`)); err == nil {
		t.Error("expected error for non-object records")
	}
	if _, _, err := ParseData("x.json", []byte(`"text"`)); err == nil {
		t.Error("expected error for scalar document")
	}
}

func TestIsDataFile(t *testing.T) {
	for path, want := range map[string]bool{
		"content/showcases.json": true,
		"content/a.YAML":         true,
		"content/b.yml":          true,
		"content/docs/a.mdx":     false,
	} {
		if got := IsDataFile(path); got != want {
			t.Errorf("IsDataFile(%q) = %v, want %v", path, got, want)
		}
	}
}
