package scanner_test

import (
	"errors"
	"iter"
	"testing"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/scanner"
	"github.com/starford/quire/internal/testutil"
)

func collect(t *testing.T, s iter.Seq2[*models.SourceFile, error]) ([]*models.SourceFile, []error) {
	t.Helper()
	var files []*models.SourceFile
	var errs []error
	for f, err := range s {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	return files, errs
}

func TestScan_ContentFiles(t *testing.T) {
	_, store := testutil.ContentRoot(t, map[string]string{
		"content/docs/button.mdx":      "---\ntitle: Button\n---\n# Button\n",
		"content/docs/forms/input.mdx": "# Input without frontmatter\n",
		"content/docs/notes.txt":       "ignored",
	})

	files, errs := collect(t, scanner.Scan(store, []string{"content/docs/**/*.mdx"}))
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if len(files) != 2 {
		t.Fatalf("files = %d, want 2", len(files))
	}
	if files[0].RelPath != "content/docs/button.mdx" || files[0].Frontmatter["title"] != "Button" {
		t.Errorf("first = %+v", files[0])
	}
	if string(files[0].Body) != "# Button\n" {
		t.Errorf("body = %q", files[0].Body)
	}
	if len(files[1].Frontmatter) != 0 || string(files[1].Body) != "# Input without frontmatter\n" {
		t.Errorf("second = %+v", files[1])
	}
	if files[0].Ordinal != models.NoOrdinal || files[0].Checksum == "" {
		t.Errorf("ordinal/checksum = %d/%q", files[0].Ordinal, files[0].Checksum)
	}
}

func TestScan_OverlappingPatternsDeduplicated(t *testing.T) {
	_, store := testutil.ContentRoot(t, map[string]string{
		"content/blog/a.mdx": "a",
		"content/blog/b.md":  "b",
	})
	files, _ := collect(t, scanner.Scan(store, []string{"content/blog/*.mdx", "content/blog/*", "content/blog/**/*.md"}))
	if len(files) != 2 {
		t.Fatalf("files = %d, want 2", len(files))
	}
}

func TestScan_FrontmatterErrorContinues(t *testing.T) {
	_, store := testutil.ContentRoot(t, map[string]string{
		"content/notes/a.mdx": "---\ntitle: [unclosed\n---\nbody\n",
		"content/notes/b.mdx": "---\ntitle: no end\n",
		"content/notes/c.mdx": "---\ntitle: ok\n---\n",
	})
	var got []string
	for f, err := range scanner.Scan(store, []string{"content/notes/*.mdx"}) {
		var fmErr *apperr.FrontmatterParseError
		if err != nil {
			if !errors.As(err, &fmErr) {
				t.Fatalf("error = %v, want FrontmatterParseError", err)
			}
			if fmErr.Path != f.RelPath {
				t.Errorf("error path = %q, record path = %q", fmErr.Path, f.RelPath)
			}
			got = append(got, "err:"+f.RelPath)
			continue
		}
		got = append(got, "ok:"+f.RelPath)
	}
	want := []string{"err:content/notes/a.mdx", "err:content/notes/b.mdx", "ok:content/notes/c.mdx"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScan_DataFileRecords(t *testing.T) {
	_, store := testutil.ContentRoot(t, map[string]string{
		"content/showcases.json": `[{"title":"Acme","url":"https://acme.dev","image":"/acme.png"},{"title":"Globex","url":"https://globex.dev","image":"/globex.png"}]`,
	})
	files, errs := collect(t, scanner.Scan(store, []string{"content/showcases.json"}))
	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if len(files) != 2 {
		t.Fatalf("records = %d, want 2", len(files))
	}
	for i, f := range files {
		if f.Ordinal != i {
			t.Errorf("record %d ordinal = %d", i, f.Ordinal)
		}
	}
	if files[1].Frontmatter["title"] != "Globex" {
		t.Errorf("record 1 = %v", files[1].Frontmatter)
	}
	if files[0].Checksum == files[1].Checksum {
		t.Error("records of one file must have distinct checksums")
	}
}

func TestScan_BadPattern(t *testing.T) {
	_, store := testutil.ContentRoot(t, nil)
	files, errs := collect(t, scanner.Scan(store, []string{"content/[docs"}))
	if len(errs) != 1 || len(files) != 0 {
		t.Fatalf("files=%d errs=%v", len(files), errs)
	}
}

func TestScan_EarlyBreak(t *testing.T) {
	_, store := testutil.ContentRoot(t, map[string]string{
		"a.md": "a", "b.md": "b", "c.md": "c",
	})
	n := 0
	for range scanner.Scan(store, []string{"*.md"}) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterations = %d", n)
	}
}
