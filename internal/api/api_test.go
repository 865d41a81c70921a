package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/compiler"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/testutil"
)

// testEnv builds a content root, runs one build, and returns the router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	_, store := testutil.ContentRoot(t, map[string]string{
		"content/docs/button.mdx": testutil.ButtonDoc,
		"content/docs/input.mdx":  "---\ntitle: Input\ndescription: Text field\n---\n\n## Props\n",
		"content/showcases.json":  `[{"title": "Acme", "url": "https://acme.dev", "image": "/acme.png"}]`,
	})
	comp, err := compiler.New(compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(store, collections.Builtin(), comp, pipeline.Config{
		Links: collections.LinkConfig{RepoURL: "https://github.com/quire/ui", StorybookURL: "https://storybook.quire.dev"},
	})
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(p, catalog.WithIndex(testutil.TestDB(t)))
	if _, err := cat.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return NewRouter(cat, authToken != "", authToken, nil)
}

func get(t *testing.T, router http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListCollections(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/collections")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp CollectionListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Collections) != 4 || resp.Collections[0].Name != "docs" || resp.Collections[0].Count != 2 {
		t.Errorf("collections = %+v", resp.Collections)
	}
}

func TestGetCollection(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/collections/showcases"); w.Code != http.StatusOK {
		t.Errorf("showcases status = %d", w.Code)
	}
	if w := get(t, router, "/collections/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestListEntries(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/collections/docs/entries?limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EntryListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Entries) != 1 || resp.Entries[0].Slug != "docs/button" {
		t.Errorf("resp = %+v", resp)
	}

	w = get(t, router, "/collections/docs/entries?prefix=docs/in")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Entries[0].Slug != "docs/input" {
		t.Errorf("prefix resp = %+v", resp)
	}

	if w := get(t, router, "/collections/nope/entries"); w.Code != http.StatusNotFound {
		t.Errorf("unknown collection status = %d", w.Code)
	}
}

func TestGetEntry(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/collections/docs/entries/docs/button")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var e Entry
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.Data["category"] != "docs" || e.Data["title"] != "Button" {
		t.Errorf("entry = %+v", e.Data)
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	if w := get(t, router, "/collections/docs/entries/docs/button", "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Errorf("conditional status = %d, want 304", w.Code)
	}
	if w := get(t, router, "/collections/docs/entries/docs%2Finput"); w.Code != http.StatusOK {
		t.Errorf("encoded slug status = %d", w.Code)
	}
	if w := get(t, router, "/collections/showcases/entries/showcases/0"); w.Code != http.StatusOK {
		t.Errorf("showcase status = %d", w.Code)
	}
	if w := get(t, router, "/collections/docs/entries/docs/missing"); w.Code != http.StatusNotFound {
		t.Errorf("missing entry status = %d, want 404", w.Code)
	}
}

func TestReportAndBuilds(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/report")
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	var rep pipeline.Report
	if err := json.Unmarshal(w.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Counts["docs"] != 2 || !rep.OK() {
		t.Errorf("report = %+v", rep)
	}

	w = get(t, router, "/builds")
	var builds BuildListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &builds); err != nil {
		t.Fatal(err)
	}
	if len(builds.Builds) != 1 || builds.Builds[0].Entries != 3 {
		t.Errorf("builds = %+v", builds.Builds)
	}
}

func TestAuthToken(t *testing.T) {
	router := testEnv(t, "secret")
	if w := get(t, router, "/collections"); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w := get(t, router, "/collections", "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	if w := get(t, router, "/collections", "Authorization", "Bearer secret"); w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
	w := get(t, router, "/collections?access_token=secret")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token outside the event stream = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); !strings.HasPrefix(got, "Bearer") {
		t.Errorf("WWW-Authenticate = %q", got)
	}
}

func TestAuthMiddleware_EventStreamQueryToken(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := AuthMiddleware(true, "secret")(ok)
	for target, want := range map[string]int{
		"/events?access_token=secret": http.StatusNoContent,
		"/events?access_token=nope":   http.StatusUnauthorized,
		"/events":                     http.StatusUnauthorized,
	} {
		if w := get(t, h, target); w.Code != want {
			t.Errorf("%s = %d, want %d", target, w.Code, want)
		}
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	if w := get(t, AuthMiddleware(false, "")(ok), "/collections"); w.Code != http.StatusNoContent {
		t.Errorf("disabled = %d", w.Code)
	}
}
