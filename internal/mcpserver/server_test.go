package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/catalog"
	"github.com/starford/quire/internal/collections"
	"github.com/starford/quire/internal/compiler"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/testutil"
)

func testServer(t *testing.T, files map[string]string) *Server {
	t.Helper()
	_, store := testutil.ContentRoot(t, files)
	comp, err := compiler.New(compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	p, err := pipeline.New(store, collections.Builtin(), comp, pipeline.Config{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(p)
	if _, err := cat.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	return New(cat, "test")
}

var fixture = map[string]string{
	"content/docs/button.mdx": testutil.ButtonDoc,
	"content/docs/input.mdx":  "---\ntitle: Input\ndescription: Text field\n---\n",
	"content/blog/bad.mdx":    "---\ntitle: Bad\ntype: tutorial\ndescription: x\nauthors: []\npublishedAt: 2024-05-01\n---\n",
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_collections":
		result, err = srv.listCollections(ctx, req)
	case "list_entries":
		result, err = srv.listEntries(ctx, req)
	case "get_entry":
		result, err = srv.getEntry(ctx, req)
	case "get_build_report":
		result, err = srv.getBuildReport(ctx, req)
	case "get_content_contract":
		result, err = srv.getContentContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListCollections(t *testing.T) {
	srv := testServer(t, fixture)
	var infos []catalog.CollectionInfo
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_collections", nil))), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 4 || infos[0].Name != "docs" || infos[0].Count != 2 {
		t.Errorf("collections = %+v", infos)
	}
}

func TestListEntries(t *testing.T) {
	srv := testServer(t, fixture)
	r := callTool(t, srv, "list_entries", map[string]any{"collection": "docs", "limit": 1})
	var resp struct {
		Entries []entryItem `json:"entries"`
		Total   int         `json:"total"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Entries) != 1 || resp.Entries[0].Slug != "docs/button" || resp.Entries[0].Title != "Button" {
		t.Errorf("resp = %+v", resp)
	}

	if r := callTool(t, srv, "list_entries", map[string]any{}); !r.IsError {
		t.Error("expected error without collection")
	}
	if r := callTool(t, srv, "list_entries", map[string]any{"collection": "nope"}); !r.IsError {
		t.Error("expected error for unknown collection")
	}
}

func TestGetEntry(t *testing.T) {
	srv := testServer(t, fixture)
	r := callTool(t, srv, "get_entry", map[string]any{"collection": "docs", "slug": "docs/button"})
	if r.IsError {
		t.Fatalf("get_entry: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"category": "docs"`) {
		t.Errorf("entry missing category: %s", resultText(r))
	}

	r = callTool(t, srv, "get_entry", map[string]any{"collection": "docs", "slug": "docs/button", "field": "code"})
	if !strings.Contains(resultText(r), `<span class="line highlighted">`) {
		t.Errorf("code field = %s", resultText(r))
	}

	r = callTool(t, srv, "get_entry", map[string]any{"collection": "docs", "slug": "docs/missing"})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("missing entry = %+v", r)
	}
}

func TestGetBuildReport(t *testing.T) {
	srv := testServer(t, fixture)
	r := callTool(t, srv, "get_build_report", nil)
	var rep pipeline.Report
	if err := json.Unmarshal([]byte(resultText(r)), &rep); err != nil {
		t.Fatal(err)
	}
	failures := rep.FailuresFor("blog")
	if len(failures) != 1 || failures[0].Violations[0] != "enum:type" {
		t.Errorf("failures = %+v", rep.Failures)
	}
}

func TestGetContentContract(t *testing.T) {
	srv := testServer(t, nil)
	if text := resultText(callTool(t, srv, "get_content_contract", nil)); text != ContentFormatContract {
		t.Error("contract mismatch")
	}
}
