// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only collection queries via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/catalog"
)

// ContractURI is the resource URI of the content format contract.
const ContractURI = "quire://content-format"

// Server wraps the MCP server with Quire tools.
type Server struct {
	mcp *server.MCPServer
	cat *catalog.Catalog
}

// New creates a new MCP server with all Quire tools registered.
func New(cat *catalog.Catalog, version string) *Server {
	s := &Server{cat: cat}

	s.mcp = server.NewMCPServer(
		"Quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the content collections with their schemas and entry counts."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_entries",
		mcp.WithDescription("List the entries of a collection sorted by slug. "+
			"Returns slugs, titles and source paths; use get_entry for the full data."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name (e.g. docs)")),
		mcp.WithString("prefix", mcp.Description("Optional slug prefix filter (e.g. docs/components/)")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listEntries)

	s.mcp.AddTool(mcp.NewTool("get_entry",
		mcp.WithDescription("Get one entry by slug, including its compiled HTML and table of contents."),
		mcp.WithString("collection", mcp.Required(), mcp.Description("Collection name")),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Entry slug (e.g. docs/button)")),
		mcp.WithString("field", mcp.Description("Optional single data field to return (e.g. toc)")),
	), s.getEntry)

	s.mcp.AddTool(mcp.NewTool("get_build_report",
		mcp.WithDescription("Report of the most recent build: entry counts and every failing file "+
			"with its error kind and validation violations."),
	), s.getBuildReport)

	s.mcp.AddTool(mcp.NewTool("get_content_contract",
		mcp.WithDescription("Returns the content authoring format: frontmatter rules, directives, "+
			"code block options and slug derivation. Call this before explaining build failures."),
	), s.getContentContract)

	// Resource: content format contract.
	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Content Format Contract",
			mcp.WithResourceDescription("Authoring format accepted by the content pipeline."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func lookupError(what string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", what))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.cat.Collections()), nil
}

type entryItem struct {
	Slug       string `json:"slug"`
	Title      string `json:"title,omitempty"`
	SourcePath string `json:"source_path"`
}

func (s *Server) listEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, total, err := s.cat.Entries(name, catalog.ListOptions{
		Limit:  req.GetInt("limit", catalog.DefaultLimit),
		Offset: req.GetInt("offset", 0),
		Prefix: req.GetString("prefix", ""),
	})
	if err != nil {
		return lookupError("collection "+name, err), nil
	}
	items := make([]entryItem, len(entries))
	for i, e := range entries {
		items[i] = entryItem{Slug: e.Slug, Title: e.String("title"), SourcePath: e.SourcePath}
	}
	return jsonResult(map[string]any{"entries": items, "total": total}), nil
}

func (s *Server) getEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("collection")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.cat.Entry(name, slug)
	if err != nil {
		return lookupError(name+"/"+slug, err), nil
	}
	if field := req.GetString("field", ""); field != "" {
		v, ok := e.Data[field]
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("entry %s has no field %q", slug, field)), nil
		}
		if str, ok := v.(string); ok {
			return mcp.NewToolResultText(str), nil
		}
		return jsonResult(v), nil
	}
	return jsonResult(e), nil
}

func (s *Server) getBuildReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.cat.Report()
	if err != nil {
		return lookupError("build report", err), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) getContentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ContentFormatContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     ContentFormatContract,
		},
	}, nil
}
