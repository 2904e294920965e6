// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Bock tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/articlepath"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/wiki"
)

// Server wraps the MCP server with Bock tools.
type Server struct {
	mcp *server.MCPServer
	svc *wiki.Service
}

// New creates a new MCP server with all Bock tools registered.
func New(svc *wiki.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Bock",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through article names, contents and paths. "+
			"Returns matching paths with highlighted snippets."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search term, at least 3 characters")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read the Markdown source of an article."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path or route (e.g. Tech Notes/Shell)")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List all articles, or the sub-folders and articles of one folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all articles)")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List the commits that touched an article, newest first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path or route of the article")),
	), s.listRevisions)

	s.mcp.AddTool(mcp.NewTool("read_revision",
		mcp.WithDescription("Read an article as it was at one revision."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path or route of the article")),
		mcp.WithString("revision", mcp.Required(), mcp.Description("Commit id or a prefix of at least 4 characters")),
	), s.readRevision)

	s.mcp.AddTool(mcp.NewTool("diff_revisions",
		mcp.WithDescription("Unified diff of an article between two revisions."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Logical path or route of the article")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Older revision id")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Newer revision id")),
	), s.diffRevisions)

	s.mcp.AddResource(
		mcp.NewResource(LayoutURI, "Article Layout",
			mcp.WithResourceDescription("How articles, routes and revisions are addressed."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
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

// requirePath reads the "path" argument, accepting routes as well.
func requirePath(req mcp.CallToolRequest) (models.ArticlePath, error) {
	raw, err := req.RequireString("path")
	if err != nil {
		return models.ArticlePath{}, err
	}
	return articlepath.ParseRoute(strings.TrimSuffix(raw, articlepath.Extension)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.Article(ctx, p)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", p)), nil
		}
		return toolError(err), nil
	}
	return mcp.NewToolResultText(a.Source), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = articlepath.FromRoute(strings.Trim(f, "/"))
	}
	if folder == "" {
		items, err := s.svc.Articles(ctx)
		if err != nil {
			return toolError(err), nil
		}
		paths := make([]string, 0, len(items))
		for _, it := range items {
			paths = append(paths, it.Path)
		}
		return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
	}

	f, err := s.svc.Folder(ctx, folder)
	if err != nil {
		return toolError(err), nil
	}
	var lines []string
	for _, e := range f.Folders {
		lines = append(lines, articlepath.FromRoute(e.Route)+"/")
	}
	for _, e := range f.Articles {
		lines = append(lines, articlepath.FromRoute(e.Route))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	revs, err := s.svc.Revisions(ctx, p)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(revs), nil
}

func (s *Server) readRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireString("revision")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rev, err := s.svc.Revision(ctx, p, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(rev.Content), nil
}

func (s *Server) diffRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireString("from")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireString("to")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.Diff(ctx, p, from, to)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) readLayoutResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      LayoutURI,
			MIMEType: "text/markdown",
			Text:     ArticleLayout,
		},
	}, nil
}
