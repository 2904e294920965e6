package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/bock/internal/history"
	"github.com/starford/bock/internal/index"
	"github.com/starford/bock/internal/models"
	"github.com/starford/bock/internal/render"
	"github.com/starford/bock/internal/testutil"
	"github.com/starford/bock/internal/wiki"
)

func testServer(t *testing.T) (*Server, *testutil.Wiki) {
	t.Helper()
	w := testutil.NewWiki(t)
	store := w.Store()
	repo, err := history.Open(w.Root, store, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	svc := wiki.NewService(store, repo, w.IndexConfig(), render.New(), testutil.Logger())
	return New(svc, "test"), w
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_articles":
		result, err = srv.searchArticles(ctx, req)
	case "read_article":
		result, err = srv.readArticle(ctx, req)
	case "list_articles":
		result, err = srv.listArticles(ctx, req)
	case "list_revisions":
		result, err = srv.listRevisions(ctx, req)
	case "read_revision":
		result, err = srv.readRevision(ctx, req)
	case "diff_revisions":
		result, err = srv.diffRevisions(ctx, req)
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

func TestReadArticle(t *testing.T) {
	srv, w := testServer(t)
	w.Write("Tech Notes/Shell.md", "# Shell\nHello")
	w.Commit("add")

	for _, path := range []string{"Tech Notes/Shell", "Tech_Notes/Shell", "Tech Notes/Shell.md"} {
		r := callTool(t, srv, "read_article", map[string]interface{}{"path": path})
		if text := resultText(r); text != "# Shell\nHello" {
			t.Errorf("read %q = %q", path, text)
		}
	}
}

func TestReadArticleMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_article", map[string]interface{}{"path": "nope"})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
	r = callTool(t, srv, "read_article", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error for missing path argument")
	}
}

func TestListArticles(t *testing.T) {
	srv, w := testServer(t)
	w.Write("a.md", "a")
	w.Write("ns/b.md", "b")
	w.Write("ns/sub/c.md", "c")
	w.Commit("add")

	r := callTool(t, srv, "list_articles", map[string]interface{}{})
	if text := resultText(r); text != "a\nns/b\nns/sub/c" {
		t.Errorf("list all = %q", text)
	}

	r = callTool(t, srv, "list_articles", map[string]interface{}{"folder": "ns"})
	if text := resultText(r); text != "ns/sub/\nns/b" {
		t.Errorf("list folder = %q", text)
	}

	r = callTool(t, srv, "list_articles", map[string]interface{}{"folder": "missing"})
	if !r.IsError {
		t.Error("expected error for missing folder")
	}
}

func TestRevisionTools(t *testing.T) {
	srv, w := testServer(t)
	w.Write("ns/article.md", "v1\n")
	c1 := w.Commit("first")
	w.Write("ns/article.md", "v2\n")
	c2 := w.Commit("second")

	r := callTool(t, srv, "list_revisions", map[string]interface{}{"path": "ns/article"})
	var revs []models.Revision
	if err := json.Unmarshal([]byte(resultText(r)), &revs); err != nil {
		t.Fatalf("revisions json: %v", err)
	}
	if len(revs) != 2 || revs[0].ID != c2 {
		t.Errorf("revisions = %+v", revs)
	}

	r = callTool(t, srv, "read_revision", map[string]interface{}{"path": "ns/article", "revision": c1[:6]})
	if text := resultText(r); text != "v1\n" {
		t.Errorf("read_revision = %q", text)
	}

	r = callTool(t, srv, "diff_revisions", map[string]interface{}{"path": "ns/article", "from": c1, "to": c2})
	text := resultText(r)
	if !strings.Contains(text, "-v1") || !strings.Contains(text, "+v2") {
		t.Errorf("diff = %q", text)
	}

	r = callTool(t, srv, "read_revision", map[string]interface{}{"path": "ns/article", "revision": "ffff"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("unknown revision = %q", resultText(r))
	}
}

func TestSearchArticles(t *testing.T) {
	srv, w := testServer(t)
	w.Write("guide.md", "kubernetes pods\n")
	w.Commit("add")

	r := callTool(t, srv, "search_articles", map[string]interface{}{"query": "kubernetes"})
	if !r.IsError {
		t.Error("expected error before the index exists")
	}

	w.BuildIndex()
	r = callTool(t, srv, "search_articles", map[string]interface{}{"query": "kubernetes"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	var res index.SearchResults
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Count != 1 || res.Results[0].Path != "guide" {
		t.Errorf("results = %+v", res)
	}

	r = callTool(t, srv, "search_articles", map[string]interface{}{"query": "ku"})
	if !r.IsError {
		t.Error("expected error for a short query")
	}
}

func TestLayoutResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readLayoutResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != LayoutURI || !strings.Contains(tc.Text, "Routes replace spaces") {
		t.Errorf("resource = %+v", contents[0])
	}
}
