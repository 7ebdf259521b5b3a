package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrylabs/quarry/internal/backend"
	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/format"
	"github.com/quarrylabs/quarry/internal/usecase/guided"
	"github.com/quarrylabs/quarry/internal/usecase/inventory"
	"github.com/quarrylabs/quarry/internal/usecase/search"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
)

type mockIndex struct {
	stats backend.Stats
	hits  []domain.Hit
	err   error
}

func (m *mockIndex) Describe(context.Context) (backend.Stats, error) {
	return m.stats, m.err
}

func (m *mockIndex) Search(context.Context, backend.SearchParams) ([]domain.Hit, error) {
	return m.hits, m.err
}

func (m *mockIndex) SampleByVector(context.Context, string, []float32, int) ([]domain.Hit, error) {
	return m.hits, m.err
}

type recordReranker struct {
	calls int
}

func (r *recordReranker) Rerank(
	_ context.Context, _ string, docs []backend.RerankDocument, _ int,
) ([]backend.RerankedDocument, error) {
	r.calls++
	out := make([]backend.RerankedDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, backend.RerankedDocument{Score: 0.5, Document: doc})
	}
	return out, nil
}

func newTestServer(idx *mockIndex, debug bool) *Server {
	return newTestServerWith(idx, nil, debug)
}

func newTestServerWith(idx *mockIndex, reranker search.Reranker, debug bool) *Server {
	inv := inventory.New(idx, inventory.NewCache(0))
	gate := flowgate.New(0)
	svc := search.New(idx, nil, idx, reranker)
	reg := urlgen.NewRegistry()
	fmtr := format.New(reg)
	return NewServer(Options{
		Inventory:    inv,
		Gate:         gate,
		Search:       svc,
		Formatter:    fmtr,
		URLs:         reg,
		Orchestrator: guided.New(inv, gate, svc, fmtr),
		Debug:        debug,
	})
}

func testIndex() *mockIndex {
	return &mockIndex{
		stats: backend.Stats{
			Dimension: 4,
			Namespaces: map[string]backend.NamespaceStats{
				"policies": {RecordCount: 10},
			},
		},
		hits: []domain.Hit{{
			ID:    "c1",
			Score: 0.9,
			Fields: map[string]any{
				domain.ContentField: "chunk body",
				"document_number":   "P1",
			},
		}},
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func TestQueryRequiresSuggestionFirst(t *testing.T) {
	s := newTestServer(testIndex(), false)
	ctx := context.Background()

	res, _, err := s.query(ctx, nil, queryArgs{Query: "leave policy", Namespace: "policies"})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatal("expected gated error before suggest_query_params")
	}
	if !strings.Contains(textOf(t, res), "suggest_query_params") {
		t.Fatalf("error should point at the suggestion tool: %s", textOf(t, res))
	}

	if res, _, _ = s.suggestQueryParams(ctx, nil, suggestArgs{
		Namespace: "policies", Query: "leave policy",
	}); res.IsError {
		t.Fatalf("suggest failed: %s", textOf(t, res))
	}

	res, _, err = s.query(ctx, nil, queryArgs{Query: "leave policy", Namespace: "policies"})
	if err != nil || res.IsError {
		t.Fatalf("gated query after suggestion: err=%v body=%s", err, textOf(t, res))
	}

	var body queryResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if body.Total != 1 || body.Results[0].Content != "chunk body" {
		t.Fatalf("unexpected result body: %+v", body)
	}
}

func TestQueryReranksByDefault(t *testing.T) {
	rr := &recordReranker{}
	s := newTestServerWith(testIndex(), rr, false)
	ctx := context.Background()

	s.suggestQueryParams(ctx, nil, suggestArgs{Namespace: "policies", Query: "leave policy"})

	res, _, err := s.query(ctx, nil, queryArgs{Query: "leave policy", Namespace: "policies"})
	if err != nil || res.IsError {
		t.Fatalf("query failed: err=%v body=%s", err, textOf(t, res))
	}
	if rr.calls != 1 {
		t.Fatalf("omitted use_reranking should rerank, reranker calls = %d", rr.calls)
	}
	var body queryResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !body.Results[0].Reranked {
		t.Fatal("result not marked reranked")
	}

	off := false
	res, _, err = s.query(ctx, nil, queryArgs{
		Query: "leave policy", Namespace: "policies", UseReranking: &off,
	})
	if err != nil || res.IsError {
		t.Fatalf("query with use_reranking=false failed: %v", err)
	}
	if rr.calls != 1 {
		t.Fatalf("explicit false must skip the reranker, calls = %d", rr.calls)
	}
}

func TestQueryDocumentsChunkCap(t *testing.T) {
	idx := testIndex()
	idx.hits = []domain.Hit{
		{ID: "a-0", Score: 0.9, Fields: map[string]any{
			domain.ContentField: "first", "document_number": "P1", "chunk_index": float64(0),
		}},
		{ID: "a-1", Score: 0.8, Fields: map[string]any{
			domain.ContentField: "second", "document_number": "P1", "chunk_index": float64(1),
		}},
	}
	s := newTestServer(idx, false)
	ctx := context.Background()

	s.suggestQueryParams(ctx, nil, suggestArgs{Namespace: "policies", Query: "q"})

	res, _, err := s.queryDocuments(ctx, nil, queryDocumentsArgs{
		Query: "q", Namespace: "policies", MaxChunksPerDocument: 1,
	})
	if err != nil || res.IsError {
		t.Fatalf("query_documents failed: %v", err)
	}
	var body queryDocumentsResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(body.Documents) != 1 || body.Documents[0].ChunkCount != 1 {
		t.Fatalf("max_chunks_per_document=1 not honored: %+v", body.Documents)
	}
	if body.Documents[0].Content != "first" {
		t.Fatalf("content = %q", body.Documents[0].Content)
	}
}

func TestKeywordSearchBypassesGate(t *testing.T) {
	s := newTestServer(testIndex(), false)

	res, _, err := s.keywordSearch(context.Background(), nil, queryArgs{
		Query: "P1", Namespace: "policies",
	})
	if err != nil || res.IsError {
		t.Fatalf("keyword_search should not be gated: err=%v", err)
	}
}

func TestListNamespaces(t *testing.T) {
	s := newTestServer(testIndex(), false)

	res, _, err := s.listNamespaces(context.Background(), nil, listNamespacesArgs{})
	if err != nil || res.IsError {
		t.Fatalf("list_namespaces failed: %v", err)
	}
	var body listNamespacesResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(body.Namespaces) != 1 || body.Namespaces[0].Name != "policies" {
		t.Fatalf("namespaces = %+v", body.Namespaces)
	}
}

func TestInternalErrorsAreGenericUnlessDebug(t *testing.T) {
	idx := testIndex()
	idx.err = errors.New("connection refused to 10.0.0.5:6333")

	s := newTestServer(idx, false)
	res, _, _ := s.listNamespaces(context.Background(), nil, listNamespacesArgs{})
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if strings.Contains(textOf(t, res), "10.0.0.5") {
		t.Fatalf("internal detail leaked: %s", textOf(t, res))
	}

	s = newTestServer(idx, true)
	res, _, _ = s.listNamespaces(context.Background(), nil, listNamespacesArgs{})
	if !strings.Contains(textOf(t, res), "connection refused") {
		t.Fatalf("debug mode should surface the cause: %s", textOf(t, res))
	}
}

func TestValidationErrorsPassThrough(t *testing.T) {
	s := newTestServer(testIndex(), false)
	ctx := context.Background()

	s.suggestQueryParams(ctx, nil, suggestArgs{Namespace: "policies", Query: "q"})
	res, _, _ := s.query(ctx, nil, queryArgs{Query: "  ", Namespace: "policies"})
	if !res.IsError {
		t.Fatal("expected validation error")
	}
	var body errorBody
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Status != "error" || body.Message == "" {
		t.Fatalf("error body = %+v", body)
	}
}

func TestGenerateURLs(t *testing.T) {
	s := newTestServer(testIndex(), false)
	s.urls.Register("policies", urlgen.NewListArchive("https://archive.example.org"))

	res, _, err := s.generateURLs(context.Background(), nil, generateURLsArgs{
		Namespace: "policies",
		Items:     []map[string]any{{"doc_id": "abc"}},
	})
	if err != nil || res.IsError {
		t.Fatalf("generate_urls failed: %v", err)
	}
	var body generateURLsResult
	if err := json.Unmarshal([]byte(textOf(t, res)), &body); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if body.URLs[0].URL == nil || *body.URLs[0].URL != "https://archive.example.org/list/abc/" {
		t.Fatalf("urls = %+v", body.URLs)
	}
}
