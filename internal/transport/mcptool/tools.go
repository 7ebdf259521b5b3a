package mcptool

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/format"
	"github.com/quarrylabs/quarry/internal/usecase/guided"
	"github.com/quarrylabs/quarry/internal/usecase/router"
	"github.com/quarrylabs/quarry/internal/usecase/search"
	"github.com/quarrylabs/quarry/internal/usecase/suggest"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
)

type listNamespacesArgs struct{}

type listNamespacesResult struct {
	Namespaces []domain.NamespaceInfo `json:"namespaces"`
	CacheHit   bool                   `json:"cache_hit"`
	ExpiresAt  string                 `json:"cache_expires_at"`
}

func (s *Server) listNamespaces(
	ctx context.Context, _ *mcp.CallToolRequest, _ listNamespacesArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "list_namespaces")
	inv, err := s.inventory.List(ctx)
	done(err)
	if err != nil {
		return s.fail("list_namespaces", err)
	}
	return respond(listNamespacesResult{
		Namespaces: inv.Data,
		CacheHit:   inv.CacheHit,
		ExpiresAt:  inv.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}

type namespaceRouterArgs struct {
	Query string `json:"query" jsonschema:"natural-language query to route"`
	TopN  int    `json:"top_n,omitempty" jsonschema:"number of candidates to return (max 5)"`
}

type namespaceRouterResult struct {
	Candidates []router.Candidate `json:"candidates"`
}

func (s *Server) namespaceRouter(
	ctx context.Context, _ *mcp.CallToolRequest, args namespaceRouterArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "namespace_router")
	inv, err := s.inventory.List(ctx)
	done(err)
	if err != nil {
		return s.fail("namespace_router", err)
	}
	topN := clamp(args.TopN, maxRouterTopN, maxRouterTopN)
	return respond(namespaceRouterResult{
		Candidates: router.Rank(args.Query, inv.Data, topN),
	})
}

type suggestArgs struct {
	Namespace string `json:"namespace" jsonschema:"namespace the query targets"`
	Query     string `json:"query" jsonschema:"the user's natural-language query"`
}

func (s *Server) suggestQueryParams(
	ctx context.Context, _ *mcp.CallToolRequest, args suggestArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "suggest_query_params")

	ns, err := s.inventory.Lookup(ctx, args.Namespace)
	if err != nil && !errors.Is(err, domain.ErrNamespaceNotFound) {
		done(err)
		return s.fail("suggest_query_params", err)
	}
	done(nil)

	var schema map[string]domain.Kind
	if err == nil {
		schema = ns.Fields
		if schema == nil {
			schema = map[string]domain.Kind{}
		}
	}

	sg := suggest.Suggest(schema, args.Query)
	if sg.NamespaceFound {
		s.gate.MarkSuggested(args.Namespace, flowState(sg, args.Query))
	}
	return respond(sg)
}

type countArgs struct {
	Query     string         `json:"query" jsonschema:"what to count"`
	Namespace string         `json:"namespace" jsonschema:"namespace to count in"`
	Filter    map[string]any `json:"filter,omitempty" jsonschema:"metadata filter with $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin operators"`
}

func (s *Server) count(
	ctx context.Context, _ *mcp.CallToolRequest, args countArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "count")
	if _, err := s.gate.Require(args.Namespace); err != nil {
		done(err)
		return s.fail("count", err)
	}
	res, err := s.search.Count(ctx, args.Query, args.Namespace, args.Filter)
	done(err)
	if err != nil {
		return s.fail("count", err)
	}
	return respond(res)
}

type queryArgs struct {
	Query        string         `json:"query" jsonschema:"search query text"`
	Namespace    string         `json:"namespace" jsonschema:"namespace to search"`
	TopK         int            `json:"top_k,omitempty" jsonschema:"number of results (default 10, max 100)"`
	Filter       map[string]any `json:"filter,omitempty" jsonschema:"metadata filter with $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin operators"`
	Fields       []string       `json:"fields,omitempty" jsonschema:"metadata fields to return"`
	UseReranking *bool          `json:"use_reranking,omitempty" jsonschema:"rerank results for relevance (default true)"`
	EnrichURLs   *bool          `json:"enrich_urls,omitempty" jsonschema:"derive source URLs from metadata (default true)"`
}

func (s *Server) query(
	ctx context.Context, _ *mcp.CallToolRequest, args queryArgs,
) (*mcp.CallToolResult, any, error) {
	// Reranking is opt-out here; query_fast is the opt-in-free fast path.
	rerank := args.UseReranking == nil || *args.UseReranking
	return s.runQuery(ctx, "query", args, rerank)
}

func (s *Server) queryFast(
	ctx context.Context, _ *mcp.CallToolRequest, args queryArgs,
) (*mcp.CallToolResult, any, error) {
	return s.runQuery(ctx, "query_fast", args, false)
}

func (s *Server) queryDetailed(
	ctx context.Context, _ *mcp.CallToolRequest, args queryArgs,
) (*mcp.CallToolResult, any, error) {
	return s.runQuery(ctx, "query_detailed", args, true)
}

type queryResult struct {
	Results []format.Row `json:"results"`
	Total   int          `json:"total"`
}

func (s *Server) runQuery(
	ctx context.Context, tool string, args queryArgs, rerank bool,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, tool)

	state, err := s.gate.Require(args.Namespace)
	if err != nil {
		done(err)
		return s.fail(tool, err)
	}
	fields := args.Fields
	if len(fields) == 0 {
		fields = state.SuggestedFields
	}

	results, err := s.search.Query(ctx, search.QueryParams{
		Query:        args.Query,
		Namespace:    args.Namespace,
		TopK:         clamp(args.TopK, defaultTopK, maxQueryTopK),
		Filter:       args.Filter,
		Fields:       fields,
		UseReranking: rerank,
	})
	done(err)
	if err != nil {
		return s.fail(tool, err)
	}

	rows := s.formatter.Rows(results, args.Namespace, enrich(args.EnrichURLs))
	return respond(queryResult{Results: rows, Total: len(rows)})
}

func (s *Server) keywordSearch(
	ctx context.Context, _ *mcp.CallToolRequest, args queryArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "keyword_search")
	results, err := s.search.KeywordSearch(ctx, search.QueryParams{
		Query:     args.Query,
		Namespace: args.Namespace,
		TopK:      clamp(args.TopK, defaultTopK, maxQueryTopK),
		Filter:    args.Filter,
		Fields:    args.Fields,
	})
	done(err)
	if err != nil {
		return s.fail("keyword_search", err)
	}
	rows := s.formatter.Rows(results, args.Namespace, enrich(args.EnrichURLs))
	return respond(queryResult{Results: rows, Total: len(rows)})
}

type queryDocumentsArgs struct {
	Query                string         `json:"query" jsonschema:"search query text"`
	Namespace            string         `json:"namespace" jsonschema:"namespace to search"`
	TopK                 int            `json:"top_k,omitempty" jsonschema:"number of documents (default 5, max 20)"`
	Filter               map[string]any `json:"filter,omitempty" jsonschema:"metadata filter with $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin operators"`
	MaxChunksPerDocument int            `json:"max_chunks_per_document,omitempty" jsonschema:"cap on chunks stitched into each document"`
}

type queryDocumentsResult struct {
	Documents []domain.ReassembledDocument `json:"documents"`
	Total     int                          `json:"total"`
}

func (s *Server) queryDocuments(
	ctx context.Context, _ *mcp.CallToolRequest, args queryDocumentsArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "query_documents")

	if _, err := s.gate.Require(args.Namespace); err != nil {
		done(err)
		return s.fail("query_documents", err)
	}

	// Fetch at the chunk ceiling so every returned document can be rebuilt
	// from as many of its chunks as matched.
	results, err := s.search.Query(ctx, search.QueryParams{
		Query:     args.Query,
		Namespace: args.Namespace,
		TopK:      documentChunkFetch,
		Filter:    args.Filter,
	})
	done(err)
	if err != nil {
		return s.fail("query_documents", err)
	}

	docs := format.Reassemble(results, format.ReassembleOptions{
		MaxChunks: clamp(args.MaxChunksPerDocument, s.maxChunks, s.maxChunks),
	})
	topK := clamp(args.TopK, 5, s.maxDocTopK)
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return respond(queryDocumentsResult{Documents: docs, Total: len(docs)})
}

type guidedQueryArgs struct {
	Query      string         `json:"query" jsonschema:"the user's natural-language query"`
	Namespace  string         `json:"namespace,omitempty" jsonschema:"namespace to search; omit to auto-route"`
	Filter     map[string]any `json:"filter,omitempty" jsonschema:"metadata filter with $eq/$ne/$gt/$gte/$lt/$lte/$in/$nin operators"`
	TopK       int            `json:"top_k,omitempty" jsonschema:"number of results (default 10)"`
	Tool       string         `json:"tool,omitempty" jsonschema:"force a tool: count, query_fast, or query_detailed (default auto)"`
	EnrichURLs *bool          `json:"enrich_urls,omitempty" jsonschema:"derive source URLs from metadata (default true)"`
}

func (s *Server) guidedQuery(
	ctx context.Context, _ *mcp.CallToolRequest, args guidedQueryArgs,
) (*mcp.CallToolResult, any, error) {
	ctx, done := s.begin(ctx, "guided_query")
	out, err := s.orchestrator.Run(ctx, guided.Params{
		UserQuery:     args.Query,
		Namespace:     args.Namespace,
		Filter:        args.Filter,
		TopK:          args.TopK,
		PreferredTool: args.Tool,
		EnrichURLs:    args.EnrichURLs,
	})
	done(err)
	if err != nil {
		return s.fail("guided_query", err)
	}
	return respond(out)
}

type generateURLsArgs struct {
	Namespace string           `json:"namespace" jsonschema:"namespace the records belong to"`
	Items     []map[string]any `json:"items" jsonschema:"metadata of the records to derive URLs for"`
}

type generateURLsResult struct {
	URLs []urlgen.Result `json:"urls"`
}

func (s *Server) generateURLs(
	ctx context.Context, _ *mcp.CallToolRequest, args generateURLsArgs,
) (*mcp.CallToolResult, any, error) {
	_, done := s.begin(ctx, "generate_urls")
	results := make([]urlgen.Result, 0, len(args.Items))
	for _, item := range args.Items {
		results = append(results, s.urls.Generate(args.Namespace, domain.MetadataOf(item)))
	}
	done(nil)
	return respond(generateURLsResult{URLs: results})
}

func flowState(sg suggest.Suggestion, query string) flowgate.State {
	return flowgate.State{
		RecommendedTool: sg.RecommendedTool,
		SuggestedFields: sg.SuggestedFields,
		UserQuery:       query,
	}
}

func enrich(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}
