// Package mcptool exposes the retrieval layer as MCP tools over stdio.
package mcptool

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/internal/logger"
	"github.com/quarrylabs/quarry/internal/metrics"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/format"
	"github.com/quarrylabs/quarry/internal/usecase/guided"
	"github.com/quarrylabs/quarry/internal/usecase/inventory"
	"github.com/quarrylabs/quarry/internal/usecase/search"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
)

// Tool parameter ceilings. Query tools clamp top_k to the hybrid search
// limit; the document tool returns far fewer items because each one is a
// whole reassembled document.
const (
	defaultTopK        = 10
	maxQueryTopK       = 100
	maxDocumentTopK    = 20
	maxDocumentChunks  = 200
	maxRouterTopN      = 5
	documentChunkFetch = 100
)

// Server registers the retrieval tools on an MCP server.
type Server struct {
	inventory    *inventory.Service
	gate         *flowgate.Gate
	search       *search.Service
	formatter    *format.Formatter
	urls         *urlgen.Registry
	orchestrator *guided.Orchestrator
	log          *zap.Logger
	debug        bool
	maxDocTopK   int
	maxChunks    int
}

// Options carries the wired use cases.
type Options struct {
	Inventory    *inventory.Service
	Gate         *flowgate.Gate
	Search       *search.Service
	Formatter    *format.Formatter
	URLs         *urlgen.Registry
	Orchestrator *guided.Orchestrator
	Logger       *zap.Logger
	Debug        bool

	// Zero means the package default.
	MaxDocumentTopK      int
	MaxChunksPerDocument int
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxDocTopK := opts.MaxDocumentTopK
	if maxDocTopK <= 0 {
		maxDocTopK = maxDocumentTopK
	}
	maxChunks := opts.MaxChunksPerDocument
	if maxChunks <= 0 {
		maxChunks = maxDocumentChunks
	}
	return &Server{
		inventory:    opts.Inventory,
		gate:         opts.Gate,
		search:       opts.Search,
		formatter:    opts.Formatter,
		urls:         opts.URLs,
		orchestrator: opts.Orchestrator,
		log:          log,
		debug:        opts.Debug,
		maxDocTopK:   maxDocTopK,
		maxChunks:    maxChunks,
	}
}

// Register adds every tool to the MCP server.
func (s *Server) Register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name: "list_namespaces",
		Description: "List all namespaces in the search index with record counts and " +
			"metadata field schemas. Call this first to discover what data is available.",
	}, s.listNamespaces)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "namespace_router",
		Description: "Rank namespaces by relevance to a natural-language query. " +
			"Use when unsure which namespace to search.",
	}, s.namespaceRouter)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "suggest_query_params",
		Description: "Suggest metadata fields and the best query tool for a user query " +
			"against a namespace. Must be called before query tools on that namespace.",
	}, s.suggestQueryParams)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "count",
		Description: "Count unique documents matching a query, deduplicated by document " +
			"identifier. Use for 'how many' questions instead of fetching results.",
	}, s.count)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "query",
		Description: "Hybrid semantic search with configurable field projection and " +
			"optional reranking.",
	}, s.query)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "query_fast",
		Description: "Hybrid semantic search without reranking. Fastest option for " +
			"list-style lookups.",
	}, s.queryFast)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "query_detailed",
		Description: "Hybrid semantic search with reranking for best relevance. Use for " +
			"content questions where precision matters.",
	}, s.queryDetailed)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "keyword_search",
		Description: "Exact lexical search against the keyword index. Use for " +
			"identifiers, codes, and exact phrases; no suggestion step required.",
	}, s.keywordSearch)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "query_documents",
		Description: "Search and reassemble whole documents from their chunks, ordered " +
			"by chunk position. Returns far fewer, larger results than query.",
	}, s.queryDocuments)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "guided_query",
		Description: "One-call retrieval: routes to the best namespace, picks the right " +
			"tool and fields, runs the search, and reports every decision it made.",
	}, s.guidedQuery)

	mcp.AddTool(srv, &mcp.Tool{
		Name: "generate_urls",
		Description: "Derive canonical source URLs from result metadata for a namespace.",
	}, s.generateURLs)
}

// begin stamps the tool logger into the context and returns the metrics
// completion callback.
func (s *Server) begin(ctx context.Context, tool string) (context.Context, func(error)) {
	start := time.Now()
	ctx = logger.ContextWithLogger(ctx, s.log.With(zap.String("tool", tool)))
	return ctx, func(err error) {
		metrics.ObserveToolCall(tool, start, err)
	}
}
