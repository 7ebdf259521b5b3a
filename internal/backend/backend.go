// Package backend defines the contract the retrieval core requires of the
// hosted vector search service, plus an HTTP implementation.
package backend

import (
	"context"

	"github.com/quarrylabs/quarry/internal/domain"
)

// NamespaceStats is the per-namespace record count reported by the index.
type NamespaceStats struct {
	RecordCount int
}

// Stats describes an index: its vector dimensionality and namespaces.
type Stats struct {
	Dimension  int
	Namespaces map[string]NamespaceStats
}

// SearchParams parameterizes a text search against one namespace.
type SearchParams struct {
	Namespace string
	Query     string
	TopK      int
	Filter    map[string]any
	Fields    []string
}

// Index is one searchable index handle (dense, sparse, or lexical-only).
type Index interface {
	// Describe reports dimension and namespace inventory.
	Describe(ctx context.Context) (Stats, error)

	// Search runs a text search; the backend embeds the query server-side.
	Search(ctx context.Context, p SearchParams) ([]domain.Hit, error)

	// SampleByVector probes a namespace by vector similarity. Used only for
	// schema discovery (a zero vector of the index dimension).
	SampleByVector(ctx context.Context, namespace string, vector []float32, k int) ([]domain.Hit, error)
}

// RerankDocument is a candidate passed to the reranking model. It must carry
// the field the model ranks on.
type RerankDocument map[string]any

// RerankedDocument is one rerank output: the new score and the original document.
type RerankedDocument struct {
	Score    float64
	Document map[string]any
}

// Reranker reorders a candidate set with a secondary relevance model.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []RerankDocument, topN int) ([]RerankedDocument, error)
}
