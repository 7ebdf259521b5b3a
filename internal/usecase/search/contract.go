package search

import (
	"context"

	"github.com/quarrylabs/quarry/internal/backend"
	"github.com/quarrylabs/quarry/internal/domain"
)

// Searcher is one searchable index handle.
type Searcher interface {
	Search(ctx context.Context, p backend.SearchParams) ([]domain.Hit, error)
}

// Reranker reorders a merged candidate set with a secondary relevance model.
type Reranker interface {
	Rerank(
		ctx context.Context, query string,
		docs []backend.RerankDocument, topN int,
	) ([]backend.RerankedDocument, error)
}
