// Package search executes hybrid (dense + sparse) retrieval with merge,
// optional reranking, lexical-only keyword search, and unique-document
// counting.
package search

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/internal/backend"
	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/domain/filter"
	"github.com/quarrylabs/quarry/internal/logger"
)

const (
	defaultMaxTopK   = 100
	defaultCountTopK = 10000
)

// Service is the hybrid search client.
type Service struct {
	dense     Searcher
	sparse    Searcher
	lexical   Searcher
	reranker  Reranker
	maxTopK   int
	countTopK int
}

// New creates a search service. sparse, lexical, and reranker may be nil when
// the corresponding index or model is not configured.
func New(dense, sparse, lexical Searcher, reranker Reranker) *Service {
	return &Service{
		dense: dense, sparse: sparse, lexical: lexical, reranker: reranker,
		maxTopK: defaultMaxTopK, countTopK: defaultCountTopK,
	}
}

// WithLimits overrides the top_k ceilings.
func (s *Service) WithLimits(maxTopK, countTopK int) *Service {
	if maxTopK > 0 {
		s.maxTopK = maxTopK
	}
	if countTopK > 0 {
		s.countTopK = countTopK
	}
	return s
}

// QueryParams parameterizes Query and KeywordSearch.
type QueryParams struct {
	Query        string
	Namespace    string
	TopK         int
	Filter       map[string]any
	Fields       []string
	UseReranking bool
}

func (s *Service) validate(query string, topK int, f map[string]any) error {
	if strings.TrimSpace(query) == "" {
		return domain.ErrEmptyQuery
	}
	if topK < 1 {
		return domain.ErrInvalidTopK
	}
	if err := filter.Validate(f); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	return nil
}

// Query runs dense and sparse searches concurrently, merges and deduplicates
// the hits, and optionally reranks. One failed branch is tolerated; both
// failing fails the call. A reranker failure falls back to the unreranked
// merge order.
func (s *Service) Query(ctx context.Context, p QueryParams) ([]domain.SearchResult, error) {
	if err := s.validate(p.Query, p.TopK, p.Filter); err != nil {
		return nil, err
	}
	topK := min(p.TopK, s.maxTopK)

	fields := p.Fields
	if p.UseReranking && len(fields) > 0 && !containsField(fields, domain.ContentField) {
		// The reranker ranks on the content field; it must be in the projection.
		fields = append(append([]string{}, fields...), domain.ContentField)
	}

	params := backend.SearchParams{
		Namespace: p.Namespace,
		Query:     p.Query,
		TopK:      topK,
		Filter:    p.Filter,
		Fields:    fields,
	}

	denseHits, sparseHits, err := s.searchBoth(ctx, params)
	if err != nil {
		return nil, err
	}
	merged := mergeHits(denseHits, sparseHits)

	if p.UseReranking && s.reranker != nil {
		if results, ok := s.rerank(ctx, p.Query, merged, topK); ok {
			return results, nil
		}
	}

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return hitsToResults(merged, false), nil
}

// searchBoth issues the dense and sparse searches as sibling goroutines and
// waits for both to settle. A single failure is logged and tolerated; a
// combined failure surfaces both errors.
func (s *Service) searchBoth(
	ctx context.Context, params backend.SearchParams,
) ([]domain.Hit, []domain.Hit, error) {
	if s.sparse == nil {
		hits, err := s.dense.Search(ctx, params)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: dense search: %w", domain.ErrBackendUnavailable, err)
		}
		return hits, nil, nil
	}

	var (
		wg         sync.WaitGroup
		denseHits  []domain.Hit
		sparseHits []domain.Hit
		denseErr   error
		sparseErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		denseHits, denseErr = s.dense.Search(ctx, params)
	}()
	go func() {
		defer wg.Done()
		sparseHits, sparseErr = s.sparse.Search(ctx, params)
	}()
	wg.Wait()

	log := logger.FromContext(ctx)
	if denseErr != nil && sparseErr != nil {
		return nil, nil, fmt.Errorf(
			"%w: dense and sparse searches both failed: %w; %w",
			domain.ErrBackendUnavailable, denseErr, sparseErr,
		)
	}
	if denseErr != nil {
		log.Warn("dense search failed, continuing with sparse results", zap.Error(denseErr))
	}
	if sparseErr != nil {
		log.Warn("sparse search failed, continuing with dense results", zap.Error(sparseErr))
	}

	return denseHits, sparseHits, nil
}

// rerank passes merged hits through the reranking model. Returns ok=false on
// failure so the caller can fall back to the unreranked order.
func (s *Service) rerank(
	ctx context.Context, query string, merged []domain.Hit, topK int,
) ([]domain.SearchResult, bool) {
	docs := make([]backend.RerankDocument, 0, len(merged))
	for _, h := range merged {
		doc := backend.RerankDocument{"id": h.ID}
		for k, v := range h.Fields {
			doc[k] = v
		}
		docs = append(docs, doc)
	}

	reranked, err := s.reranker.Rerank(ctx, query, docs, topK)
	if err != nil {
		logger.FromContext(ctx).Warn("rerank failed, falling back to merged order", zap.Error(err))
		return nil, false
	}

	results := make([]domain.SearchResult, 0, len(reranked))
	for _, r := range reranked {
		hit := hitFromRerankDocument(r)
		results = append(results, domain.SearchResult{
			ID:       hit.ID,
			Content:  hit.Content(),
			Score:    domain.RoundScore(r.Score),
			Metadata: hit.Metadata(),
			Reranked: true,
		})
	}
	return results, true
}

// KeywordSearch runs a single lexical search against the sparse-only index.
// Results are never reranked.
func (s *Service) KeywordSearch(ctx context.Context, p QueryParams) ([]domain.SearchResult, error) {
	if err := s.validate(p.Query, p.TopK, p.Filter); err != nil {
		return nil, err
	}
	if s.lexical == nil {
		return nil, fmt.Errorf("%w: lexical index not configured", domain.ErrBackendUnavailable)
	}

	hits, err := s.lexical.Search(ctx, backend.SearchParams{
		Namespace: p.Namespace,
		Query:     p.Query,
		TopK:      min(p.TopK, s.maxTopK),
		Filter:    p.Filter,
		Fields:    p.Fields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search: %w", domain.ErrBackendUnavailable, err)
	}
	return hitsToResults(hits, false), nil
}

// CountResult is the unique-document count outcome.
type CountResult struct {
	Count     int  `json:"count"`
	Truncated bool `json:"truncated"`
}

// Count searches the dense index at the count ceiling, requesting only
// identifier fields, and deduplicates hits into unique documents. Hits with
// no identifier field degrade to chunk-level counting (keyed by hit id).
func (s *Service) Count(
	ctx context.Context, query, namespace string, f map[string]any,
) (CountResult, error) {
	if err := s.validate(query, 1, f); err != nil {
		return CountResult{}, err
	}

	hits, err := s.dense.Search(ctx, backend.SearchParams{
		Namespace: namespace,
		Query:     query,
		TopK:      s.countTopK,
		Filter:    f,
		Fields:    domain.IdentifierFields,
	})
	if err != nil {
		return CountResult{}, fmt.Errorf("%w: count search: %w", domain.ErrBackendUnavailable, err)
	}

	unique := make(map[string]struct{}, len(hits))
	unidentified := 0
	for _, h := range hits {
		if !h.HasDocumentIdentifier() {
			unidentified++
		}
		unique[h.DocumentKey()] = struct{}{}
	}
	if unidentified > 0 {
		logger.FromContext(ctx).Warn(
			"hits without document identifiers counted as chunks",
			zap.Int("affected", unidentified),
			zap.String("namespace", namespace),
		)
	}

	return CountResult{
		Count:     len(unique),
		Truncated: len(hits) >= s.countTopK,
	}, nil
}

func hitsToResults(hits []domain.Hit, reranked bool) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, domain.SearchResult{
			ID:       h.ID,
			Content:  h.Content(),
			Score:    domain.RoundScore(h.Score),
			Metadata: h.Metadata(),
			Reranked: reranked,
		})
	}
	return results
}

func hitFromRerankDocument(r backend.RerankedDocument) domain.Hit {
	fields := make(map[string]any, len(r.Document))
	id := ""
	for k, v := range r.Document {
		if k == "id" {
			id, _ = v.(string)
			continue
		}
		fields[k] = v
	}
	return domain.Hit{ID: id, Fields: fields}
}

func containsField(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

