package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quarrylabs/quarry/internal/domain"
)

const defaultRequestTimeout = 60 * time.Second

// HTTPIndex talks to one index host of the vector search service.
type HTTPIndex struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPIndex creates an index client for the given base URL.
func NewHTTPIndex(baseURL, apiKey string) *HTTPIndex {
	return &HTTPIndex{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

var _ Index = (*HTTPIndex)(nil)

type statsResponse struct {
	Dimension  int `json:"dimension"`
	Namespaces map[string]struct {
		VectorCount int `json:"vectorCount"`
	} `json:"namespaces"`
}

// Describe reports index dimension and namespace record counts.
func (x *HTTPIndex) Describe(ctx context.Context) (Stats, error) {
	var resp statsResponse
	if err := x.post(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return Stats{}, fmt.Errorf("describe index stats: %w", err)
	}

	stats := Stats{
		Dimension:  resp.Dimension,
		Namespaces: make(map[string]NamespaceStats, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = NamespaceStats{RecordCount: ns.VectorCount}
	}
	return stats, nil
}

type searchRequest struct {
	Query  searchQuery `json:"query"`
	Fields []string    `json:"fields,omitempty"`
}

type searchQuery struct {
	Inputs map[string]string `json:"inputs"`
	TopK   int               `json:"top_k"`
	Filter map[string]any    `json:"filter,omitempty"`
}

type searchResponse struct {
	Result struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Fields map[string]any `json:"fields"`
		} `json:"hits"`
	} `json:"result"`
}

// Search runs a server-side-embedded text search against one namespace.
func (x *HTTPIndex) Search(ctx context.Context, p SearchParams) ([]domain.Hit, error) {
	req := searchRequest{
		Query: searchQuery{
			Inputs: map[string]string{"text": p.Query},
			TopK:   p.TopK,
			Filter: p.Filter,
		},
		Fields: p.Fields,
	}

	var resp searchResponse
	path := fmt.Sprintf("/records/namespaces/%s/search", p.Namespace)
	if err := x.post(ctx, path, req, &resp); err != nil {
		return nil, fmt.Errorf("search namespace %q: %w", p.Namespace, err)
	}

	hits := make([]domain.Hit, 0, len(resp.Result.Hits))
	for _, h := range resp.Result.Hits {
		hits = append(hits, domain.Hit{ID: h.ID, Score: h.Score, Fields: h.Fields})
	}
	return hits, nil
}

type vectorQueryRequest struct {
	Namespace       string    `json:"namespace"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type vectorQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// SampleByVector probes a namespace by raw vector similarity.
func (x *HTTPIndex) SampleByVector(
	ctx context.Context, namespace string, vector []float32, k int,
) ([]domain.Hit, error) {
	req := vectorQueryRequest{
		Namespace:       namespace,
		Vector:          vector,
		TopK:            k,
		IncludeMetadata: true,
	}

	var resp vectorQueryResponse
	if err := x.post(ctx, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("sample namespace %q: %w", namespace, err)
	}

	hits := make([]domain.Hit, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		hits = append(hits, domain.Hit{ID: m.ID, Score: m.Score, Fields: m.Metadata})
	}
	return hits, nil
}

func (x *HTTPIndex) post(ctx context.Context, path string, body, out any) error {
	return postJSON(ctx, x.client, x.baseURL+path, x.apiKey, body, out)
}

// HTTPReranker calls the hosted reranking endpoint.
type HTTPReranker struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPReranker creates a reranker client for the given model.
func NewHTTPReranker(baseURL, apiKey, model string) *HTTPReranker {
	return &HTTPReranker{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: defaultRequestTimeout},
	}
}

var _ Reranker = (*HTTPReranker)(nil)

type rerankRequest struct {
	Model           string           `json:"model"`
	Query           string           `json:"query"`
	Documents       []RerankDocument `json:"documents"`
	TopN            int              `json:"top_n"`
	RankFields      []string         `json:"rank_fields"`
	ReturnDocuments bool             `json:"return_documents"`
}

type rerankResponse struct {
	Data []struct {
		Index    int            `json:"index"`
		Score    float64        `json:"score"`
		Document map[string]any `json:"document"`
	} `json:"data"`
}

// Rerank reorders candidates by the reranking model, ranking on the content field.
func (r *HTTPReranker) Rerank(
	ctx context.Context, query string, docs []RerankDocument, topN int,
) ([]RerankedDocument, error) {
	req := rerankRequest{
		Model:           r.model,
		Query:           query,
		Documents:       docs,
		TopN:            topN,
		RankFields:      []string{domain.ContentField},
		ReturnDocuments: true,
	}

	var resp rerankResponse
	if err := postJSON(ctx, r.client, r.baseURL+"/rerank", r.apiKey, req, &resp); err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}

	out := make([]RerankedDocument, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, RerankedDocument{Score: d.Score, Document: d.Document})
	}
	return out, nil
}

func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
