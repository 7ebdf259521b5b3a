package domain

import "math"

// ContentField is the metadata field holding chunk text. It is split out of
// the metadata into SearchResult.Content, and reranking ranks on it.
const ContentField = "chunk_text"

// Identifier fields tried in priority order when deduplicating chunk hits
// into documents (count, reassembly).
var IdentifierFields = []string{"document_number", "url", "doc_id"}

// Hit is a raw backend search hit.
type Hit struct {
	ID     string
	Score  float64
	Fields map[string]any
}

// Content returns the chunk text field, if present.
func (h Hit) Content() string {
	s, _ := h.Fields[ContentField].(string)
	return s
}

// Metadata classifies all non-content fields.
func (h Hit) Metadata() Metadata {
	m := make(Metadata, len(h.Fields))
	for k, v := range h.Fields {
		if k == ContentField {
			continue
		}
		m[k] = ValueOf(v)
	}
	return m
}

// DocumentKey returns the document-level dedup key: the first identifier
// field present on the hit, else the chunk id itself.
func (h Hit) DocumentKey() string {
	for _, f := range IdentifierFields {
		if s, ok := h.Fields[f].(string); ok && s != "" {
			return s
		}
	}
	return h.ID
}

// HasDocumentIdentifier reports whether any identifier field is present.
func (h Hit) HasDocumentIdentifier() bool {
	for _, f := range IdentifierFields {
		if s, ok := h.Fields[f].(string); ok && s != "" {
			return true
		}
	}
	return false
}

// SearchResult is a caller-facing result row.
type SearchResult struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
	Reranked bool     `json:"reranked"`
}

// ReassembledDocument is a whole document rebuilt from its chunk hits.
type ReassembledDocument struct {
	DocumentID string   `json:"document_id"`
	Content    string   `json:"content"`
	Metadata   Metadata `json:"metadata"`
	ChunkCount int      `json:"chunk_count"`
	BestScore  float64  `json:"best_score"`
}

// RoundScore rounds a relevance score to 4 decimal places.
func RoundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
