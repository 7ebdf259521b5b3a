package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
)

func result(id string, score float64, content string, md map[string]any) domain.SearchResult {
	return domain.SearchResult{
		ID:       id,
		Content:  content,
		Score:    score,
		Metadata: domain.MetadataOf(md),
	}
}

func TestRowBackfillsURL(t *testing.T) {
	reg := urlgen.NewRegistry()
	reg.Register("lists", urlgen.NewListArchive("https://archive.example.org"))
	f := New(reg)

	row := f.Row(result("c1", 0.5, "text", map[string]any{"doc_id": "123"}), "lists", true)
	if row.URL == nil || *row.URL != "https://archive.example.org/list/123/" {
		t.Fatalf("generated url: got %+v", row.URL)
	}

	// A metadata url is kept as-is, enrichment or not.
	row = f.Row(result("c2", 0.5, "text", map[string]any{
		"url": "https://example.org/direct",
	}), "lists", true)
	if row.URL == nil || *row.URL != "https://example.org/direct" {
		t.Fatalf("metadata url: got %+v", row.URL)
	}
	if row.URLMethod != "metadata.url" {
		t.Fatalf("url method = %q", row.URLMethod)
	}

	row = f.Row(result("c3", 0.5, "text", map[string]any{"doc_id": "123"}), "lists", false)
	if row.URL != nil {
		t.Fatalf("enrichment disabled, got url %v", *row.URL)
	}
}

func TestRowDocumentNumber(t *testing.T) {
	f := New(nil)

	row := f.Row(result("c1", 0.1, "", map[string]any{"document_number": "P1234"}), "ns", false)
	if row.DocumentNumber == nil || *row.DocumentNumber != "P1234" {
		t.Fatalf("document_number: got %v", row.DocumentNumber)
	}

	row = f.Row(result("c2", 0.1, "", map[string]any{"filename": "p5678.md"}), "ns", false)
	if row.DocumentNumber == nil || *row.DocumentNumber != "P5678" {
		t.Fatalf("filename fallback: got %v", row.DocumentNumber)
	}

	row = f.Row(result("c3", 0.1, "", map[string]any{}), "ns", false)
	if row.DocumentNumber != nil {
		t.Fatalf("no identifiers: got %v", *row.DocumentNumber)
	}
}

func TestRowTruncatesContent(t *testing.T) {
	f := New(nil).WithMaxContentLength(10)

	row := f.Row(result("c1", 0.1, strings.Repeat("x", 50), nil), "ns", false)
	if row.Content != strings.Repeat("x", 10)+"..." {
		t.Fatalf("content = %q", row.Content)
	}

	row = f.Row(result("c2", 0.1, "short", nil), "ns", false)
	if row.Content != "short" {
		t.Fatalf("short content should pass through, got %q", row.Content)
	}
}

func TestRowTruncationKeepsRunesIntact(t *testing.T) {
	// "é" is two bytes; a byte-indexed cut at 2 would split it.
	f := New(nil).WithMaxContentLength(2)

	row := f.Row(result("c1", 0.1, "aé tail", nil), "ns", false)
	if !utf8.ValidString(row.Content) {
		t.Fatalf("truncated content is not valid UTF-8: %q", row.Content)
	}
	if row.Content != "a..." {
		t.Fatalf("content = %q, want %q", row.Content, "a...")
	}
}

func TestRowBlankMetadataURLDoesNotWin(t *testing.T) {
	reg := urlgen.NewRegistry()
	reg.Register("lists", urlgen.NewListArchive("https://archive.example.org"))
	f := New(reg)

	row := f.Row(result("c1", 0.5, "text", map[string]any{
		"url": "   ", "doc_id": "123",
	}), "lists", true)
	if row.URL == nil || *row.URL != "https://archive.example.org/list/123/" {
		t.Fatalf("whitespace url should fall through to the generator, got %+v", row.URL)
	}
}

func TestRowRoundsScore(t *testing.T) {
	f := New(nil)
	row := f.Row(result("c1", 0.123456789, "x", nil), "ns", false)
	if row.Score != 0.1235 {
		t.Fatalf("score = %v, want 0.1235", row.Score)
	}
}

func TestReassemble(t *testing.T) {
	results := []domain.SearchResult{
		result("a-1", 0.8, "middle", map[string]any{"document_number": "P1234", "chunk_index": float64(1)}),
		result("a-0", 0.6, "start", map[string]any{"document_number": "P1234", "chunk_index": float64(0)}),
		result("a-2", 0.4, "end", map[string]any{"document_number": "P1234", "chunk_index": float64(2)}),
		result("b-0", 0.7, "other doc", map[string]any{"document_number": "P5678"}),
	}

	docs := Reassemble(results, ReassembleOptions{})
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	// P1234 has the best chunk score and comes first.
	p := docs[0]
	if p.DocumentID != "P1234" {
		t.Fatalf("first doc = %q, want P1234", p.DocumentID)
	}
	if p.Content != "start\n\nmiddle\n\nend" {
		t.Fatalf("chunks out of order: %q", p.Content)
	}
	if p.ChunkCount != 3 || p.BestScore != 0.8 {
		t.Fatalf("chunk_count=%d best_score=%v", p.ChunkCount, p.BestScore)
	}
	if docs[1].DocumentID != "P5678" {
		t.Fatalf("second doc = %q", docs[1].DocumentID)
	}
}

func TestReassembleUnorderedChunksFollowOrdered(t *testing.T) {
	results := []domain.SearchResult{
		result("a-x", 0.9, "no order tag", map[string]any{"doc_id": "d1"}),
		result("a-0", 0.5, "first", map[string]any{"doc_id": "d1", "chunk_index": "0"}),
	}

	docs := Reassemble(results, ReassembleOptions{})
	if docs[0].Content != "first\n\nno order tag" {
		t.Fatalf("content = %q", docs[0].Content)
	}
}

func TestReassembleCapsChunks(t *testing.T) {
	results := []domain.SearchResult{
		result("a-0", 0.5, "one", map[string]any{"doc_id": "d1", "chunk_index": float64(0)}),
		result("a-1", 0.5, "two", map[string]any{"doc_id": "d1", "chunk_index": float64(1)}),
		result("a-2", 0.9, "three", map[string]any{"doc_id": "d1", "chunk_index": float64(2)}),
	}

	docs := Reassemble(results, ReassembleOptions{MaxChunks: 2})
	if docs[0].ChunkCount != 2 {
		t.Fatalf("chunk_count = %d, want 2", docs[0].ChunkCount)
	}
	if docs[0].Content != "one\n\ntwo" {
		t.Fatalf("content = %q", docs[0].Content)
	}
	// Best score reflects only the included chunks.
	if docs[0].BestScore != 0.5 {
		t.Fatalf("best_score = %v", docs[0].BestScore)
	}
}

func TestReassembleSkipsBlankChunks(t *testing.T) {
	results := []domain.SearchResult{
		result("a-0", 0.5, "  ", map[string]any{"doc_id": "d1", "chunk_index": float64(0)}),
		result("a-1", 0.5, "kept", map[string]any{"doc_id": "d1", "chunk_index": float64(1)}),
	}

	docs := Reassemble(results, ReassembleOptions{})
	if docs[0].Content != "kept" {
		t.Fatalf("content = %q", docs[0].Content)
	}
	if docs[0].ChunkCount != 2 {
		t.Fatalf("chunk_count counts included chunks, got %d", docs[0].ChunkCount)
	}
}
