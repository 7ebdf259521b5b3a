// Package format turns raw search results into caller-facing rows and
// reassembles chunk hits into whole documents.
package format

import (
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/usecase/urlgen"
)

const defaultMaxContentLength = 2000

// Row is a formatted result row.
type Row struct {
	ID             string          `json:"id"`
	DocumentNumber *string         `json:"document_number"`
	Content        string          `json:"content"`
	Score          float64         `json:"score"`
	URL            *string         `json:"url"`
	URLMethod      string          `json:"url_method,omitempty"`
	Metadata       domain.Metadata `json:"metadata"`
	Reranked       bool            `json:"reranked"`
}

// Formatter renders search results for tool responses.
type Formatter struct {
	urls             *urlgen.Registry
	maxContentLength int
}

func New(urls *urlgen.Registry) *Formatter {
	return &Formatter{urls: urls, maxContentLength: defaultMaxContentLength}
}

// WithMaxContentLength overrides the per-row content truncation limit.
func (f *Formatter) WithMaxContentLength(n int) *Formatter {
	if n > 0 {
		f.maxContentLength = n
	}
	return f
}

// Row formats one search result. When enrichURLs is set and the metadata has
// no URL of its own, the namespace's generator fills it in.
func (f *Formatter) Row(res domain.SearchResult, namespace string, enrichURLs bool) Row {
	row := Row{
		ID:             res.ID,
		DocumentNumber: displayDocumentNumber(res.Metadata),
		Content:        truncate(res.Content, f.maxContentLength),
		Score:          domain.RoundScore(res.Score),
		Metadata:       res.Metadata,
		Reranked:       res.Reranked,
	}

	if u, ok := res.Metadata.Str("url"); ok && strings.TrimSpace(u) != "" {
		row.URL = &u
		row.URLMethod = "metadata.url"
	} else if enrichURLs && f.urls != nil {
		gen := f.urls.Generate(namespace, res.Metadata)
		row.URL = gen.URL
		row.URLMethod = gen.Method
	}
	return row
}

// Rows formats a batch of results.
func (f *Formatter) Rows(results []domain.SearchResult, namespace string, enrichURLs bool) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, f.Row(r, namespace, enrichURLs))
	}
	return rows
}

// displayDocumentNumber derives a human-readable document label: the
// document_number field verbatim, else the filename with its markdown
// extension stripped and upper-cased, else nil.
func displayDocumentNumber(md domain.Metadata) *string {
	if n, ok := md.Str("document_number"); ok && n != "" {
		return &n
	}
	if name, ok := md.Str("filename"); ok && name != "" {
		name = strings.TrimSuffix(name, ".md")
		name = strings.TrimSuffix(name, ".markdown")
		name = strings.ToUpper(name)
		return &name
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
