// Package suggest classifies a natural-language query against a namespace
// schema and recommends an execution tool plus a field projection. The
// classifier is a fixed ordered rule table; no I/O, fully deterministic.
package suggest

import (
	"regexp"
	"sort"

	"github.com/quarrylabs/quarry/internal/domain"
)

// Execution tool names recommended by the engine.
const (
	ToolCount          = "count"
	ToolQuery          = "query"
	ToolQueryFast      = "query_fast"
	ToolQueryDetailed  = "query_detailed"
	ToolQueryDocuments = "query_documents"
)

// Suggestion is the engine output.
type Suggestion struct {
	SuggestedFields []string `json:"suggested_fields"`
	UseCountTool    bool     `json:"use_count_tool"`
	RecommendedTool string   `json:"recommended_tool"`
	Explanation     string   `json:"explanation"`
	NamespaceFound  bool     `json:"namespace_found"`
}

// fallbackFieldLimit caps the projection when none of a rule's preferred
// fields exist in the schema.
const fallbackFieldLimit = 5

var (
	countPattern = regexp.MustCompile(
		`(?i)\bhow many\b|\bcount\b|\bnumber of\b|\btotal number\b`,
	)
	contentPattern = regexp.MustCompile(
		`(?i)\bcontent\b|\bsummari[sz]e\b|\bwhat does\b|\bexcerpt\b|\btext\b|\bsay\b|\bdetails?\b|\bfull text\b|\bbody\b`,
	)
)

// contentFields is the preferred projection when the caller wants to read
// document text; listFields when they want to browse.
var (
	contentFields = []string{"document_number", "title", "url", "author", domain.ContentField}
	listFields    = []string{"document_number", "title", "url", "author"}
)

// rule is one (predicate, outcome) row of the classifier. Rules are evaluated
// in order; the first match wins. A nil pattern always matches.
type rule struct {
	pattern     *regexp.Regexp
	tool        string
	useCount    bool
	fields      []string
	allOnMiss   bool // fall back to every schema field instead of the first 5
	explanation string
}

var rules = []rule{
	{
		pattern:     countPattern,
		tool:        ToolCount,
		useCount:    true,
		fields:      domain.IdentifierFields,
		explanation: "The query asks for a quantity; use the count tool with identifier fields only.",
	},
	{
		pattern:     contentPattern,
		tool:        ToolQueryDetailed,
		fields:      contentFields,
		allOnMiss:   true,
		explanation: "The query asks about document content; use query_detailed with reranking and the content field.",
	},
	{
		pattern:     nil,
		tool:        ToolQueryFast,
		fields:      listFields,
		explanation: "The query looks like a listing or browsing request; use query_fast with compact fields.",
	},
}

// Suggest classifies the query against the schema. A nil schema means the
// namespace was not found; an empty schema means it has no sampled fields.
func Suggest(schema map[string]domain.Kind, query string) Suggestion {
	if schema == nil {
		return Suggestion{
			SuggestedFields: []string{},
			RecommendedTool: ToolQueryFast,
			Explanation:     "Namespace not found: call list_namespaces to discover available namespaces first.",
			NamespaceFound:  false,
		}
	}
	if len(schema) == 0 {
		return Suggestion{
			SuggestedFields: []string{},
			RecommendedTool: ToolQueryFast,
			Explanation:     "The namespace schema is empty; querying without a field projection.",
			NamespaceFound:  true,
		}
	}

	for _, r := range rules {
		if r.pattern != nil && !r.pattern.MatchString(query) {
			continue
		}
		return Suggestion{
			SuggestedFields: projectFields(r.fields, schema, r.allOnMiss),
			UseCountTool:    r.useCount,
			RecommendedTool: r.tool,
			Explanation:     r.explanation,
			NamespaceFound:  true,
		}
	}

	// Unreachable: the last rule has a nil pattern.
	return Suggestion{RecommendedTool: ToolQueryFast, NamespaceFound: true}
}

// projectFields intersects the preferred field list with the schema,
// preserving the preferred order. When nothing intersects it falls back to
// the schema itself: all fields, or the first fallbackFieldLimit in sorted
// order.
func projectFields(preferred []string, schema map[string]domain.Kind, allOnMiss bool) []string {
	out := make([]string, 0, len(preferred))
	for _, f := range preferred {
		if _, ok := schema[f]; ok {
			out = append(out, f)
		}
	}
	if len(out) > 0 {
		return out
	}

	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	if allOnMiss || len(names) <= fallbackFieldLimit {
		return names
	}
	return names[:fallbackFieldLimit]
}
