// Package guided chains namespace routing, parameter suggestion, and search
// into a single self-gating call, recording every decision it makes.
package guided

import (
	"context"
	"fmt"
	"strings"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/domain/filter"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/format"
	"github.com/quarrylabs/quarry/internal/usecase/router"
	"github.com/quarrylabs/quarry/internal/usecase/search"
	"github.com/quarrylabs/quarry/internal/usecase/suggest"
)

const (
	defaultTopK      = 10
	routerCandidates = 5
	toolChoiceAuto   = "auto"
)

// Params is one guided query request.
type Params struct {
	UserQuery     string
	Namespace     string
	Filter        map[string]any
	TopK          int
	PreferredTool string
	EnrichURLs    *bool
}

// DecisionTrace records how the orchestrator arrived at its answer.
type DecisionTrace struct {
	CacheHit          bool               `json:"cache_hit"`
	InputNamespace    string             `json:"input_namespace,omitempty"`
	RoutedNamespace   string             `json:"routed_namespace,omitempty"`
	SelectedNamespace string             `json:"selected_namespace"`
	Candidates        []router.Candidate `json:"candidates,omitempty"`
	SuggestedFields   []string           `json:"suggested_fields"`
	SuggestedTool     string             `json:"suggested_tool"`
	SelectedTool      string             `json:"selected_tool"`
	Explanation       string             `json:"explanation"`
	EnrichURLs        bool               `json:"enrich_urls"`
}

// Outcome is the guided query response: the trace plus the tool result.
type Outcome struct {
	Trace  DecisionTrace `json:"decision_trace"`
	Result any           `json:"result"`
}

// Orchestrator wires the guided flow together.
type Orchestrator struct {
	inventory InventoryReader
	gate      SuggestionGate
	search    SearchRunner
	formatter *format.Formatter
}

func New(
	inv InventoryReader, gate SuggestionGate,
	svc SearchRunner, fmtr *format.Formatter,
) *Orchestrator {
	return &Orchestrator{inventory: inv, gate: gate, search: svc, formatter: fmtr}
}

// Run executes one guided query: resolve the namespace (routing when none is
// given), derive parameter suggestions, satisfy the suggestion gate, dispatch
// the selected search tool, and format the results.
func (o *Orchestrator) Run(ctx context.Context, p Params) (Outcome, error) {
	if strings.TrimSpace(p.UserQuery) == "" {
		return Outcome{}, domain.ErrEmptyQuery
	}
	if err := filter.Validate(p.Filter); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", domain.ErrInvalidFilter, err)
	}
	topK := p.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	enrichURLs := true
	if p.EnrichURLs != nil {
		enrichURLs = *p.EnrichURLs
	}

	inv, err := o.inventory.List(ctx)
	if err != nil {
		return Outcome{}, err
	}

	trace := DecisionTrace{
		CacheHit:       inv.CacheHit,
		InputNamespace: p.Namespace,
		EnrichURLs:     enrichURLs,
	}

	namespace := p.Namespace
	if namespace == "" {
		if len(inv.Data) == 0 {
			return Outcome{}, domain.ErrNoNamespaceAvailable
		}
		candidates := router.Rank(p.UserQuery, inv.Data, routerCandidates)
		trace.Candidates = candidates
		namespace = candidates[0].Namespace
		trace.RoutedNamespace = namespace
	}
	trace.SelectedNamespace = namespace

	ns, err := o.inventory.Lookup(ctx, namespace)
	if err != nil {
		return Outcome{}, err
	}

	sg := suggest.Suggest(ns.Fields, p.UserQuery)
	trace.SuggestedFields = sg.SuggestedFields
	trace.SuggestedTool = sg.RecommendedTool
	trace.Explanation = sg.Explanation

	tool := sg.RecommendedTool
	if p.PreferredTool != "" && p.PreferredTool != toolChoiceAuto {
		switch p.PreferredTool {
		case suggest.ToolCount, suggest.ToolQueryFast, suggest.ToolQueryDetailed:
			tool = p.PreferredTool
		default:
			return Outcome{}, fmt.Errorf(
				"unsupported tool %q: guided_query dispatches count, query_fast, or query_detailed",
				p.PreferredTool,
			)
		}
	}
	trace.SelectedTool = tool

	// The guided flow is its own suggestion step; subsequent direct queries
	// against this namespace pass the gate without a separate call.
	o.gate.MarkSuggested(namespace, flowgate.State{
		RecommendedTool: tool,
		SuggestedFields: sg.SuggestedFields,
		UserQuery:       p.UserQuery,
	})

	result, err := o.dispatch(ctx, tool, namespace, topK, p, sg, enrichURLs)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Trace: trace, Result: result}, nil
}

func (o *Orchestrator) dispatch(
	ctx context.Context, tool, namespace string, topK int,
	p Params, sg suggest.Suggestion, enrichURLs bool,
) (any, error) {
	switch tool {
	case suggest.ToolCount:
		return o.search.Count(ctx, p.UserQuery, namespace, p.Filter)
	case suggest.ToolQueryFast:
		results, err := o.search.Query(ctx, search.QueryParams{
			Query:     p.UserQuery,
			Namespace: namespace,
			TopK:      topK,
			Filter:    p.Filter,
			Fields:    sg.SuggestedFields,
		})
		if err != nil {
			return nil, err
		}
		return o.formatter.Rows(results, namespace, enrichURLs), nil
	case suggest.ToolQueryDetailed:
		results, err := o.search.Query(ctx, search.QueryParams{
			Query:        p.UserQuery,
			Namespace:    namespace,
			TopK:         topK,
			Filter:       p.Filter,
			Fields:       sg.SuggestedFields,
			UseReranking: true,
		})
		if err != nil {
			return nil, err
		}
		return o.formatter.Rows(results, namespace, enrichURLs), nil
	default:
		return nil, fmt.Errorf("unsupported tool %q", tool)
	}
}
