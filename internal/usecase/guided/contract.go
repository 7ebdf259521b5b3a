package guided

import (
	"context"

	"github.com/quarrylabs/quarry/internal/domain"
	"github.com/quarrylabs/quarry/internal/usecase/flowgate"
	"github.com/quarrylabs/quarry/internal/usecase/inventory"
	"github.com/quarrylabs/quarry/internal/usecase/search"
)

// InventoryReader serves the cached namespace inventory.
type InventoryReader interface {
	List(ctx context.Context) (inventory.Inventory, error)
	Lookup(ctx context.Context, namespace string) (domain.NamespaceInfo, error)
}

// SuggestionGate records that a namespace has been through the suggestion
// step.
type SuggestionGate interface {
	MarkSuggested(namespace string, st flowgate.State)
}

// SearchRunner executes the search tools the orchestrator dispatches to.
type SearchRunner interface {
	Query(ctx context.Context, p search.QueryParams) ([]domain.SearchResult, error)
	Count(ctx context.Context, query, namespace string, filter map[string]any) (search.CountResult, error)
}
