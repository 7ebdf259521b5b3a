// Package flowgate enforces the suggest-before-query flow: an execution tool
// may only run against a namespace that received a query suggestion within
// the TTL window.
package flowgate

import (
	"fmt"
	"sync"
	"time"

	"github.com/quarrylabs/quarry/internal/domain"
)

// DefaultTTL matches the namespace cache TTL: a suggestion decays together
// with the schema it was computed from.
const DefaultTTL = 30 * time.Minute

// State records the suggestion issued for one namespace.
type State struct {
	RecommendedTool string
	SuggestedFields []string
	UserQuery       string
	UpdatedAt       time.Time
}

// Gate is the process-wide suggestion flow state, keyed by namespace.
type Gate struct {
	mu      sync.Mutex
	entries map[string]State
	ttl     time.Duration
	now     func() time.Time
}

// New creates a gate with the given TTL (DefaultTTL if non-positive).
func New(ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{entries: make(map[string]State), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source (tests).
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// MarkSuggested records a suggestion for the namespace, overwriting any
// previous entry with a fresh timestamp.
func (g *Gate) MarkSuggested(namespace string, st State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st.UpdatedAt = g.now()
	g.entries[namespace] = st
}

// Require returns the recorded suggestion for the namespace, or an error
// instructing the caller to run the suggestion step first. An expired entry
// is deleted, not silently passed through.
func (g *Gate) Require(namespace string) (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.entries[namespace]
	if !ok {
		return State{}, fmt.Errorf(
			"%w: call suggest_query_params for namespace %q before querying it",
			domain.ErrSuggestionRequired, namespace,
		)
	}
	if g.now().Sub(st.UpdatedAt) > g.ttl {
		delete(g.entries, namespace)
		return State{}, fmt.Errorf(
			"%w: suggestion for namespace %q expired, call suggest_query_params again",
			domain.ErrSuggestionRequired, namespace,
		)
	}
	return st, nil
}
