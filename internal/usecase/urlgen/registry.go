// Package urlgen derives canonical source URLs from result metadata on a
// per-namespace basis.
package urlgen

import (
	"strings"

	"github.com/quarrylabs/quarry/internal/domain"
)

// Result is a single URL derivation outcome. URL is nil when no URL could be
// derived; Reason then explains why.
type Result struct {
	URL    *string `json:"url"`
	Method string  `json:"method"`
	Reason string  `json:"reason,omitempty"`
}

// Generator derives a URL from one record's metadata.
type Generator interface {
	Generate(md domain.Metadata) Result
}

// Registry maps namespaces to their URL generators.
type Registry struct {
	generators map[string]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

func (r *Registry) Register(namespace string, g Generator) {
	r.generators[namespace] = g
}

// Generate derives a URL for a record in the given namespace. A non-blank
// url metadata field always wins over any registered generator.
func (r *Registry) Generate(namespace string, md domain.Metadata) Result {
	if u, ok := md.Str("url"); ok {
		if u = strings.TrimSpace(u); u != "" {
			return Result{URL: &u, Method: "metadata.url"}
		}
	}
	if g, ok := r.generators[namespace]; ok {
		return g.Generate(md)
	}
	return Result{Method: "unavailable", Reason: "no generator for namespace"}
}
