// Package router ranks candidate namespaces by textual relevance to a query.
// The scorer is driven entirely by namespace names and sampled schema fields;
// it carries no knowledge of any particular dataset.
package router

import (
	"sort"
	"strings"

	"github.com/quarrylabs/quarry/internal/domain"
)

// Candidate is one ranked namespace suggestion.
type Candidate struct {
	Namespace   string   `json:"namespace"`
	Score       int      `json:"score"`
	RecordCount int      `json:"record_count"`
	Reasons     []string `json:"reasons"`
}

const (
	nameMatchScore  = 3
	tokenMatchScore = 2
	fieldHintScore  = 1
	minTokenLength  = 2
)

// Rank scores every namespace against the query and returns the top n,
// highest score first. Ties prefer the smaller (more specific) namespace.
func Rank(query string, namespaces []domain.NamespaceInfo, topN int) []Candidate {
	q := strings.ToLower(query)

	candidates := make([]Candidate, 0, len(namespaces))
	for _, ns := range namespaces {
		candidates = append(candidates, scoreNamespace(q, ns))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].RecordCount != candidates[j].RecordCount {
			return candidates[i].RecordCount < candidates[j].RecordCount
		}
		return candidates[i].Namespace < candidates[j].Namespace
	})

	if topN > 0 && len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

func scoreNamespace(query string, ns domain.NamespaceInfo) Candidate {
	c := Candidate{Namespace: ns.Name, RecordCount: ns.RecordCount}
	reasons := map[string]bool{}

	normalized := normalizeName(ns.Name)
	if normalized != "" && strings.Contains(query, normalized) {
		c.Score += nameMatchScore
		reasons["name match"] = true
	} else {
		for _, token := range strings.Fields(normalized) {
			if len(token) < minTokenLength {
				continue
			}
			if strings.Contains(query, token) {
				c.Score += tokenMatchScore
				reasons["token match: "+token] = true
			}
		}
	}

	for field := range ns.Fields {
		if strings.Contains(query, strings.ToLower(field)) {
			c.Score += fieldHintScore
			reasons["field hint: "+strings.ToLower(field)] = true
		}
	}

	c.Reasons = make([]string, 0, len(reasons))
	for r := range reasons {
		c.Reasons = append(c.Reasons, r)
	}
	sort.Strings(c.Reasons)
	return c
}

// normalizeName lowercases a namespace name and collapses every run of
// non-alphanumeric characters into a single space.
func normalizeName(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
