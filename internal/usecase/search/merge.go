package search

import (
	"sort"

	"github.com/quarrylabs/quarry/internal/domain"
)

// mergeHits deduplicates two hit lists by id. A duplicate id keeps the entry
// with the higher score; output is sorted by score descending (id ascending
// on equal scores, for determinism).
func mergeHits(a, b []domain.Hit) []domain.Hit {
	merged := make(map[string]domain.Hit, len(a)+len(b))
	for _, h := range a {
		merged[h.ID] = h
	}
	for _, h := range b {
		if existing, ok := merged[h.ID]; ok && existing.Score >= h.Score {
			continue
		}
		merged[h.ID] = h
	}

	out := make([]domain.Hit, 0, len(merged))
	for _, h := range merged {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}
