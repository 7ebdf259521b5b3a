package inventory

import (
	"context"

	"github.com/quarrylabs/quarry/internal/backend"
	"github.com/quarrylabs/quarry/internal/domain"
)

// IndexReader is the slice of the backend contract discovery needs.
type IndexReader interface {
	Describe(ctx context.Context) (backend.Stats, error)
	SampleByVector(ctx context.Context, namespace string, vector []float32, k int) ([]domain.Hit, error)
}
