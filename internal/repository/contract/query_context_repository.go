package contract

import (
	"context"

	"floatchat-be/internal/entity"
)

// ScoredQueryContext wraps a stored turn with its cosine distance to the
// query vector (0 = identical).
type ScoredQueryContext struct {
	Context  *entity.QueryContext
	Distance float64
}

type QueryContextRepository interface {
	Create(ctx context.Context, qc *entity.QueryContext) error
	// SearchSimilar returns at most limit rows whose distance is <= maxDistance,
	// nearest first.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, maxDistance float64) ([]*ScoredQueryContext, error)
	// FindRecent lists stored turns, newest first.
	FindRecent(ctx context.Context, limit, offset int) ([]*entity.QueryContext, error)
	Count(ctx context.Context) (int64, error)
}
