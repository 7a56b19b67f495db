package search

import (
	"context"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
)

// Repository defines the storage contract for search operations. All queries
// implicitly require partition membership, the enabled flag, and a
// non-soft-deleted parent document.
type Repository interface {
	// StructuralSearch retrieves chunks matching the tag predicate, in
	// store-native order, distance 0.
	StructuralSearch(
		ctx context.Context, kbIDs []string, filters filter.Expression, limit int,
	) ([]result.Result, error)

	// ChunkIDs retrieves only the identifiers of chunks matching the tag
	// predicate across the given partitions.
	ChunkIDs(ctx context.Context, kbIDs []string, filters filter.Expression) ([]string, error)

	// SimilaritySearch retrieves chunks ordered ascending by distance, all
	// strictly below the threshold.
	SimilaritySearch(
		ctx context.Context, kbIDs []string, vector []float32, threshold float64, limit int,
	) ([]result.Result, error)

	// SimilaritySearchByIDs is SimilaritySearch restricted to an identifier set.
	SimilaritySearchByIDs(
		ctx context.Context, ids []string, vector []float32, threshold float64, limit int,
	) ([]result.Result, error)
}

// DocumentReader resolves document identifiers to display names.
type DocumentReader interface {
	NamesByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// Reranker reorders an already-ranked result list by semantic relevance to the
// query. Best-effort: implementations return the input unchanged on any
// failure and never return an error.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []result.Result, topN int) []result.Result
}
