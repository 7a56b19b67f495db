package db

import (
	"context"
	"time"
)

// Store is the read-side database facade. It is a long-lived, shared resource:
// concurrent queries from independent search calls must be safe without
// external locking.
type Store interface {
	Pinger
	HashReader
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashReader provides batched hash reads (document metadata lookups).
type HashReader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	StructuralSearch(ctx context.Context, q *StructuralQuery) (*SearchResult, error)
	SimilaritySearch(ctx context.Context, q *SimilarityQuery) (*SearchResult, error)
}
