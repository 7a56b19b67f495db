package domain

import "errors"

var (
	// ErrMissingKnowledgeBases signals a search call without partition identifiers.
	ErrMissingKnowledgeBases = errors.New("at least one knowledge base is required")
	// ErrMissingTagFilters signals a tag-only search invoked without filters.
	ErrMissingTagFilters = errors.New("tag filters are required for tag-only search")
	// ErrMissingQueryVector signals a vector search invoked without a query vector.
	ErrMissingQueryVector = errors.New("query vector is required for vector search")
	// ErrMissingHybridFilters signals a hybrid search invoked without tag filters.
	ErrMissingHybridFilters = errors.New("tag filters are required for hybrid search")
	// ErrMissingHybridVector signals a hybrid search invoked without a query vector.
	ErrMissingHybridVector = errors.New("query vector is required for hybrid search")
	// ErrInvalidThreshold signals a caller-supplied distance threshold that is not positive.
	ErrInvalidThreshold = errors.New("distance threshold must be positive")
	// ErrNoSearchMode signals a call that supplies neither tag filters nor a query vector.
	ErrNoSearchMode = errors.New("either tag filters or a query vector is required")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
