package db

import "github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"

// StructuralQuery is the input for tag-predicate-only retrieval.
// The store must additionally require partition membership, the enabled flag,
// and a non-soft-deleted parent document.
type StructuralQuery struct {
	IndexName    string
	KBIDs        []string
	Filters      filter.Expression
	Limit        int
	ReturnFields []string
}

// SimilarityQuery is the input for vector similarity retrieval.
// Results are ordered ascending by distance and every returned entry satisfies
// Distance < Threshold (exclusive upper bound). When RestrictIDs is non-empty
// the candidate set is limited to those chunk identifiers.
type SimilarityQuery struct {
	IndexName    string
	KBIDs        []string
	Filters      filter.Expression
	Vector       []float32
	Threshold    float64
	Limit        int
	RestrictIDs  []string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single chunk hit.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
