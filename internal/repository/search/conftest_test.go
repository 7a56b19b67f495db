package search

import (
	"context"
	"testing"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	structuralFn func(ctx context.Context, q *db.StructuralQuery) (*db.SearchResult, error)
	similarityFn func(ctx context.Context, q *db.SimilarityQuery) (*db.SearchResult, error)

	lastStructural *db.StructuralQuery
	lastSimilarity *db.SimilarityQuery
}

func (m *mockStore) StructuralSearch(ctx context.Context, q *db.StructuralQuery) (*db.SearchResult, error) {
	m.lastStructural = q
	if m.structuralFn != nil {
		return m.structuralFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SimilaritySearch(ctx context.Context, q *db.SimilarityQuery) (*db.SearchResult, error) {
	m.lastSimilarity = q
	if m.similarityFn != nil {
		return m.similarityFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}
