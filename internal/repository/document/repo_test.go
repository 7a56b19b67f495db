package document

import (
	"context"
	"errors"
	"testing"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
)

type mockStore struct {
	hashes   []map[string]string
	err      error
	lastKeys []string
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.lastKeys = keys
	return m.hashes, m.err
}

func TestNamesByIDs_Success(t *testing.T) {
	ms := &mockStore{hashes: []map[string]string{
		{db.DocFieldName: "Alpha Guide"},
		{db.DocFieldName: "Beta Notes"},
	}}
	repo := New(ms)

	names, err := repo.NamesByIDs(context.Background(), []string{"d1", "d2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if names["d1"] != "Alpha Guide" || names["d2"] != "Beta Notes" {
		t.Errorf("unexpected names: %v", names)
	}
	if ms.lastKeys[0] != domain.DocumentKeyPrefix+"d1" {
		t.Errorf("unexpected key: %s", ms.lastKeys[0])
	}
}

func TestNamesByIDs_SkipsDeletedAndMissing(t *testing.T) {
	ms := &mockStore{hashes: []map[string]string{
		{db.DocFieldName: "Kept"},
		{db.DocFieldName: "Gone", db.DocFieldDeleted: "1"},
		{}, // missing document
		{db.DocFieldDeleted: "0"}, // no name
	}}
	repo := New(ms)

	names, err := repo.NamesByIDs(context.Background(), []string{"d1", "d2", "d3", "d4"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected 1 name, got %d: %v", len(names), names)
	}
	if names["d1"] != "Kept" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestNamesByIDs_Empty(t *testing.T) {
	repo := New(&mockStore{})

	names, err := repo.NamesByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty map, got %v", names)
	}
}

func TestNamesByIDs_StoreError(t *testing.T) {
	repo := New(&mockStore{err: errors.New("store down")})

	_, err := repo.NamesByIDs(context.Background(), []string{"d1"})
	if err == nil {
		t.Fatal("expected error")
	}
}
