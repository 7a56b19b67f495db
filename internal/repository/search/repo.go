// Package search translates domain search calls into store queries and parses
// the raw entries back into domain results.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
)

// maxStage1IDs caps the hybrid stage-1 identifier lookup. The candidate set
// feeds a single tag-set restriction in stage 2, so it has to stay bounded.
const maxStage1IDs = 10000

// store is the consumer interface for search operations (ISP).
type store interface {
	StructuralSearch(ctx context.Context, q *db.StructuralQuery) (*db.SearchResult, error)
	SimilaritySearch(ctx context.Context, q *db.SimilarityQuery) (*db.SearchResult, error)
}

// Repo implements the search usecase's Repository contract.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// resultFields are the hash fields returned for a full search hit.
var resultFields = buildResultFields()

func buildResultFields() []string {
	fields := []string{db.FieldContent, db.FieldDocumentID, db.FieldChunkIndex, db.FieldKBID}
	return append(fields, db.TagSlotFields...)
}

// StructuralSearch retrieves chunks matching the tag predicate. Every result
// carries distance 0: no similarity ranking applies to structural retrieval.
func (r *Repo) StructuralSearch(
	ctx context.Context, kbIDs []string, filters filter.Expression, limit int,
) ([]result.Result, error) {
	q := &db.StructuralQuery{
		IndexName:    domain.ChunkIndexName,
		KBIDs:        kbIDs,
		Filters:      filters,
		Limit:        limit,
		ReturnFields: resultFields,
	}

	sr, err := r.store.StructuralSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("structural search: %w", err)
	}

	return parseResults(sr), nil
}

// ChunkIDs retrieves only the identifiers of chunks matching the tag
// predicate across the given partitions (hybrid stage 1).
func (r *Repo) ChunkIDs(
	ctx context.Context, kbIDs []string, filters filter.Expression,
) ([]string, error) {
	q := &db.StructuralQuery{
		IndexName:    domain.ChunkIndexName,
		KBIDs:        kbIDs,
		Filters:      filters,
		Limit:        maxStage1IDs,
		ReturnFields: []string{db.FieldChunkID},
	}

	sr, err := r.store.StructuralSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chunk id lookup: %w", err)
	}

	ids := make([]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		ids = append(ids, chunkIDFromEntry(e))
	}
	return ids, nil
}

// SimilaritySearch retrieves chunks by vector distance, ordered ascending,
// all strictly below the threshold.
func (r *Repo) SimilaritySearch(
	ctx context.Context, kbIDs []string, vector []float32, threshold float64, limit int,
) ([]result.Result, error) {
	q := &db.SimilarityQuery{
		IndexName:    domain.ChunkIndexName,
		KBIDs:        kbIDs,
		Vector:       vector,
		Threshold:    threshold,
		Limit:        limit,
		ReturnFields: resultFields,
	}

	sr, err := r.store.SimilaritySearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	return parseResults(sr), nil
}

// SimilaritySearchByIDs retrieves chunks by vector distance restricted to a
// pre-filtered identifier set (hybrid stage 2). ids must be non-empty; the
// executor short-circuits before this call otherwise.
func (r *Repo) SimilaritySearchByIDs(
	ctx context.Context, ids []string, vector []float32, threshold float64, limit int,
) ([]result.Result, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("restricted similarity search requires a non-empty id set")
	}

	q := &db.SimilarityQuery{
		IndexName:    domain.ChunkIndexName,
		RestrictIDs:  ids,
		Vector:       vector,
		Threshold:    threshold,
		Limit:        limit,
		ReturnFields: resultFields,
	}

	sr, err := r.store.SimilaritySearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("restricted similarity search: %w", err)
	}

	return parseResults(sr), nil
}

// parseResults converts db.SearchResult entries into domain results.
func parseResults(sr *db.SearchResult) []result.Result {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	results := make([]result.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		results = append(results, parseEntry(entry))
	}
	return results
}

func parseEntry(entry db.SearchEntry) result.Result {
	var content, documentID, kbID string
	chunkIndex := 0
	tags := make(map[string]string)

	for k, v := range entry.Fields {
		switch k {
		case db.FieldContent:
			content = v
		case db.FieldDocumentID:
			documentID = v
		case db.FieldKBID:
			kbID = v
		case db.FieldChunkIndex:
			if n, err := strconv.Atoi(v); err == nil {
				chunkIndex = n
			}
		default:
			if filter.IsSlot(k) && v != "" {
				tags[k] = v
			}
		}
	}

	return result.New(
		chunkIDFromEntry(entry), content, documentID, chunkIndex,
		tags, entry.Distance, kbID,
	)
}

func chunkIDFromEntry(entry db.SearchEntry) string {
	if id, ok := entry.Fields[db.FieldChunkID]; ok && id != "" {
		return id
	}
	return strings.TrimPrefix(entry.Key, domain.ChunkKeyPrefix)
}
