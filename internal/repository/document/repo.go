// Package document resolves document identifiers to human-readable names.
package document

import (
	"context"
	"fmt"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
)

// store is the consumer interface for document lookups (ISP).
type store interface {
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads document metadata.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// NamesByIDs returns a mapping from document identifier to display name for
// the given ids. Soft-deleted documents and unknown identifiers are simply
// absent from the map; callers treat absence as "name unknown".
func (r *Repo) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = domain.DocumentKeyPrefix + id
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("document name lookup: %w", err)
	}

	names := make(map[string]string, len(ids))
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue // missing document
		}
		if fields[db.DocFieldDeleted] == "1" {
			continue
		}
		name := fields[db.DocFieldName]
		if name == "" {
			continue
		}
		names[ids[i]] = name
	}

	return names, nil
}
