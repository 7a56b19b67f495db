package search

import (
	"sort"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
)

// mergeByDistance re-establishes global ascending-distance order over
// concatenated per-partition results and truncates to topK. The sort is
// stable, so equal distances tie-break by branch order and identical inputs
// always merge identically. No deduplication: chunk identifiers are globally
// unique, and a cross-partition collision is an upstream data fault that
// should stay visible.
func mergeByDistance(results []result.Result, topK int) []result.Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance() < results[j].Distance()
	})
	return truncate(results, topK)
}

func truncate(results []result.Result, topK int) []result.Result {
	if len(results) > topK {
		return results[:topK]
	}
	return results
}
