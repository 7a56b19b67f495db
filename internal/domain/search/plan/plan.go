// Package plan decides how a search is executed across knowledge-base partitions.
package plan

// Fan-out thresholds. A single query spanning many partitions grows
// combinatorially expensive in the store's filter evaluation, so wide calls are
// split into one bounded query per partition.
const (
	parallelKBCount      = 4
	parallelKBCountLarge = 2
	parallelTopK         = 50

	// perPartitionOvershoot compensates for uneven result distribution across
	// partitions so the final merge can still fill topK after the global sort.
	perPartitionOvershoot = 5
)

// Default distance thresholds applied when the caller supplies none. Wider
// fan-out gets a tighter admissible-distance band to control result-set growth.
const (
	tightThreshold   = 0.8
	defaultThreshold = 1.0
	tightKBCount     = 3
)

// Plan is an execution plan for one search call.
type Plan struct {
	parallel          bool
	perPartitionLimit int
}

// Parallel reports whether the search fans out one query per partition.
func (p Plan) Parallel() bool { return p.parallel }

// PerPartitionLimit returns the per-branch result cap in parallel mode.
// In single mode it equals the requested topK.
func (p Plan) PerPartitionLimit() int { return p.perPartitionLimit }

// Select computes the execution plan. Pure: identical inputs always yield an
// identical plan.
func Select(kbCount, topK int) Plan {
	parallel := kbCount > parallelKBCount ||
		(kbCount > parallelKBCountLarge && topK > parallelTopK)

	limit := topK
	if parallel {
		limit = ceilDiv(topK, kbCount) + perPartitionOvershoot
	}

	return Plan{parallel: parallel, perPartitionLimit: limit}
}

// DefaultThreshold returns the distance threshold used when the caller does not
// supply one.
func DefaultThreshold(kbCount int) float64 {
	if kbCount > tightKBCount {
		return tightThreshold
	}
	return defaultThreshold
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
