// Package params holds the validated input for one search invocation.
package params

import (
	"math"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
)

// Limits on caller-supplied values.
const (
	DefaultTopK = 10
	MaxTopK     = 500
)

// Params is an immutable, validated search input.
type Params struct {
	kbIDs      []string
	topK       int
	tagFilters map[string]string
	vector     []float32
	threshold  float64
	hasThresh  bool
}

// New validates and normalizes search parameters.
// topK defaults to DefaultTopK when non-positive and is clamped to MaxTopK.
// A nil threshold means "use the plan default"; a supplied one must be a
// positive finite number.
func New(
	kbIDs []string,
	topK int,
	tagFilters map[string]string,
	vector []float32,
	threshold *float64,
) (Params, error) {
	kbIDs = dedupe(kbIDs)
	if len(kbIDs) == 0 {
		return Params{}, domain.ErrMissingKnowledgeBases
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	p := Params{
		kbIDs:      kbIDs,
		topK:       topK,
		tagFilters: tagFilters,
		vector:     vector,
	}

	if threshold != nil {
		t := *threshold
		if t <= 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return Params{}, domain.ErrInvalidThreshold
		}
		p.threshold = t
		p.hasThresh = true
	}

	return p, nil
}

// KnowledgeBaseIDs returns the partition identifiers in caller order,
// duplicates removed.
func (p *Params) KnowledgeBaseIDs() []string { return p.kbIDs }

// TopK returns the ceiling on returned items.
func (p *Params) TopK() int { return p.topK }

// TagFilters returns the tag-slot filter map (may be nil).
func (p *Params) TagFilters() map[string]string { return p.tagFilters }

// HasTagFilters reports whether any tag filtering was requested.
func (p *Params) HasTagFilters() bool { return len(p.tagFilters) > 0 }

// Vector returns the dense query vector (nil when absent).
func (p *Params) Vector() []float32 { return p.vector }

// HasVector reports whether a query vector was supplied.
func (p *Params) HasVector() bool { return len(p.vector) > 0 }

// Threshold returns the caller-supplied distance threshold and whether one was
// supplied at all.
func (p *Params) Threshold() (float64, bool) { return p.threshold, p.hasThresh }

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
