// Package search executes tag-only, vector-only, and hybrid retrieval across
// knowledge-base partitions.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/params"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/plan"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/logger"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/metrics"
)

// DefaultFilterCacheSize bounds the compiled-filter cache.
const DefaultFilterCacheSize = 256

// Hit is a search result enriched with its document's display name.
// DocumentName is empty when the name is unknown.
type Hit struct {
	Result       result.Result
	DocumentName string
}

// Service executes knowledge-base searches. Stateless across calls except for
// the bounded compiled-filter cache, which is owned here rather than held in
// any package-level variable.
type Service struct {
	repo        Repository
	docs        DocumentReader
	rerank      Reranker
	filterCache *lru.Cache[string, filter.Expression]
}

// New creates a search service.
func New(repo Repository, docs DocumentReader) *Service {
	cache, _ := lru.New[string, filter.Expression](DefaultFilterCacheSize)
	return &Service{repo: repo, docs: docs, filterCache: cache}
}

// WithReranker attaches an optional reranker.
func (s *Service) WithReranker(r Reranker) *Service {
	s.rerank = r
	return s
}

// WithFilterCacheSize resizes the compiled-filter cache.
func (s *Service) WithFilterCacheSize(size int) *Service {
	if size > 0 {
		cache, err := lru.New[string, filter.Expression](size)
		if err == nil {
			s.filterCache = cache
		}
	}
	return s
}

// Search is the top-level entry point: it routes to an executor based on the
// supplied inputs, optionally reranks against the query text, and enriches
// hits with document names.
func (s *Service) Search(ctx context.Context, p *params.Params, query string) ([]Hit, error) {
	var (
		results []result.Result
		err     error
		mode    string
	)
	start := time.Now()

	switch {
	case p.HasTagFilters() && p.HasVector():
		mode = "hybrid"
		results, err = s.SearchHybrid(ctx, p)
	case p.HasVector():
		mode = "vector"
		results, err = s.SearchByVector(ctx, p)
	case p.HasTagFilters():
		mode = "tag"
		results, err = s.SearchByTags(ctx, p)
	default:
		return nil, domain.ErrNoSearchMode
	}
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}
	metrics.SearchesTotal.WithLabelValues(mode, "ok").Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if s.rerank != nil && strings.TrimSpace(query) != "" {
		results = s.rerank.Rerank(ctx, query, results, p.TopK())
	}

	return s.enrich(ctx, results), nil
}

// SearchByTags runs structural-only retrieval. Tag filters are required;
// callers that intend "no tag filtering" belong on the vector path.
func (s *Service) SearchByTags(ctx context.Context, p *params.Params) ([]result.Result, error) {
	if !p.HasTagFilters() {
		return nil, domain.ErrMissingTagFilters
	}

	expr := s.compileFilters(p.TagFilters())
	kbIDs := p.KnowledgeBaseIDs()
	pl := plan.Select(len(kbIDs), p.TopK())

	if !pl.Parallel() {
		results, err := s.repo.StructuralSearch(ctx, kbIDs, expr, p.TopK())
		if err != nil {
			return nil, fmt.Errorf("tag search: %w", err)
		}
		return results, nil
	}

	merged := s.fanOut(ctx, kbIDs, func(ctx context.Context, kbID string) ([]result.Result, error) {
		return s.repo.StructuralSearch(ctx, []string{kbID}, expr, pl.PerPartitionLimit())
	})

	// Tag-only hits carry no ranking signal; arrival order (branch order) is
	// preserved and only truncated.
	return truncate(merged, p.TopK()), nil
}

// SearchByVector runs similarity retrieval with a distance threshold.
func (s *Service) SearchByVector(ctx context.Context, p *params.Params) ([]result.Result, error) {
	if !p.HasVector() {
		return nil, domain.ErrMissingQueryVector
	}

	kbIDs := p.KnowledgeBaseIDs()
	threshold := effectiveThreshold(p)
	pl := plan.Select(len(kbIDs), p.TopK())

	if !pl.Parallel() {
		results, err := s.repo.SimilaritySearch(ctx, kbIDs, p.Vector(), threshold, p.TopK())
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		return results, nil
	}

	merged := s.fanOut(ctx, kbIDs, func(ctx context.Context, kbID string) ([]result.Result, error) {
		return s.repo.SimilaritySearch(ctx, []string{kbID}, p.Vector(), threshold, pl.PerPartitionLimit())
	})

	// Per-partition order does not compose into global order; the merge must
	// re-sort before truncating.
	return mergeByDistance(merged, p.TopK()), nil
}

// SearchHybrid narrows by tag predicate first, then ranks the surviving
// candidates by distance.
func (s *Service) SearchHybrid(ctx context.Context, p *params.Params) ([]result.Result, error) {
	if !p.HasTagFilters() {
		return nil, domain.ErrMissingHybridFilters
	}
	if !p.HasVector() {
		return nil, domain.ErrMissingHybridVector
	}

	expr := s.compileFilters(p.TagFilters())
	kbIDs := p.KnowledgeBaseIDs()
	threshold := effectiveThreshold(p)

	ids, err := s.repo.ChunkIDs(ctx, kbIDs, expr)
	if err != nil {
		return nil, fmt.Errorf("hybrid stage 1: %w", err)
	}
	if len(ids) == 0 {
		// Nothing survived the tag predicate. The similarity stage must not
		// run with an empty id set.
		return []result.Result{}, nil
	}

	results, err := s.repo.SimilaritySearchByIDs(ctx, ids, p.Vector(), threshold, p.TopK())
	if err != nil {
		return nil, fmt.Errorf("hybrid stage 2: %w", err)
	}
	return results, nil
}

// fanOut issues one query per partition concurrently and joins all branches.
// A failing branch is logged and contributes zero results; siblings are never
// aborted, since every partition's answer is needed for correct global ranking.
func (s *Service) fanOut(
	ctx context.Context, kbIDs []string,
	query func(ctx context.Context, kbID string) ([]result.Result, error),
) []result.Result {
	branches := make([][]result.Result, len(kbIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, kbID := range kbIDs {
		i, kbID := i, kbID
		g.Go(func() error {
			res, err := query(gctx, kbID)
			if err != nil {
				logger.FromContext(ctx).Error("knowledge base branch failed",
					zap.String("kb_id", kbID),
					zap.Error(err),
				)
				metrics.BranchFailuresTotal.Inc()
				return nil
			}
			branches[i] = res
			return nil
		})
	}
	// Branch funcs always return nil; Wait is a pure join barrier here.
	_ = g.Wait()

	var merged []result.Result
	for _, b := range branches {
		merged = append(merged, b...)
	}
	return merged
}

// enrich attaches document display names to results. Name-resolution failures
// degrade to unnamed hits; they never fail the search.
func (s *Service) enrich(ctx context.Context, results []result.Result) []Hit {
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{Result: r}
	}
	if s.docs == nil || len(results) == 0 {
		return hits
	}

	ids := uniqueDocumentIDs(results)
	names, err := s.docs.NamesByIDs(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("document name resolution failed", zap.Error(err))
		return hits
	}

	for i := range hits {
		hits[i].DocumentName = names[hits[i].Result.DocumentID()]
	}
	return hits
}

// compileFilters compiles the tag map, consulting the bounded cache first.
func (s *Service) compileFilters(tags map[string]string) filter.Expression {
	if s.filterCache == nil {
		return filter.Compile(tags)
	}

	key := filterCacheKey(tags)
	if expr, ok := s.filterCache.Get(key); ok {
		return expr
	}

	expr := filter.Compile(tags)
	s.filterCache.Add(key, expr)
	return expr
}

// filterCacheKey canonicalizes a tag map: fixed slot order, unknown slots
// ignored (they compile to nothing anyway).
func filterCacheKey(tags map[string]string) string {
	var b strings.Builder
	for _, slot := range filter.Slots {
		if v, ok := tags[slot]; ok {
			b.WriteString(slot)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('\x1f')
		}
	}
	return b.String()
}

// effectiveThreshold resolves the caller threshold or the plan default.
func effectiveThreshold(p *params.Params) float64 {
	if t, ok := p.Threshold(); ok {
		return t
	}
	return plan.DefaultThreshold(len(p.KnowledgeBaseIDs()))
}

func uniqueDocumentIDs(results []result.Result) []string {
	seen := make(map[string]struct{}, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		id := r.DocumentID()
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
