// Package rerank reorders already-ranked search results via an external
// relevance-scoring service. Reranking is a best-effort enhancement: every
// failure mode degrades to returning the input list unchanged.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/logger"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/metrics"
)

// Candidate limits: at most this many items from the head of the ranked list
// are sent, each truncated to bound the request payload.
const (
	MaxCandidates    = 50
	MaxDocumentChars = 4000
)

// DefaultTimeout bounds the remote call; on expiry the pre-rerank list is
// returned.
const DefaultTimeout = 10 * time.Second

// Config holds reranking service settings.
type Config struct {
	Enabled  bool
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Client calls the reranking service. Safe for concurrent use; holds no
// per-call state.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a rerank client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type rerankRequest struct {
	Model     string           `json:"model"`
	Query     string           `json:"query"`
	Documents []rerankDocument `json:"documents"`
	TopN      int              `json:"top_n"`
}

type rerankDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// rerankResponse tolerates provider API versioning: the item list may appear
// under "results" or "data", the score under "relevance_score" or "score".
type rerankResponse struct {
	Results []rerankItem `json:"results"`
	Data    []rerankItem `json:"data"`
}

type rerankItem struct {
	ID             string   `json:"id"`
	Index          *int     `json:"index"`
	RelevanceScore *float64 `json:"relevance_score"`
	Score          *float64 `json:"score"`
}

func (r *rerankResponse) items() []rerankItem {
	if len(r.Results) > 0 {
		return r.Results
	}
	return r.Data
}

// Rerank reorders results by semantic relevance to query and truncates to
// topN. The input list must already be ranked; its head supplies the
// candidates. On any failure (disabled, blank query, empty input, missing
// credential, transport error, non-2xx, malformed body) the original list is
// returned unchanged.
func (c *Client) Rerank(
	ctx context.Context, query string, results []result.Result, topN int,
) []result.Result {
	log := logger.FromContext(ctx)

	switch {
	case !c.cfg.Enabled:
		metrics.RerankTotal.WithLabelValues("skipped").Inc()
		return results
	case strings.TrimSpace(query) == "":
		metrics.RerankTotal.WithLabelValues("skipped").Inc()
		return results
	case len(results) == 0:
		metrics.RerankTotal.WithLabelValues("skipped").Inc()
		return results
	case c.cfg.APIKey == "":
		metrics.RerankTotal.WithLabelValues("skipped").Inc()
		log.Warn("rerank skipped: no credential configured")
		return results
	}

	candidates := results
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	if topN > len(candidates) {
		topN = len(candidates)
	}
	if topN <= 0 {
		topN = len(candidates)
	}

	scores, err := c.call(ctx, query, candidates, topN)
	if err != nil {
		metrics.RerankTotal.WithLabelValues("failed").Inc()
		log.Warn("rerank degraded to original ranking", zap.Error(err))
		return results
	}

	metrics.RerankTotal.WithLabelValues("applied").Inc()
	return reorder(results, scores, topN)
}

// call performs the remote request and returns resolved scores keyed by chunk id.
func (c *Client) call(
	ctx context.Context, query string, candidates []result.Result, topN int,
) (map[string]float64, error) {
	docs := make([]rerankDocument, len(candidates))
	for i, r := range candidates {
		docs[i] = rerankDocument{ID: r.ChunkID(), Text: truncateText(r.Content())}
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.cfg.Model,
		Query:     query,
		Documents: docs,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rerank status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := parsed.items()
	if len(items) == 0 {
		return nil, fmt.Errorf("empty rerank item list")
	}

	return resolveScores(items, candidates), nil
}

// resolveScores normalizes the response shape once, at this boundary: item
// identity comes from an explicit id or a positional index into the submitted
// documents; the score from either known field, falling back to a
// rank-derived value (totalItems - position) that preserves response order.
func resolveScores(items []rerankItem, candidates []result.Result) map[string]float64 {
	scores := make(map[string]float64, len(items))
	total := len(items)

	for pos, item := range items {
		id := item.ID
		if id == "" && item.Index != nil {
			if idx := *item.Index; idx >= 0 && idx < len(candidates) {
				id = candidates[idx].ChunkID()
			}
		}
		if id == "" {
			continue
		}

		switch {
		case item.RelevanceScore != nil:
			scores[id] = *item.RelevanceScore
		case item.Score != nil:
			scores[id] = *item.Score
		default:
			scores[id] = float64(total - pos)
		}
	}

	return scores
}

// reorder sorts the full original list by resolved score descending; items
// the remote response did not mention sink to the bottom, never promoted.
func reorder(results []result.Result, scores map[string]float64, topN int) []result.Result {
	reordered := make([]result.Result, len(results))
	copy(reordered, results)

	sort.SliceStable(reordered, func(i, j int) bool {
		return scoreOf(&reordered[i], scores) > scoreOf(&reordered[j], scores)
	})

	if len(reordered) > topN {
		reordered = reordered[:topN]
	}
	return reordered
}

func scoreOf(r *result.Result, scores map[string]float64) float64 {
	if s, ok := scores[r.ChunkID()]; ok {
		return s
	}
	return math.Inf(-1)
}

func truncateText(s string) string {
	if len(s) <= MaxDocumentChars {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxDocumentChars {
		return s
	}
	return string(runes[:MaxDocumentChars])
}
