package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chiRouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/filter"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
	healthuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/health"
	searchuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/search"
)

// --- Mocks ---

type mockRepo struct {
	results []result.Result
	err     error
}

func (m *mockRepo) StructuralSearch(
	_ context.Context, _ []string, _ filter.Expression, _ int,
) ([]result.Result, error) {
	return m.results, m.err
}

func (m *mockRepo) ChunkIDs(_ context.Context, _ []string, _ filter.Expression) ([]string, error) {
	ids := make([]string, len(m.results))
	for i := range m.results {
		ids[i] = m.results[i].ChunkID()
	}
	return ids, m.err
}

func (m *mockRepo) SimilaritySearch(
	_ context.Context, _ []string, _ []float32, _ float64, _ int,
) ([]result.Result, error) {
	return m.results, m.err
}

func (m *mockRepo) SimilaritySearchByIDs(
	_ context.Context, _ []string, _ []float32, _ float64, _ int,
) ([]result.Result, error) {
	return m.results, m.err
}

type mockDocs struct{}

func (m *mockDocs) NamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		names[id] = "Name of " + id
	}
	return names, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	m.called = true
	return m.vec, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func newTestServer(repo *mockRepo, embed Embedder, pingErr error) http.Handler {
	searchSvc := searchuc.New(repo, &mockDocs{})
	healthSvc := healthuc.New(&mockPinger{err: pingErr}, nil)
	srv := NewServer(searchSvc, healthSvc, embed, zap.NewNop())

	r := chiRouter.NewRouter()
	srv.Routes(r)
	return r
}

func postSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestSearchChunks_VectorSearch(t *testing.T) {
	repo := &mockRepo{results: []result.Result{
		result.New("c1", "first chunk", "d1", 0, map[string]string{"tag1": "red"}, 0.1, "kb1"),
	}}
	h := newTestServer(repo, nil, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "vector": [0.1, 0.2], "top_k": 5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	item := resp.Items[0]
	if item.ChunkID != "c1" || item.KnowledgeBaseID != "kb1" || item.Distance != 0.1 {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.DocumentName != "Name of d1" {
		t.Errorf("expected resolved document name, got %q", item.DocumentName)
	}
}

func TestSearchChunks_InvalidBody(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, nil)

	w := postSearch(t, h, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSearchChunks_MissingKnowledgeBases(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, nil)

	w := postSearch(t, h, `{"vector": [0.1]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchChunks_NoSearchInputs(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchChunks_InvalidThreshold(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "vector": [0.1], "distance_threshold": -1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchChunks_EmbedsQuery(t *testing.T) {
	repo := &mockRepo{results: []result.Result{
		result.New("c1", "text", "d1", 0, nil, 0.2, "kb1"),
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	h := newTestServer(repo, embed, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "query": "how to configure"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !embed.called {
		t.Error("expected the query to be embedded")
	}
}

func TestSearchChunks_SuppliedVectorSkipsEmbedding(t *testing.T) {
	repo := &mockRepo{results: []result.Result{
		result.New("c1", "text", "d1", 0, nil, 0.2, "kb1"),
	}}
	embed := &mockEmbedder{vec: []float32{0.9}}
	h := newTestServer(repo, embed, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "query": "q", "vector": [0.1]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if embed.called {
		t.Error("a caller-supplied vector must not be re-embedded")
	}
}

func TestSearchChunks_EmbeddingFailure(t *testing.T) {
	embed := &mockEmbedder{
		err: fmt.Errorf("embedding request failed: %w", domain.ErrEmbeddingProviderError),
	}
	h := newTestServer(&mockRepo{}, embed, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "query": "q"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSearchChunks_InternalError(t *testing.T) {
	repo := &mockRepo{err: errors.New("store exploded")}
	h := newTestServer(repo, nil, nil)

	w := postSearch(t, h, `{"knowledge_bases": ["kb1"], "vector": [0.1]}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "exploded") {
		t.Error("internal error details must not leak to the client")
	}
}

func TestHealthCheck_OK(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	h := newTestServer(&mockRepo{}, nil, errors.New("conn refused"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
