package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/result"
)

func makeResults(n int) []result.Result {
	out := make([]result.Result, n)
	for i := 0; i < n; i++ {
		out[i] = result.New(
			fmt.Sprintf("chunk-%d", i), fmt.Sprintf("content %d", i),
			"doc-1", i, nil, float64(i)/100, "kb1",
		)
	}
	return out
}

func sameOrder(t *testing.T, got, want []result.Result) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ChunkID() != want[i].ChunkID() {
			t.Errorf("position %d: expected %s, got %s", i, want[i].ChunkID(), got[i].ChunkID())
		}
	}
}

func enabledConfig(endpoint string) Config {
	return Config{
		Enabled:  true,
		Endpoint: endpoint,
		APIKey:   "test-key",
		Model:    "test-rerank-model",
	}
}

func TestRerank_Disabled(t *testing.T) {
	c := New(Config{Enabled: false, APIKey: "k", Endpoint: "http://unused"})
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_BlankQuery(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "   ", in, 3)
	sameOrder(t, out, in)
	if called {
		t.Error("no request should be made for a blank query")
	}
}

func TestRerank_EmptyInput(t *testing.T) {
	c := New(enabledConfig("http://unused"))

	out := c.Rerank(context.Background(), "query", nil, 3)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
}

func TestRerank_NoCredential(t *testing.T) {
	c := New(Config{Enabled: true, Endpoint: "http://unused"})
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_EmptyItemList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	sameOrder(t, out, in)
}

func TestRerank_AppliesScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		_, _ = w.Write([]byte(`{"results": [
			{"id": "chunk-2", "relevance_score": 0.9},
			{"id": "chunk-0", "relevance_score": 0.5},
			{"id": "chunk-1", "relevance_score": 0.1}
		]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	want := []string{"chunk-2", "chunk-0", "chunk-1"}
	for i, w := range want {
		if out[i].ChunkID() != w {
			t.Errorf("position %d: expected %s, got %s", i, w, out[i].ChunkID())
		}
	}
}

func TestRerank_DataFieldAndScoreAlias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"id": "chunk-1", "score": 0.8},
			{"id": "chunk-0", "score": 0.2}
		]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(2)

	out := c.Rerank(context.Background(), "query", in, 2)
	if out[0].ChunkID() != "chunk-1" || out[1].ChunkID() != "chunk-0" {
		t.Errorf("unexpected order: %s, %s", out[0].ChunkID(), out[1].ChunkID())
	}
}

func TestRerank_IndexOnlyItemsUseResponseOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [
			{"index": 2},
			{"index": 0},
			{"index": 1}
		]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	// Rank-derived scores (3, 2, 1) follow the response order.
	want := []string{"chunk-2", "chunk-0", "chunk-1"}
	for i, w := range want {
		if out[i].ChunkID() != w {
			t.Errorf("position %d: expected %s, got %s", i, w, out[i].ChunkID())
		}
	}
}

func TestRerank_UnmentionedItemsSink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [
			{"id": "chunk-2", "relevance_score": 0.9}
		]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 3)
	if out[0].ChunkID() != "chunk-2" {
		t.Errorf("expected mentioned item first, got %s", out[0].ChunkID())
	}
	// Unmentioned items keep their relative order at the bottom.
	if out[1].ChunkID() != "chunk-0" || out[2].ChunkID() != "chunk-1" {
		t.Errorf("unexpected tail order: %s, %s", out[1].ChunkID(), out[2].ChunkID())
	}
}

func TestRerank_TruncatesToTopN(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [
			{"id": "chunk-0", "relevance_score": 0.1},
			{"id": "chunk-1", "relevance_score": 0.9},
			{"id": "chunk-2", "relevance_score": 0.5}
		]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))
	in := makeResults(3)

	out := c.Rerank(context.Background(), "query", in, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].ChunkID() != "chunk-1" || out[1].ChunkID() != "chunk-2" {
		t.Errorf("unexpected order: %s, %s", out[0].ChunkID(), out[1].ChunkID())
	}
}

func TestRerank_CandidateAndTextLimits(t *testing.T) {
	var got rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"results": [{"id": "chunk-0", "relevance_score": 1}]}`))
	}))
	defer srv.Close()

	c := New(enabledConfig(srv.URL))

	in := makeResults(MaxCandidates + 10)
	long := result.New("chunk-0", strings.Repeat("x", MaxDocumentChars+500), "doc-1", 0, nil, 0.01, "kb1")
	in[0] = long

	_ = c.Rerank(context.Background(), "query", in, 100)

	if len(got.Documents) != MaxCandidates {
		t.Errorf("expected %d candidates, got %d", MaxCandidates, len(got.Documents))
	}
	if got.TopN != MaxCandidates {
		t.Errorf("expected top_n bounded to %d, got %d", MaxCandidates, got.TopN)
	}
	if len(got.Documents[0].Text) != MaxDocumentChars {
		t.Errorf("expected document text truncated to %d, got %d", MaxDocumentChars, len(got.Documents[0].Text))
	}
	if got.Model != "test-rerank-model" {
		t.Errorf("unexpected model: %q", got.Model)
	}
	if got.Query != "query" {
		t.Errorf("unexpected query: %q", got.Query)
	}
}
