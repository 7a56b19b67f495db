package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain/search/params"
	healthuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/health"
	searchuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/search"
)

// Embedder turns query text into a vector when the caller supplies none.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// errorCode identifies an error class in responses.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeInternalError          errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the search service.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	embed         Embedder
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. embed can be nil when query
// embedding is not configured.
func NewServer(
	search *searchuc.Service,
	health *healthuc.Service,
	embed Embedder,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		health: health,
		embed:  embed,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingKnowledgeBases, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMissingTagFilters, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMissingQueryVector, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMissingHybridFilters, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrMissingHybridVector, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidThreshold, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNoSearchMode, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
	}
	return s
}

// Routes registers the API endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/search", s.SearchChunks)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type searchRequest struct {
	KnowledgeBases    []string          `json:"knowledge_bases"`
	TopK              int               `json:"top_k,omitempty"`
	Filters           map[string]string `json:"filters,omitempty"`
	Query             string            `json:"query,omitempty"`
	Vector            []float32         `json:"vector,omitempty"`
	DistanceThreshold *float64          `json:"distance_threshold,omitempty"`
}

type searchResultItem struct {
	ChunkID         string            `json:"chunk_id"`
	Content         string            `json:"content"`
	DocumentID      string            `json:"document_id"`
	DocumentName    string            `json:"document_name,omitempty"`
	ChunkIndex      int               `json:"chunk_index"`
	Tags            map[string]string `json:"tags,omitempty"`
	Distance        float64           `json:"distance"`
	KnowledgeBaseID string            `json:"knowledge_base_id"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

// SearchChunks handles POST /v1/search.
func (s *Server) SearchChunks(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	vector := req.Vector
	if len(vector) == 0 && req.Query != "" && s.embed != nil {
		v, err := s.embed.Embed(r.Context(), req.Query)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		vector = v
	}

	p, err := params.New(req.KnowledgeBases, req.TopK, req.Filters, vector, req.DistanceThreshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	hits, err := s.search.Search(r.Context(), &p, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(hits))
	for i := range hits {
		items[i] = hitToItem(&hits[i])
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Items: items,
		Total: len(items),
	})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func hitToItem(h *searchuc.Hit) searchResultItem {
	res := &h.Result
	return searchResultItem{
		ChunkID:         res.ChunkID(),
		Content:         res.Content(),
		DocumentID:      res.DocumentID(),
		DocumentName:    h.DocumentName,
		ChunkIndex:      res.ChunkIndex(),
		Tags:            res.Tags(),
		Distance:        res.Distance(),
		KnowledgeBaseID: res.KnowledgeBaseID(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, map[string]any{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMissingKnowledgeBases,
		domain.ErrMissingTagFilters,
		domain.ErrMissingQueryVector,
		domain.ErrMissingHybridFilters,
		domain.ErrMissingHybridVector,
		domain.ErrInvalidThreshold,
		domain.ErrNoSearchMode,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
