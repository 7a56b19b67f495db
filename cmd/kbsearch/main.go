package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/arenadeveloper02/p2-sim-sub006/internal/config"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/db"
	dbRedis "github.com/arenadeveloper02/p2-sim-sub006/internal/db/redis"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/domain"
	logpkg "github.com/arenadeveloper02/p2-sim-sub006/internal/logger"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/metrics"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/rerank"
	documentrepo "github.com/arenadeveloper02/p2-sim-sub006/internal/repository/document"
	searchrepo "github.com/arenadeveloper02/p2-sim-sub006/internal/repository/search"
	chiTransport "github.com/arenadeveloper02/p2-sim-sub006/internal/transport/chi"
	openaiEmb "github.com/arenadeveloper02/p2-sim-sub006/internal/transport/openai"
	healthuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/health"
	searchuc "github.com/arenadeveloper02/p2-sim-sub006/internal/usecase/search"
	"github.com/arenadeveloper02/p2-sim-sub006/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting kbsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	// Register search metrics explicitly (no init())
	metrics.Register()

	if err := bootstrapIndex(ctx, store, cfg.Index); err != nil {
		logger.Fatal("Failed to bootstrap chunk index", zap.Error(err))
	}

	searchRepo := searchrepo.New(store)
	docRepo := documentrepo.New(store)

	searchSvc := searchuc.New(searchRepo, docRepo).
		WithFilterCacheSize(cfg.Search.FilterCacheSize)

	reranker := rerank.New(rerank.Config{
		Enabled:  cfg.Rerank.IsEnabled(),
		Endpoint: cfg.Rerank.Endpoint,
		APIKey:   cfg.Rerank.APIKey,
		Model:    cfg.Rerank.Model,
		Timeout:  time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
	})
	searchSvc = searchSvc.WithReranker(reranker)

	var embedder *openaiEmb.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
		logger.Info("Query embedder created",
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	// Pass nil interface (not typed nil pointer!) if embedding is not configured.
	var embeddingChecker healthuc.EmbeddingChecker
	var serverEmbedder chiTransport.Embedder
	if embedder != nil {
		embeddingChecker = embedder
		serverEmbedder = embedder
	}

	healthSvc := healthuc.New(store, embeddingChecker)

	server := chiTransport.NewServer(searchSvc, healthSvc, serverEmbedder, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// bootstrapIndex creates the chunk index when it does not exist yet.
func bootstrapIndex(ctx context.Context, store db.Store, cfg config.IndexConfig) error {
	exists, err := store.IndexExists(ctx, domain.ChunkIndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def, err := db.ChunkIndex(domain.ChunkIndexName, domain.ChunkKeyPrefix, cfg.VectorDim, db.HNSWConfig{
		M:           cfg.HNSWM,
		EFConstruct: cfg.HNSWEFConstruct,
	})
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
