package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/quillan-ai/docdex/internal/chunker"
	"github.com/quillan-ai/docdex/internal/config"
	"github.com/quillan-ai/docdex/internal/extract"
	logpkg "github.com/quillan-ai/docdex/internal/logger"
	"github.com/quillan-ai/docdex/internal/metrics"
	"github.com/quillan-ai/docdex/internal/repository/evalstore"
	"github.com/quillan-ai/docdex/internal/repository/kbindex"
	chiTransport "github.com/quillan-ai/docdex/internal/transport/chi"
	openaiTransport "github.com/quillan-ai/docdex/internal/transport/openai"
	askuc "github.com/quillan-ai/docdex/internal/usecase/ask"
	eligibilityuc "github.com/quillan-ai/docdex/internal/usecase/eligibility"
	evaluc "github.com/quillan-ai/docdex/internal/usecase/eval"
	indexuc "github.com/quillan-ai/docdex/internal/usecase/index"
	reminderuc "github.com/quillan-ai/docdex/internal/usecase/reminder"
	"github.com/quillan-ai/docdex/internal/version"
	redisStore "github.com/quillan-ai/docdex/internal/vectorstore/redis"
	"github.com/quillan-ai/docdex/internal/watcher"
)

func main() {
	// .env is optional; real deployments set environment variables directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("documents_dir", cfg.Storage.DocumentsDir),
	)

	// Register domain metrics explicitly (no init())
	metrics.RegisterKnowledgeMetrics()

	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	completer := openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:      cfg.Completion.APIKey,
		BaseURL:     cfg.Completion.BaseURL,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Logger:      logger,
	})

	store, err := redisStore.NewStore(redisStore.Config{
		Addrs:      cfg.Database.Addrs,
		Password:   cfg.Database.Password,
		KeyPrefix:  cfg.Database.KeyPrefix,
		Dimensions: cfg.Embedding.Dimensions,
	}, embedder)
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	if err := os.MkdirAll(cfg.Storage.DocumentsDir, 0o755); err != nil {
		logger.Fatal("Failed to create documents directory", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	// Repositories
	indexRepo := kbindex.New(cfg.Storage.DataDir, logger)
	evalRepo := evalstore.New(cfg.Storage.DataDir, logger).
		WithCleanupPolicy(cfg.Cleanup.MaxAttempts, time.Duration(cfg.Cleanup.DelayMs)*time.Millisecond)

	// Use case services
	extractor := extract.NewLocal()
	splitter := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)

	indexSvc := indexuc.New(indexRepo, store, extractor, splitter, cfg.Storage.DocumentsDir, logger).
		WithExtensions(cfg.Indexing.Extensions).
		WithPatterns(cfg.Indexing.Patterns)
	askSvc := askuc.New(indexSvc, store, completer, logger).
		WithTopK(cfg.Retrieval.TopK)
	eligibilitySvc := eligibilityuc.New(askSvc, logger).
		WithCapacity(cfg.Eligibility.CacheCapacity)
	evalSvc := evaluc.New(askSvc, evalRepo, logger)

	// Background workers
	runCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	autoInterval := time.Duration(cfg.Indexing.AutoIntervalSec) * time.Second
	docWatcher := watcher.New(cfg.Storage.DocumentsDir, indexSvc, logger,
		watcher.WithInterval(autoInterval))
	go func() {
		if err := docWatcher.Run(runCtx); err != nil && runCtx.Err() == nil {
			logger.Error("Document watcher stopped", zap.Error(err))
		}
	}()

	reminderSvc := reminderuc.New(extractor, func(path string, due time.Time, days int) {
		logger.Warn("Policy payment due soon",
			zap.String("path", path),
			zap.Time("due_date", due),
			zap.Int("days_remaining", days),
		)
	}, logger)
	registerPolicies(runCtx, reminderSvc, indexSvc, cfg.Storage.DocumentsDir, logger)
	go reminderSvc.Run(runCtx)

	// HTTP server
	server := chiTransport.NewServer(indexSvc, askSvc, eligibilitySvc, evalSvc, store, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
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
	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// registerPolicies scans the discoverable documents for due dates. Documents
// without a recognizable due date are simply skipped.
func registerPolicies(ctx context.Context, reminders *reminderuc.Service, index *indexuc.Service, docsDir string, logger *zap.Logger) {
	files, err := index.Files()
	if err != nil {
		logger.Warn("Policy scan failed", zap.Error(err))
		return
	}
	registered := 0
	for _, name := range files {
		if _, err := reminders.Register(ctx, filepath.Join(docsDir, name)); err == nil {
			registered++
		}
	}
	if registered > 0 {
		logger.Info("Policies registered for due-date reminders", zap.Int("count", registered))
	}
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

			// Canonical log line — one line per request
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
