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

	"github.com/totsar/lostfound/internal/config"
	dbRedis "github.com/totsar/lostfound/internal/db/redis"
	logpkg "github.com/totsar/lostfound/internal/logger"
	"github.com/totsar/lostfound/internal/metrics"
	itemrepo "github.com/totsar/lostfound/internal/repository/item"
	chiTransport "github.com/totsar/lostfound/internal/transport/chi"
	openaiTransport "github.com/totsar/lostfound/internal/transport/openai"
	assistantuc "github.com/totsar/lostfound/internal/usecase/assistant"
	cataloguc "github.com/totsar/lostfound/internal/usecase/catalog"
	healthuc "github.com/totsar/lostfound/internal/usecase/health"
	"github.com/totsar/lostfound/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting lostfound API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("assistant_configured", cfg.AssistantConfigured()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register assistant metrics explicitly (no init())
	metrics.RegisterAssistantMetrics()

	// Provider adapters exist only when an API key is configured. A nil
	// embedder/reasoner keeps the assistant service in its not-configured
	// state: the catalogue works, item matching returns 503.
	var (
		embedder *openaiTransport.Embedder
		reasoner *openaiTransport.Reasoner
	)
	if cfg.AssistantConfigured() {
		providerCfg := &openaiTransport.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			EmbeddingModel: cfg.OpenAI.EmbeddingModel,
			ChatModel:      cfg.OpenAI.ChatModel,
			Temperature:    cfg.Assistant.Temperature,
			Logger:         logger,
		}
		embedder = openaiTransport.NewEmbedder(providerCfg)
		reasoner = openaiTransport.NewReasoner(providerCfg)
		logger.Info("Assistant provider created",
			zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
			zap.String("chat_model", cfg.OpenAI.ChatModel),
		)
	} else {
		logger.Warn("No AI provider key configured, assistant disabled")
	}

	itemRepo := itemrepo.New(store, cfg.Storage.KeyPrefix)

	catalogSvc := cataloguc.New(itemRepo)

	// Typed nil pointers must not be wrapped into non-nil interfaces.
	var (
		batchEmbedder assistantuc.BatchEmbedder
		itemReasoner  assistantuc.Reasoner
		healthChecker healthuc.ProviderChecker
	)
	if embedder != nil {
		batchEmbedder = embedder
		healthChecker = embedder
	}
	if reasoner != nil {
		itemReasoner = reasoner
	}

	assistantSvc := assistantuc.New(itemRepo, batchEmbedder, itemReasoner, logger).
		WithEmbedCap(cfg.Assistant.MaxItemsToEmbedPerRequest)

	healthSvc := healthuc.New(store, healthChecker)

	server := chiTransport.NewServer(
		catalogSvc, assistantSvc, healthSvc,
		cfg.Assistant.MaxQueryLength, cfg.Assistant.StreamChunkSize,
		logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer converts panics into JSON 500 responses.
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

			// Set X-Request-ID in response header
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
