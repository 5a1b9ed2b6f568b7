package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cs-instructor-backend/internal/agent"
	"cs-instructor-backend/internal/ai"
	"cs-instructor-backend/internal/config"
	"cs-instructor-backend/internal/logger"
	"cs-instructor-backend/internal/memory"
	"cs-instructor-backend/internal/telemetry"
	"cs-instructor-backend/internal/tools"
	"cs-instructor-backend/middleware"
	"cs-instructor-backend/routes"
	"cs-instructor-backend/services"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitLogger(cfg)

	var tracerShutdown func()
	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("cs-instructor-backend", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err.Error())
		} else {
			tracerShutdown = shutdown
		}
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("metrics disabled", "error", err.Error())
		metrics = nil
	}

	ctx := context.Background()

	sessionStore, err := memory.NewFileSessionStore(cfg.SessionsDir)
	if err != nil {
		logger.Error("failed to open session store", "error", err.Error())
		os.Exit(1)
	}

	var embeddingRecorder ai.EmbeddingRecorder
	if metrics != nil {
		embeddingRecorder = metrics
	}
	embedder := ai.SelectEmbedder(ctx, cfg, embeddingRecorder)
	logger.Info("embedder selected", "provider", embedder.Name())

	semantic, err := memory.NewSemanticMemory(ctx, embedder, memory.SemanticOptions{
		IndexDir:       cfg.IndexDir,
		MaxChunkSize:   cfg.MaxChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		MinChunkSize:   cfg.MinChunkSize,
		ScoreThreshold: cfg.ScoreThreshold,
	})
	if err != nil {
		logger.Error("failed to open semantic memory", "error", err.Error())
		os.Exit(1)
	}

	provider := ai.SelectLLMProvider(ctx, cfg)
	logger.Info("llm provider selected", "provider", provider.Name())

	toolset := []tools.Tool{
		tools.NewSandbox(cfg.SandboxTimeout),
		tools.NewCodeExplainer(),
		tools.NewWebSearch(cfg.TavilyAPIKey),
		tools.NewKnowledgeBase(semantic, cfg.MaxContextChunks),
	}

	registry := agent.NewRegistry(provider, toolset, sessionStore, cfg.MemoryWindow)

	processor, err := services.NewFileProcessor(cfg)
	if err != nil {
		logger.Error("failed to init file processor", "error", err.Error())
		os.Exit(1)
	}

	compaction := services.NewCompactionScheduler(semantic, cfg.CompactionInterval)
	if err := compaction.Start(); err != nil {
		logger.Warn("compaction scheduler disabled", "error", err.Error())
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.RateLimitMiddleware(cfg))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware())
		router.Use(middleware.EnrichTrace())
	}
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}

	handlers := routes.NewHandlers(cfg, registry, semantic, processor, sessionStore, metrics)
	handlers.Register(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	compaction.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err.Error())
	}

	if tracerShutdown != nil {
		tracerShutdown()
	}
	logger.Info("server stopped")
}
