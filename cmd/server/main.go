package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/answer"
	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/internal/embedding"
	"pdf-rag-platform/internal/extract"
	"pdf-rag-platform/internal/insights"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/queue"
	"pdf-rag-platform/internal/similarity"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/internal/telemetry"
	"pdf-rag-platform/middleware"
	"pdf-rag-platform/routes"
	"pdf-rag-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fatal("failed to load config", err)
	}
	logger.InitLogger(cfg)
	log := logger.Logger

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint, log)
	if err != nil {
		fatal("failed to init tracer", err)
	}
	metrics, err := telemetry.InitMetrics(cfg.ServiceName)
	if err != nil {
		fatal("failed to init metrics", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		fatal("failed to connect to MongoDB", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)
	store := storage.NewStore(db)

	checks := map[string]routes.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
	}

	var (
		cache    *storage.ChunkCache
		enqueuer *queue.Enqueuer
	)
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Warn("redis unavailable, chunk cache disabled and uploads processed inline", "error", err)
	} else {
		defer rdb.Close()
		cache = storage.NewChunkCache(rdb, cfg.ChunkCacheTTL, log)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		if !cfg.InlineProcessing {
			enqueuer = queue.NewEnqueuer(config.AsynqRedisOpt(rdb))
			defer enqueuer.Close()
		}
	}

	clients, err := embedding.NewClients(ctx, cfg, log)
	if err != nil {
		fatal("failed to create provider clients", err)
	}
	defer clients.Close()
	if clients.Gemini != nil {
		clients.Gemini.OnStateChange = func(from, to string) {
			metrics.RecordCircuitBreakerState("gemini", to)
		}
	}
	backend := embedding.Select(cfg, clients, log)

	genOpts := ai.GenerateOptions{Temperature: cfg.Temperature, MaxTokens: cfg.MaxOutputTokens}
	processor := pipeline.NewProcessor(store, extract.New(cfg.MaxFileSize, log), backend,
		insights.NewAnalyzer(backend.Generator, genOpts, cfg.ExternalTimeout, log),
		pipeline.Options{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
			Batch: embedding.BatchOptions{
				Size:  cfg.EmbeddingBatchSize,
				Delay: cfg.EmbeddingBatchDelay,
				Log:   log,
			},
		}, log)
	processor.Metrics = metrics
	if cache != nil {
		processor.Cache = cache
	}

	files, err := services.NewFileStore(cfg.FileStorageDir, cfg.MaxFileSize)
	if err != nil {
		fatal("failed to prepare file storage", err)
	}
	var queueIface services.Enqueuer
	if enqueuer != nil {
		queueIface = enqueuer
	}
	docService := services.NewDocumentService(store.Documents, files, queueIface, processor, log)

	qa := services.NewQAService(store.Documents, store.Chunks, store.Chats,
		similarity.NewEngine(backend.Embedder, log),
		answer.NewComposer(backend.Generator, answer.Options{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxOutputTokens,
			Timeout:     cfg.ExternalTimeout,
		}, log),
		services.QAOptions{TopK: cfg.TopK, Threshold: cfg.SimilarityThreshold}, log)
	qa.Metrics = metrics
	if cache != nil {
		qa.Cache = cache
	}

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(cfg.ServiceName),
		middleware.EnrichTrace(),
		middleware.MetricsMiddleware(metrics),
		middleware.RequestLogger(log),
		middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins),
	)
	routes.Setup(router, &routes.Handlers{
		Documents:     docService,
		QA:            qa,
		Checks:        checks,
		MaxUploadSize: cfg.MaxFileSize,
		Log:           log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "backend", backend.Name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal("failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", "error", err)
	}
	log.Info("server exited")
}

func fatal(msg string, err error) {
	logger.Or(nil).Error(msg, "error", err)
	if logger.Logger == nil {
		os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	}
	os.Exit(1)
}
