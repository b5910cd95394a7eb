package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/internal/embedding"
	"pdf-rag-platform/internal/extract"
	"pdf-rag-platform/internal/insights"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/queue"
	"pdf-rag-platform/internal/scheduler"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/internal/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fatal("failed to load config", err)
	}
	logger.InitLogger(cfg)
	log := logger.Logger.With("component", "worker")

	ctx := context.Background()
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.ServiceName+"-worker", cfg.OTelEndpoint, log)
	if err != nil {
		fatal("failed to init tracer", err)
	}
	defer shutdownTracer(context.Background())
	metrics, err := telemetry.InitMetrics(cfg.ServiceName)
	if err != nil {
		fatal("failed to init metrics", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		fatal("failed to connect to MongoDB", err)
	}
	defer mongoClient.Disconnect(context.Background())
	store := storage.NewStore(mongoClient.Database(cfg.DBName))

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		fatal("failed to connect to Redis", err)
	}
	defer rdb.Close()
	cache := storage.NewChunkCache(rdb, cfg.ChunkCacheTTL, log)

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
	processor.Cache = cache
	processor.Metrics = metrics

	sched := scheduler.New(log)
	if err := sched.Every("stale-documents", cfg.SweepInterval,
		scheduler.StaleSweep(store.Documents, cache, cfg.StaleAfter, log)); err != nil {
		fatal("failed to schedule stale sweep", err)
	}
	sched.Start()
	defer sched.Stop()

	server := asynq.NewServer(
		config.AsynqRedisOpt(rdb),
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				queue.QueueCritical: 6,
				queue.QueueDefault:  3,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
			ShutdownTimeout: 30 * time.Second,
		},
	)

	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(store.Documents, processor, log).Register(mux)

	log.Info("starting worker",
		"concurrency", cfg.WorkerConcurrency,
		"backend", backend.Name,
		"embedding_model", backend.EmbeddingModel,
		"sweep_interval", cfg.SweepInterval.String(),
	)
	if err := server.Start(mux); err != nil {
		fatal("failed to start worker", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down worker")
	server.Shutdown()
}

func fatal(msg string, err error) {
	logger.Or(nil).Error(msg, "error", err)
	if logger.Logger == nil {
		os.Stderr.WriteString(msg + ": " + err.Error() + "\n")
	}
	os.Exit(1)
}
