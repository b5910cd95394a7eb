package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/internal/embedding"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/storage"
)

// reembed recomputes chunk vectors with the currently configured backend,
// for use after switching embedding providers.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: reembed <document-id>... | reembed --all")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg)
	log := logger.Logger.With("component", "reembed")

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Error("failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())
	store := storage.NewStore(mongoClient.Database(cfg.DBName))

	ctx := context.Background()
	clients, err := embedding.NewClients(ctx, cfg, log)
	if err != nil {
		log.Error("failed to create provider clients", "error", err)
		os.Exit(1)
	}
	defer clients.Close()
	backend := embedding.Select(cfg, clients, log)

	processor := pipeline.NewProcessor(store, nil, backend, nil, pipeline.Options{
		Batch: embedding.BatchOptions{Size: cfg.EmbeddingBatchSize, Delay: cfg.EmbeddingBatchDelay, Log: log},
	}, log)
	if rdb, err := config.NewRedisClient(cfg); err == nil {
		defer rdb.Close()
		processor.Cache = storage.NewChunkCache(rdb, cfg.ChunkCacheTTL, log)
	} else {
		log.Warn("redis unavailable, cached chunk sets will expire on their own", "error", err)
	}

	ids, err := targets(ctx, store, os.Args[1:])
	if err != nil {
		log.Error("failed to resolve documents", "error", err)
		os.Exit(1)
	}

	failed := 0
	for _, id := range ids {
		if err := reembed(ctx, store, processor, id); err != nil {
			log.Error("re-embedding failed", "document_id", id.Hex(), "error", err)
			failed++
		}
	}
	fmt.Printf("Re-embedded %d of %d documents with %s\n", len(ids)-failed, len(ids), backend.EmbeddingModel)
	if failed > 0 {
		os.Exit(1)
	}
}

func targets(ctx context.Context, store *storage.Store, args []string) ([]primitive.ObjectID, error) {
	if len(args) == 1 && args[0] == "--all" {
		return store.Documents.ListCompletedIDs(ctx)
	}
	ids := make([]primitive.ObjectID, 0, len(args))
	for _, a := range args {
		id, err := primitive.ObjectIDFromHex(a)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func reembed(ctx context.Context, store *storage.Store, processor *pipeline.Processor, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	chunks, err := store.Chunks.ListByDocument(ctx, id)
	if err != nil {
		return err
	}
	res, err := processor.Reembed(ctx, id, chunks)
	if err != nil {
		return err
	}
	return store.Documents.SetEmbeddingModel(ctx, id, res.EmbeddingModel, res.Embedded)
}
