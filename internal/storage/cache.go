package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

const chunkKeyPrefix = "chunks:"

// ChunkCache keeps a document's full chunk set in Redis so repeated
// questions skip the Mongo read.
type ChunkCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewChunkCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *ChunkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ChunkCache{rdb: rdb, ttl: ttl, log: logger.Or(log)}
}

func chunkKey(documentID string) string {
	return chunkKeyPrefix + documentID
}

// Get returns the cached chunks and whether the key was present. Redis
// errors are logged and reported as a miss.
func (c *ChunkCache) Get(ctx context.Context, documentID string) ([]models.Chunk, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, chunkKey(documentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.log.Warn("chunk cache read failed", "document_id", documentID, "error", err)
		return nil, false
	}

	var chunks []models.Chunk
	if err := json.Unmarshal(raw, &chunks); err != nil {
		c.log.Warn("chunk cache entry undecodable", "document_id", documentID, "error", err)
		return nil, false
	}
	return chunks, true
}

func (c *ChunkCache) Set(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	raw, err := encodeChunks(chunks)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, chunkKey(documentID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache chunks: %w", err)
	}
	return nil
}

func (c *ChunkCache) Invalidate(ctx context.Context, documentID string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, chunkKey(documentID)).Err(); err != nil {
		return fmt.Errorf("invalidate chunks: %w", err)
	}
	return nil
}

func encodeChunks(chunks []models.Chunk) ([]byte, error) {
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	raw, err := json.Marshal(chunks)
	if err != nil {
		return nil, fmt.Errorf("encode chunks: %w", err)
	}
	return raw, nil
}
