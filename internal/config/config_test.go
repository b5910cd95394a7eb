package config

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "")
	t.Setenv("TOP_K", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 4000, cfg.MaxOutputTokens)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, 10, cfg.EmbeddingBatchSize)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("EMBEDDING_BATCH_DELAY", "250ms")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 250*time.Millisecond, cfg.EmbeddingBatchDelay)
	assert.True(t, cfg.HasGemini())
	assert.False(t, cfg.HasOpenAI())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{ChunkSize: 1000, ChunkOverlap: 200, SimilarityThreshold: 0.7, TopK: 5, EmbeddingBatchSize: 10, MaxOutputTokens: 4000}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.ChunkOverlap = 1000
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.ChunkSize = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SimilarityThreshold = 1.01
	assert.NoError(t, cfg.Validate())
	cfg.SimilarityThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.TopK = 0
	assert.Error(t, cfg.Validate())
}

func TestRedisOptions(t *testing.T) {
	opt, err := RedisOptions(&Config{RedisURL: "localhost:6380", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)

	opt, err = RedisOptions(&Config{RedisURL: "redis://:secret@cache:6379/1"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 1, opt.DB)
}

func TestAsynqRedisOpt(t *testing.T) {
	opt, err := RedisOptions(&Config{RedisURL: "redis://user:pw@queue:6379/3"})
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	got := AsynqRedisOpt(rdb)
	assert.Equal(t, "queue:6379", got.Addr)
	assert.Equal(t, "user", got.Username)
	assert.Equal(t, "pw", got.Password)
	assert.Equal(t, 3, got.DB)
}
