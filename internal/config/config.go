package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	GinMode     string
	CORSOrigins []string

	// Storage
	MongoURI       string
	DBName         string
	RedisURL       string
	RedisPassword  string
	RedisDB        int
	ChunkCacheTTL  time.Duration
	FileStorageDir string
	MaxFileSize    int64

	// External providers. All optional: the local fallbacks are always available.
	GeminiAPIKey          string
	GeminiModel           string
	GoogleEmbeddingsModel string
	GeminiRPM             int
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIEmbeddingsModel string
	OpenAIChatModel       string
	ExternalTimeout       time.Duration

	// Retrieval
	ChunkSize           int
	ChunkOverlap        int
	SimilarityThreshold float64
	TopK                int
	MaxOutputTokens     int
	Temperature         float64
	EmbeddingBatchSize  int
	EmbeddingBatchDelay time.Duration

	// Background processing
	WorkerConcurrency int
	InlineProcessing  bool
	SweepInterval     time.Duration
	StaleAfter        time.Duration

	// Telemetry
	OTelEndpoint string
	ServiceName  string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"), ","),

		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_rag"),
		DBName:         getEnv("DB_NAME", "pdf_rag"),
		RedisURL:       getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		ChunkCacheTTL:  getEnvDuration("CHUNK_CACHE_TTL", time.Hour),
		FileStorageDir: getEnv("FILE_STORAGE_DIR", "./storage"),
		MaxFileSize:    getEnvInt64("MAX_FILE_SIZE", 52428800), // 50MB

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GeminiRPM:             getEnvInt("GEMINI_RPM", 60),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		OpenAIChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		ExternalTimeout:       getEnvDuration("EXTERNAL_TIMEOUT", 30*time.Second),

		ChunkSize:           getEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:        getEnvInt("CHUNK_OVERLAP", 200),
		SimilarityThreshold: getEnvFloat64("SIMILARITY_THRESHOLD", 0.7),
		TopK:                getEnvInt("TOP_K", 5),
		MaxOutputTokens:     getEnvInt("MAX_OUTPUT_TOKENS", 4000),
		Temperature:         getEnvFloat64("TEMPERATURE", 0.1),
		EmbeddingBatchSize:  getEnvInt("EMBEDDING_BATCH_SIZE", 10),
		EmbeddingBatchDelay: getEnvDuration("EMBEDDING_BATCH_DELAY", 100*time.Millisecond),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		InlineProcessing:  getEnvBool("INLINE_PROCESSING", false),
		SweepInterval:     getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		StaleAfter:        getEnvDuration("STALE_AFTER", 30*time.Minute),

		OTelEndpoint: getEnv("OTEL_ENDPOINT", ""),
		ServiceName:  getEnv("SERVICE_NAME", "pdf-rag-platform"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the retrieval core cannot work with.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1.01 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in [0, 1.01], got %v", c.SimilarityThreshold)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive, got %d", c.EmbeddingBatchSize)
	}
	if c.MaxOutputTokens <= 0 {
		return fmt.Errorf("MAX_OUTPUT_TOKENS must be positive, got %d", c.MaxOutputTokens)
	}
	return nil
}

// HasGemini reports whether Gemini credentials are configured.
func (c *Config) HasGemini() bool { return c.GeminiAPIKey != "" }

// HasOpenAI reports whether OpenAI credentials are configured.
func (c *Config) HasOpenAI() bool { return c.OpenAIAPIKey != "" }
