package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/internal/logger"
)

const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// Clients are the provider SDK handles available to Select. Either may be nil.
type Clients struct {
	Gemini *ai.GeminiClient
	OpenAI *ai.OpenAIClient
}

// NewClients constructs clients for every provider with credentials.
func NewClients(ctx context.Context, cfg *config.Config, log *slog.Logger) (Clients, error) {
	var c Clients
	if cfg.HasGemini() {
		gc, err := ai.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiRPM, log)
		if err != nil {
			return c, fmt.Errorf("gemini: %w", err)
		}
		c.Gemini = gc
	}
	if cfg.HasOpenAI() {
		c.OpenAI = ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ExternalTimeout, log)
	}
	return c, nil
}

func (c Clients) Close() error {
	if c.Gemini != nil {
		return c.Gemini.Close()
	}
	return nil
}

// Backend is the embedding and generation strategy chosen at startup. It is
// not modified after Select returns.
type Backend struct {
	Name            string
	Embedder        Embedder
	Generator       ai.Generator // nil for the local backend
	EmbeddingModel  string
	GenerationModel string
}

// Local reports whether the backend has no external provider.
func (b *Backend) Local() bool { return b.Name == BackendLocal }

// Select picks the first available backend in priority order Gemini, OpenAI,
// local. The local backend is always constructible.
func Select(cfg *config.Config, clients Clients, log *slog.Logger) *Backend {
	log = logger.Or(log)

	var b *Backend
	switch {
	case cfg.HasGemini() && clients.Gemini != nil:
		p := GeminiProvider(clients.Gemini, cfg.GoogleEmbeddingsModel)
		b = &Backend{
			Name:            BackendGemini,
			Embedder:        NewExternal(p, cfg.ExternalTimeout, log),
			Generator:       ai.NewGeminiGenerator(clients.Gemini, cfg.GeminiModel),
			EmbeddingModel:  p.Name(),
			GenerationModel: cfg.GeminiModel,
		}
	case cfg.HasOpenAI() && clients.OpenAI != nil:
		p := OpenAIProvider(clients.OpenAI, cfg.OpenAIEmbeddingsModel)
		b = &Backend{
			Name:            BackendOpenAI,
			Embedder:        NewExternal(p, cfg.ExternalTimeout, log),
			Generator:       ai.NewOpenAIGenerator(clients.OpenAI, cfg.OpenAIChatModel),
			EmbeddingModel:  p.Name(),
			GenerationModel: cfg.OpenAIChatModel,
		}
	default:
		b = &Backend{
			Name:            BackendLocal,
			Embedder:        NewLexical(),
			EmbeddingModel:  MethodTFIDF,
			GenerationModel: ai.ModelExtractive,
		}
	}

	log.Info("retrieval backend selected",
		"backend", b.Name,
		"embedding_model", b.EmbeddingModel,
		"generation_model", b.GenerationModel,
	)
	return b
}
