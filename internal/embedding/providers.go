package embedding

import (
	"context"

	"pdf-rag-platform/internal/ai"
)

type batchEmbedder interface {
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
}

type modelProvider struct {
	name   string
	model  string
	client batchEmbedder
}

func (p *modelProvider) Name() string { return p.name }

func (p *modelProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.client.EmbedBatch(ctx, p.model, texts)
}

// GeminiProvider embeds with a Google embedding model.
func GeminiProvider(client *ai.GeminiClient, model string) Provider {
	return &modelProvider{name: "gemini:" + model, model: model, client: client}
}

// OpenAIProvider embeds with an OpenAI-compatible embedding model.
func OpenAIProvider(client *ai.OpenAIClient, model string) Provider {
	return &modelProvider{name: "openai:" + model, model: model, client: client}
}
