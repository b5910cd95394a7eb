package ai

import "context"

// ModelExtractive is reported as the answer model when no generator
// produced the answer.
const ModelExtractive = "extractive"

// GenerateOptions bounds a single completion.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator produces text from a prompt. Model names the backing model for
// provenance.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResult, error)
	Model() string
}

type completer interface {
	Generate(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (*GenerateResult, error)
}

type modelGenerator struct {
	client completer
	model  string
}

// NewGeminiGenerator binds a Gemini model to the Generator interface.
func NewGeminiGenerator(client *GeminiClient, model string) Generator {
	return &modelGenerator{client: client, model: model}
}

// NewOpenAIGenerator binds an OpenAI-compatible chat model to the Generator
// interface.
func NewOpenAIGenerator(client *OpenAIClient, model string) Generator {
	return &modelGenerator{client: client, model: model}
}

func (g *modelGenerator) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*GenerateResult, error) {
	return g.client.Generate(ctx, g.model, prompt, opts.Temperature, opts.MaxTokens)
}

func (g *modelGenerator) Model() string { return g.model }
