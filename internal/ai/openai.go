package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdf-rag-platform/internal/logger"
)

// OpenAIClient talks to any OpenAI-compatible /embeddings and
// /chat/completions endpoint.
type OpenAIClient struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	breaker *gobreaker.CircuitBreaker
}

func NewOpenAIClient(apiKey, baseURL string, timeout time.Duration, log *slog.Logger) *OpenAIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		breaker: newBreaker("OpenAIAPI", logger.Or(log), nil),
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// EmbedBatch returns one vector per text, reordered by the response index.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	ctx, span := otel.Tracer("openai-client").Start(ctx, "openai.embeddings")
	defer span.End()
	span.SetAttributes(
		attribute.String("openai.model", model),
		attribute.Int("openai.batch_size", len(texts)),
	)

	if len(texts) == 0 {
		return nil, nil
	}

	result, err := c.execute(func() (interface{}, error) {
		var resp embeddingResponse
		if err := c.post(ctx, "/embeddings", embeddingRequest{Model: model, Input: texts}, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("API error: %s (%s)", resp.Error.Message, resp.Error.Type)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("openai returned %d embeddings for %d texts", len(resp.Data), len(texts))
		}

		vectors := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(texts) || len(d.Embedding) == 0 {
				return nil, fmt.Errorf("openai embedding %d: %w", d.Index, ErrEmptyResponse)
			}
			vectors[d.Index] = d.Embedding
		}
		for i, v := range vectors {
			if v == nil {
				return nil, fmt.Errorf("openai embedding %d missing: %w", i, ErrEmptyResponse)
			}
		}
		return vectors, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("openai.error", true))
		return nil, err
	}
	return result.([][]float32), nil
}

// Generate sends the prompt as a single user message.
func (c *OpenAIClient) Generate(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (*GenerateResult, error) {
	ctx, span := otel.Tracer("openai-client").Start(ctx, "openai.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("openai.model", model))

	result, err := c.execute(func() (interface{}, error) {
		req := chatRequest{
			Model:       model,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			Temperature: temperature,
			MaxTokens:   maxTokens,
		}
		var resp chatResponse
		if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("API error: %s (%s)", resp.Error.Message, resp.Error.Type)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return nil, ErrEmptyResponse
		}

		out := &GenerateResult{Text: resp.Choices[0].Message.Content}
		if resp.Usage != nil {
			out.PromptTokens = resp.Usage.PromptTokens
			out.CompletionTokens = resp.Usage.CompletionTokens
		} else {
			out.PromptTokens = EstimateTokens(prompt)
			out.CompletionTokens = EstimateTokens(out.Text)
		}
		return out, nil
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("openai.error", true))
		return nil, err
	}
	return result.(*GenerateResult), nil
}

func (c *OpenAIClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return result, err
}

func (c *OpenAIClient) post(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("openai status %d", resp.StatusCode)
	}
	return nil
}
