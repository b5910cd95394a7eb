package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"pdf-rag-platform/internal/logger"
)

var (
	// ErrCircuitOpen is returned while the breaker rejects calls. Callers
	// degrade to their local path.
	ErrCircuitOpen   = errors.New("ai: circuit breaker open")
	ErrEmptyResponse = errors.New("ai: empty response")
)

// GenerateResult is the text of one completion plus token accounting.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// GeminiClient wraps the Gemini SDK with a circuit breaker and a request
// rate limiter shared by embedding and generation calls.
type GeminiClient struct {
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	client      *genai.Client
	log         *slog.Logger

	// OnStateChange, when set, observes breaker transitions (metrics hook).
	OnStateChange func(from, to string)
}

func NewGeminiClient(ctx context.Context, apiKey string, rpm int, log *slog.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("ai: missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	gc := &GeminiClient{
		client:      client,
		log:         logger.Or(log),
		rateLimiter: newLimiter(rpm),
	}
	gc.breaker = newBreaker("GeminiAPI", gc.log, func(from, to gobreaker.State) {
		if gc.OnStateChange != nil {
			gc.OnStateChange(from.String(), to.String())
		}
	})
	return gc, nil
}

func newBreaker(name string, log *slog.Logger, observe func(from, to gobreaker.State)) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if observe != nil {
				observe(from, to)
			}
		},
	})
}

// RPM limit with some buffer.
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := rpm / 10
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)*0.9/60.0), burst)
}

// EmbedBatch embeds texts in one BatchEmbedContents call. The result has
// exactly one vector per input text, in input order.
func (gc *GeminiClient) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.embed_batch")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", model),
		attribute.Int("gemini.batch_size", len(texts)),
	)

	if len(texts) == 0 {
		return nil, nil
	}

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		em := gc.client.EmbeddingModel(model)
		batch := em.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(texts) {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
		}

		vectors := make([][]float32, len(resp.Embeddings))
		for i, e := range resp.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, fmt.Errorf("gemini embedding %d: %w", i, ErrEmptyResponse)
			}
			vectors[i] = e.Values
		}
		return vectors, nil
	})
	if err != nil {
		return nil, gc.recordError(span, err)
	}

	span.SetAttributes(attribute.Bool("gemini.success", true))
	return result.([][]float32), nil
}

// Generate runs a single-turn completion.
func (gc *GeminiClient) Generate(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (*GenerateResult, error) {
	tracer := otel.Tracer("gemini-client")
	ctx, span := tracer.Start(ctx, "gemini.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("gemini.model", model),
		attribute.Int("gemini.estimated_tokens", EstimateTokens(prompt)),
	)

	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("gemini.rate_limited", true))
		return nil, err
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		gm := gc.client.GenerativeModel(model)
		gm.SetTemperature(float32(temperature))
		gm.SetMaxOutputTokens(int32(maxTokens))

		resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}

		text := responseText(resp)
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyResponse
		}

		out := &GenerateResult{Text: text}
		if resp.UsageMetadata != nil {
			out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
			out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		} else {
			out.PromptTokens = EstimateTokens(prompt)
			out.CompletionTokens = EstimateTokens(text)
		}
		return out, nil
	})
	if err != nil {
		return nil, gc.recordError(span, err)
	}

	res := result.(*GenerateResult)
	span.SetAttributes(
		attribute.Bool("gemini.success", true),
		attribute.Int("gemini.prompt_tokens", res.PromptTokens),
		attribute.Int("gemini.completion_tokens", res.CompletionTokens),
	)
	return res, nil
}

func (gc *GeminiClient) recordError(span trace.Span, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		span.SetAttributes(attribute.Bool("gemini.circuit_breaker_open", true))
		return ErrCircuitOpen
	}
	span.SetAttributes(
		attribute.Bool("gemini.error", true),
		attribute.String("gemini.error_message", err.Error()),
	)
	return err
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// EstimateTokens approximates token usage at ~4 characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 && text != "" {
		n = 1
	}
	return n
}

// Close the client
func (gc *GeminiClient) Close() error {
	if gc.client != nil {
		return gc.client.Close()
	}
	return nil
}
