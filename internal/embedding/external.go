package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

// Provider is a remote embedding API. Name is the method tag stored with the
// vectors it produces.
type Provider interface {
	Name() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// External embeds through a Provider and falls back to TF-IDF for any batch
// the provider cannot serve.
type External struct {
	provider Provider
	fallback *Lexical
	timeout  time.Duration
	log      *slog.Logger
}

func NewExternal(provider Provider, timeout time.Duration, log *slog.Logger) *External {
	return &External{
		provider: provider,
		fallback: NewLexical(),
		timeout:  timeout,
		log:      logger.Or(log),
	}
}

func (e *External) Method() string { return e.provider.Name() }

func (e *External) Embed(ctx context.Context, texts []string) (*Result, error) {
	if len(texts) == 0 {
		return &Result{Method: e.Method()}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	vectors, err := e.provider.EmbedBatch(callCtx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	if err == nil {
		return &Result{Vectors: widen(vectors), Method: e.Method()}, nil
	}

	reason := ai.Reason(err)
	e.log.Warn("external embedding failed, using tfidf",
		"provider", e.Method(),
		"batch_size", len(texts),
		"reason", reason,
		"error", err,
	)

	res, _ := e.fallback.Embed(ctx, texts)
	res.Degradation = &models.Degradation{Reason: reason, Detail: err.Error()}
	return res, nil
}

func widen(in [][]float32) [][]float64 {
	out := make([][]float64, len(in))
	for i, v := range in {
		w := make([]float64, len(v))
		for j, x := range v {
			w[j] = float64(x)
		}
		out[i] = w
	}
	return out
}
