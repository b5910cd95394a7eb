package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/models"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = 100 * time.Millisecond
)

var errBatchMismatch = errors.New("embedding: vector count does not match batch")

type BatchOptions struct {
	Size  int
	Delay time.Duration
	Log   *slog.Logger
}

// BatchOutcome aligns with the submitted texts: Embeddings[i] is nil when the
// batch containing text i was omitted.
type BatchOutcome struct {
	Embeddings    []*models.Embedding
	Embedded      int
	FailedBatches int
	// Degradations holds one entry per batch that fell back, in batch order.
	Degradations []models.Degradation
}

// EmbedInBatches runs e over texts in fixed-size groups, in submission order,
// sleeping Delay between groups. A group whose Embed call errors is logged
// and omitted; later groups are still attempted.
func EmbedInBatches(ctx context.Context, e Embedder, texts []string, opts BatchOptions) *BatchOutcome {
	size := opts.Size
	if size <= 0 {
		size = DefaultBatchSize
	}
	log := logger.Or(opts.Log)

	out := &BatchOutcome{Embeddings: make([]*models.Embedding, len(texts))}
	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}

		if start > 0 && opts.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(opts.Delay):
			}
		}

		res, err := e.Embed(ctx, texts[start:end])
		if err == nil && len(res.Vectors) != end-start {
			err = errBatchMismatch
		}
		if err != nil {
			out.FailedBatches++
			log.Error("embedding batch failed, omitting", "batch_start", start, "batch_size", end-start, "error", err)
			continue
		}

		if res.Degradation != nil {
			out.Degradations = append(out.Degradations, *res.Degradation)
		}
		for i, v := range res.Vectors {
			out.Embeddings[start+i] = &models.Embedding{Vector: v, Method: res.Method}
			out.Embedded++
		}
	}
	return out
}
