// Package embedding turns texts into vectors. Two interchangeable strategies
// share the Embedder interface: a local TF-IDF embedder that is always
// available and an external provider-backed embedder that falls back to it.
package embedding

import (
	"context"

	"pdf-rag-platform/models"
)

// MethodTFIDF tags vectors produced by the local lexical embedder.
const MethodTFIDF = "tfidf"

// Result holds one vector per input text. Method names the strategy that
// actually produced the vectors, which differs from the embedder's own
// Method when Degradation is set.
type Result struct {
	Vectors     [][]float64
	Method      string
	Degradation *models.Degradation
}

// Degraded reports whether the vectors came from the fallback strategy.
func (r *Result) Degraded() bool { return r != nil && r.Degradation != nil }

// Embedder computes vectors for a batch of texts. Implementations do not
// return errors for upstream failures; an error means the batch could not
// be attempted at all (e.g. the context was cancelled).
type Embedder interface {
	Embed(ctx context.Context, texts []string) (*Result, error)
	Method() string
}
