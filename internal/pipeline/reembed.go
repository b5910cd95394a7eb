package pipeline

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/models"
)

// ReembedResult reports a re-embedding run over stored chunks.
type ReembedResult struct {
	Embedded       int
	EmbeddingModel string
	Degradations   []models.Degradation
}

// Reembed replaces the vectors of an already processed document's chunks
// with ones from the current backend. Chunk content and offsets are kept.
func (p *Processor) Reembed(ctx context.Context, documentID primitive.ObjectID, chunks []models.Chunk) (*ReembedResult, error) {
	for i := range chunks {
		chunks[i].Embedding = nil
	}
	embedded, degradations := p.embed(ctx, chunks)

	if err := p.store.ReplaceChunks(ctx, documentID, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}
	if p.Cache != nil {
		if err := p.Cache.Invalidate(ctx, documentID.Hex()); err != nil {
			p.log.Warn("chunk cache invalidation failed", "document_id", documentID.Hex(), "error", err)
		}
	}

	res := &ReembedResult{
		Embedded:       embedded,
		EmbeddingModel: embeddingModel(chunks, p.backend),
		Degradations:   degradations,
	}
	p.log.Info("document re-embedded",
		"document_id", documentID.Hex(),
		"chunks", len(chunks),
		"embedded", embedded,
		"embedding_model", res.EmbeddingModel,
	)
	return res, nil
}
