package storage

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/models"
)

// Store bundles the repositories and satisfies pipeline.Store.
type Store struct {
	Documents *DocumentRepository
	Chunks    *ChunkRepository
	Chats     *ChatRepository
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		Documents: NewDocumentRepository(db),
		Chunks:    NewChunkRepository(db),
		Chats:     NewChatRepository(db),
	}
}

func (s *Store) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, errMsg string) error {
	return s.Documents.UpdateStatus(ctx, id, status, errMsg)
}

func (s *Store) ReplaceChunks(ctx context.Context, id primitive.ObjectID, chunks []models.Chunk) error {
	return s.Chunks.ReplaceAll(ctx, id, chunks)
}

func (s *Store) SaveResults(ctx context.Context, id primitive.ObjectID, res *pipeline.Results) error {
	return s.Documents.SaveResults(ctx, id, res)
}

var (
	_ pipeline.Store       = (*Store)(nil)
	_ pipeline.Invalidator = (*ChunkCache)(nil)
)
