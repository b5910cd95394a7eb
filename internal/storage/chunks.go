package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/models"
)

type ChunkRepository struct {
	col *mongo.Collection
}

func NewChunkRepository(db *mongo.Database) *ChunkRepository {
	return &ChunkRepository{col: db.Collection(config.ChunksCollection)}
}

// ReplaceAll deletes a document's chunks and inserts the new set.
func (r *ChunkRepository) ReplaceAll(ctx context.Context, documentID primitive.ObjectID, chunks []models.Chunk) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"document_id": documentID}); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]interface{}, len(chunks))
	for i := range chunks {
		chunks[i].DocumentID = documentID
		docs[i] = chunks[i]
	}
	if _, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return nil
}

// ListByDocument returns chunks in page then chunk-index order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID primitive.ObjectID) ([]models.Chunk, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "page_number", Value: 1},
		{Key: "chunk_index", Value: 1},
	})
	cursor, err := r.col.Find(ctx, bson.M{"document_id": documentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find chunks: %w", err)
	}
	defer cursor.Close(ctx)

	chunks := []models.Chunk{}
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) Count(ctx context.Context, documentID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"document_id": documentID})
}
