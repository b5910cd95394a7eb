package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/models"
)

type ChatRepository struct {
	col *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{col: db.Collection(config.ChatsCollection)}
}

func (r *ChatRepository) Insert(ctx context.Context, rec *models.ChatRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert chat record: %w", err)
	}
	return nil
}

// ListByConversation returns a conversation's exchanges oldest first.
func (r *ChatRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.ChatRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find chat records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.ChatRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode chat records: %w", err)
	}
	return records, nil
}
