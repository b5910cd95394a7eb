package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by the server and the worker.
const (
	DocumentsCollection = "documents"
	ChunksCollection    = "chunks"
	ChatsCollection     = "chats"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if err := createIndexes(ctx, client.Database(cfg.DBName)); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return client, nil
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	documentIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "file_hash", Value: 1}}},
	}
	if _, err := db.Collection(DocumentsCollection).Indexes().CreateMany(ctx, documentIndexes); err != nil {
		return err
	}

	chunkIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_id", Value: 1}, {Key: "chunk_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "page_number", Value: 1}, {Key: "chunk_index", Value: 1}}},
	}
	if _, err := db.Collection(ChunksCollection).Indexes().CreateMany(ctx, chunkIndexes); err != nil {
		return err
	}

	chatIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "document_id", Value: 1}}},
	}
	if _, err := db.Collection(ChatsCollection).Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return err
	}

	return nil
}
