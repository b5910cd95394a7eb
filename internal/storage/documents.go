// Package storage persists documents, chunks and chat history in MongoDB and
// caches chunk sets in Redis.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pdf-rag-platform/internal/config"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/models"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict means a status update lost a race or skipped a stage.
	ErrConflict = errors.New("storage: document is not in a state that allows this update")
)

type DocumentRepository struct {
	col *mongo.Collection
}

func NewDocumentRepository(db *mongo.Database) *DocumentRepository {
	return &DocumentRepository{col: db.Collection(config.DocumentsCollection)}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.Status == "" {
		doc.Status = models.StatusUploading
	}
	doc.Progress = doc.Status.Progress()
	doc.UploadedAt = now
	doc.UpdatedAt = now

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &doc, nil
}

// FindByHash returns the most recent completed document with the given
// content hash.
func (r *DocumentRepository) FindByHash(ctx context.Context, hash string) (*models.Document, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	var doc models.Document
	err := r.col.FindOne(ctx, bson.M{"file_hash": hash, "status": models.StatusCompleted}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find document by hash: %w", err)
	}
	return &doc, nil
}

// List returns documents newest first.
func (r *DocumentRepository) List(ctx context.Context, limit int64) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}

// UpdateStatus moves a document to status. The update only matches when the
// stored status is a legal predecessor, so concurrent workers cannot skip or
// repeat stages.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, errMsg string) error {
	set := bson.M{
		"status":     status,
		"progress":   status.Progress(),
		"updated_at": time.Now(),
	}
	if errMsg != "" {
		set["error_message"] = errMsg
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": models.Predecessors(status)}}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: -> %s", ErrConflict, status)
	}
	return nil
}

func (r *DocumentRepository) SaveResults(ctx context.Context, id primitive.ObjectID, res *pipeline.Results) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{
		"page_count":   res.PageCount,
		"summary":      res.Summary,
		"tags":         res.Tags,
		"language":     res.Language,
		"metadata":     res.Metadata,
		"processed_at": now,
		"updated_at":   now,
	}}
	result, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("save document results: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ErrStaleProcessing is recorded on documents a worker abandoned mid-pipeline.
const ErrStaleProcessing = "processing did not finish in time"

// FailStale marks documents that have sat in an in-flight pipeline stage since
// before cutoff as failed and returns their ids.
func (r *DocumentRepository) FailStale(ctx context.Context, cutoff time.Time) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.DocumentStatus{
			models.StatusProcessing, models.StatusChunking, models.StatusEmbedding,
		}},
		"updated_at": bson.M{"$lt": cutoff},
	}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find stale documents: %w", err)
	}
	var stale []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return nil, fmt.Errorf("decode stale documents: %w", err)
	}

	var failed []primitive.ObjectID
	for _, d := range stale {
		err := r.UpdateStatus(ctx, d.ID, models.StatusFailed, ErrStaleProcessing)
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			// Finished or failed since the scan.
			continue
		}
		if err != nil {
			return failed, err
		}
		failed = append(failed, d.ID)
	}
	return failed, nil
}

// SetEmbeddingModel records the outcome of re-embedding a document's chunks.
func (r *DocumentRepository) SetEmbeddingModel(ctx context.Context, id primitive.ObjectID, model string, embedded int) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"metadata.embedding_model": model,
		"metadata.embedded_chunks": embedded,
		"updated_at":               time.Now(),
	}})
	if err != nil {
		return fmt.Errorf("set embedding model: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCompletedIDs returns the ids of every completed document.
func (r *DocumentRepository) ListCompletedIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := r.col.Find(ctx, bson.M{"status": models.StatusCompleted}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list completed documents: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode completed documents: %w", err)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}
