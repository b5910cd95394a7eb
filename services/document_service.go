package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/models"
)

var ErrInvalidID = errors.New("invalid document id")

// DocumentStore is the document persistence used by the services.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	FindByHash(ctx context.Context, hash string) (*models.Document, error)
	List(ctx context.Context, limit int64) ([]models.Document, error)
}

// Enqueuer schedules background processing.
type Enqueuer interface {
	EnqueueProcess(ctx context.Context, documentID string) (string, error)
}

// FileProcessor runs the pipeline over a stored file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, doc *models.Document) (*pipeline.Outcome, error)
}

type DocumentService struct {
	docs      DocumentStore
	files     *FileStore
	queue     Enqueuer
	processor FileProcessor
	log       *slog.Logger

	// spawn runs inline processing; tests replace it to run synchronously.
	spawn func(func())
}

// NewDocumentService builds the upload service. With a nil queue uploads
// are processed in-process by processor.
func NewDocumentService(docs DocumentStore, files *FileStore, queue Enqueuer, processor FileProcessor, log *slog.Logger) *DocumentService {
	return &DocumentService{
		docs:      docs,
		files:     files,
		queue:     queue,
		processor: processor,
		log:       logger.Or(log),
		spawn:     func(f func()) { go f() },
	}
}

// UploadResult is the stored document and the background task, if any.
type UploadResult struct {
	Document  *models.Document
	TaskID    string
	Duplicate bool
}

// Upload stores the file, records it as uploading and starts processing. A
// byte-identical file that was already processed is returned instead.
func (s *DocumentService) Upload(ctx context.Context, originalName string, r io.Reader) (*UploadResult, error) {
	stored, err := s.files.Store(r, originalName)
	if err != nil {
		return nil, err
	}

	existing, err := s.docs.FindByHash(ctx, stored.Hash)
	switch {
	case err == nil:
		_ = s.files.Remove(stored.Path)
		s.log.Info("duplicate upload", "document_id", existing.ID.Hex(), "hash", stored.Hash)
		return &UploadResult{Document: existing, Duplicate: true}, nil
	case !errors.Is(err, storage.ErrNotFound):
		_ = s.files.Remove(stored.Path)
		return nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	doc := &models.Document{
		Filename:     stored.SecureName,
		OriginalName: originalName,
		FilePath:     stored.Path,
		FileHash:     stored.Hash,
		Size:         stored.Size,
		Status:       models.StatusUploading,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		_ = s.files.Remove(stored.Path)
		return nil, fmt.Errorf("database save failed: %w", err)
	}

	result := &UploadResult{Document: doc}
	if s.queue != nil {
		taskID, err := s.queue.EnqueueProcess(ctx, doc.ID.Hex())
		if err == nil {
			result.TaskID = taskID
			s.log.Info("document enqueued", "document_id", doc.ID.Hex(), "task_id", taskID)
			return result, nil
		}
		s.log.Error("enqueue failed, processing inline", "document_id", doc.ID.Hex(), "error", err)
	}

	if s.processor != nil {
		// The goroutine owns its copy so callers can read result.Document safely.
		work := *doc
		s.spawn(func() {
			pctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if _, err := s.processor.ProcessFile(pctx, &work); err != nil {
				s.log.Error("inline processing failed", "document_id", work.ID.Hex(), "error", err)
			}
		})
	}
	return result, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.docs.Get(ctx, oid)
}

func (s *DocumentService) List(ctx context.Context, limit int64) ([]models.Document, error) {
	return s.docs.List(ctx, limit)
}
