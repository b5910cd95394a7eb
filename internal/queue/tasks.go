package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/pipeline"
	"pdf-rag-platform/internal/storage"
	"pdf-rag-platform/models"
)

const (
	TaskProcessDocument = "document:process"

	QueueCritical = "critical"
	QueueDefault  = "default"
)

type DocumentProcessPayload struct {
	DocumentID string `json:"document_id"`
}

func NewDocumentProcessTask(documentID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueCritical),
	), nil
}

// Enqueuer submits processing tasks to Redis.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

// EnqueueProcess schedules a document for processing and returns the task id.
func (e *Enqueuer) EnqueueProcess(ctx context.Context, documentID string) (string, error) {
	task, err := NewDocumentProcessTask(documentID)
	if err != nil {
		return "", fmt.Errorf("build task: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// DocumentLoader reads a document record.
type DocumentLoader interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
}

// FileProcessor runs the pipeline over a document's stored file.
type FileProcessor interface {
	ProcessFile(ctx context.Context, doc *models.Document) (*pipeline.Outcome, error)
}

type TaskProcessor struct {
	docs      DocumentLoader
	processor FileProcessor
	log       *slog.Logger
}

func NewTaskProcessor(docs DocumentLoader, processor FileProcessor, log *slog.Logger) *TaskProcessor {
	return &TaskProcessor{docs: docs, processor: processor, log: logger.Or(log)}
}

// Register binds the task handlers to mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskProcessDocument, p.ProcessDocument)
}

// ProcessDocument handles document:process. Pipeline failures are recorded on
// the document and not retried; only failures before the document left the
// uploading state are.
func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	id, err := primitive.ObjectIDFromHex(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", payload.DocumentID, asynq.SkipRetry)
	}

	doc, err := p.docs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document %s: %v: %w", payload.DocumentID, err, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	if doc.Status.IsTerminal() {
		p.log.Info("document already processed", "document_id", payload.DocumentID, "status", doc.Status)
		return nil
	}
	if doc.Status != models.StatusUploading {
		return fmt.Errorf("document %s is %s, another worker owns it: %w", payload.DocumentID, doc.Status, asynq.SkipRetry)
	}

	p.log.Info("processing document", "document_id", payload.DocumentID, "filename", doc.OriginalName)
	if _, err := p.processor.ProcessFile(ctx, doc); err != nil {
		if doc.Status == models.StatusUploading {
			return fmt.Errorf("process document: %w", err)
		}
		return fmt.Errorf("process document: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
