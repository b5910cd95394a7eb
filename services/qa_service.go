package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/internal/answer"
	"pdf-rag-platform/internal/logger"
	"pdf-rag-platform/internal/similarity"
	"pdf-rag-platform/models"
)

var (
	ErrEmptyQuestion    = errors.New("question must not be empty")
	ErrDocumentNotReady = errors.New("document has not finished processing")
)

// ChunkSource loads a document's chunks from the primary store.
type ChunkSource interface {
	ListByDocument(ctx context.Context, documentID primitive.ObjectID) ([]models.Chunk, error)
}

// ChunkCache is an optional read-through cache in front of ChunkSource.
type ChunkCache interface {
	Get(ctx context.Context, documentID string) ([]models.Chunk, bool)
	Set(ctx context.Context, documentID string, chunks []models.Chunk) error
}

type ChatStore interface {
	Insert(ctx context.Context, rec *models.ChatRecord) error
	ListByConversation(ctx context.Context, conversationID string) ([]models.ChatRecord, error)
}

// TokenRecorder receives token usage for answered questions.
type TokenRecorder interface {
	RecordTokensUsed(tokens int64, model, kind string)
}

type QAOptions struct {
	TopK      int
	Threshold float64
}

type QAService struct {
	docs     DocumentStore
	chunks   ChunkSource
	chats    ChatStore
	engine   *similarity.Engine
	composer *answer.Composer
	opts     QAOptions
	log      *slog.Logger

	Cache   ChunkCache
	Metrics TokenRecorder
}

func NewQAService(docs DocumentStore, chunks ChunkSource, chats ChatStore, engine *similarity.Engine, composer *answer.Composer, opts QAOptions, log *slog.Logger) *QAService {
	if opts.TopK <= 0 {
		opts.TopK = similarity.DefaultTopK
	}
	return &QAService{
		docs:     docs,
		chunks:   chunks,
		chats:    chats,
		engine:   engine,
		composer: composer,
		opts:     opts,
		log:      logger.Or(log),
	}
}

// Ask answers a question about a processed document and records the exchange.
func (s *QAService) Ask(ctx context.Context, req models.QuestionRequest) (*models.AnswerResponse, error) {
	start := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	docID, err := primitive.ObjectIDFromHex(req.DocumentID)
	if err != nil {
		return nil, ErrInvalidID
	}

	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrDocumentNotReady, doc.Status)
	}

	chunks, err := s.loadChunks(ctx, docID)
	if err != nil {
		return nil, err
	}

	retrieval := s.engine.FindSimilar(ctx, question, chunks, s.opts.TopK, s.opts.Threshold)
	ans := s.composer.Answer(ctx, question, retrieval, answer.DocumentMeta{
		ID:        docID.Hex(),
		Filename:  doc.OriginalName,
		PageCount: doc.PageCount,
	})

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	promptTokens, completionTokens := ans.PromptTokens, ans.CompletionTokens
	if promptTokens == 0 {
		promptTokens = ai.EstimateTokens(question)
	}
	if completionTokens == 0 {
		completionTokens = ai.EstimateTokens(ans.Text)
	}
	if s.Metrics != nil {
		s.Metrics.RecordTokensUsed(int64(promptTokens), ans.Model, "prompt")
		s.Metrics.RecordTokensUsed(int64(completionTokens), ans.Model, "completion")
	}

	rec := &models.ChatRecord{
		DocumentID:       docID,
		ConversationID:   conversationID,
		Question:         question,
		Answer:           ans.Text,
		Model:            ans.Model,
		Context:          ans.Context,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	resp := &models.AnswerResponse{
		Answer:         ans.Text,
		Model:          ans.Model,
		Context:        ans.Context,
		ConversationID: conversationID,
	}
	if err := s.chats.Insert(ctx, rec); err != nil {
		// The answer is still useful without its history entry.
		s.log.Error("failed to save chat record", "document_id", docID.Hex(), "error", err)
	} else {
		resp.MessageID = rec.ID.Hex()
	}

	s.log.Info("question answered",
		"document_id", docID.Hex(),
		"conversation_id", conversationID,
		"model", ans.Model,
		"retrieval_method", ans.Context.RetrievalMethod,
		"answer_method", ans.Context.AnswerMethod,
		"chunks", ans.Context.TotalChunksRetrieved,
		"duration_ms", rec.ProcessingTimeMs,
	)
	return resp, nil
}

// History returns a conversation oldest first.
func (s *QAService) History(ctx context.Context, conversationID string) ([]models.ChatRecord, error) {
	return s.chats.ListByConversation(ctx, conversationID)
}

func (s *QAService) loadChunks(ctx context.Context, docID primitive.ObjectID) ([]models.Chunk, error) {
	key := docID.Hex()
	if s.Cache != nil {
		if chunks, ok := s.Cache.Get(ctx, key); ok {
			return chunks, nil
		}
	}

	chunks, err := s.chunks.ListByDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, chunks); err != nil {
			s.log.Warn("chunk cache write failed", "document_id", key, "error", err)
		}
	}
	return chunks, nil
}
