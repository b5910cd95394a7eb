package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// QuestionRequest is the question-answering request body.
type QuestionRequest struct {
	DocumentID     string `json:"documentId" binding:"required"`
	Question       string `json:"question" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ContextChunk is the truncated provenance copy of a chunk used for an answer.
type ContextChunk struct {
	ChunkID    string  `bson:"chunk_id" json:"chunkId"`
	Content    string  `bson:"content" json:"content"`
	PageNumber int     `bson:"page_number" json:"pageNumber"`
	Similarity float64 `bson:"similarity" json:"similarity"`
	Relevance  float64 `bson:"relevance" json:"relevance"`
}

// AnswerContext is the provenance record attached to every answer.
type AnswerContext struct {
	Chunks               []ContextChunk `bson:"chunks" json:"chunks"`
	PageNumbers          []int          `bson:"page_numbers" json:"pageNumbers"`
	TotalChunksRetrieved int            `bson:"total_chunks_retrieved" json:"totalChunksRetrieved"`
	AverageSimilarity    float64        `bson:"average_similarity" json:"averageSimilarity"`
	RetrievalMethod      Method         `bson:"retrieval_method" json:"retrievalMethod"`
	AnswerMethod         Method         `bson:"answer_method" json:"answerMethod"`
	RetrievalDegradation *Degradation   `bson:"retrieval_degradation,omitempty" json:"retrievalDegradation,omitempty"`
	AnswerDegradation    *Degradation   `bson:"answer_degradation,omitempty" json:"answerDegradation,omitempty"`
}

// ChatRecord is a persisted question/answer exchange.
type ChatRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocumentID       primitive.ObjectID `bson:"document_id" json:"documentId"`
	ConversationID   string             `bson:"conversation_id" json:"conversationId"`
	Question         string             `bson:"question" json:"question"`
	Answer           string             `bson:"answer" json:"answer"`
	Model            string             `bson:"model" json:"model"`
	Context          AnswerContext      `bson:"context" json:"context"`
	PromptTokens     int                `bson:"prompt_tokens" json:"promptTokens"`
	CompletionTokens int                `bson:"completion_tokens" json:"completionTokens"`
	ProcessingTimeMs int64              `bson:"processing_time_ms" json:"processingTime"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

// AnswerResponse is returned by the chat endpoint.
type AnswerResponse struct {
	Answer         string        `json:"answer"`
	Model          string        `json:"model"`
	Context        AnswerContext `json:"context"`
	ConversationID string        `json:"conversationId"`
	MessageID      string        `json:"messageId,omitempty"`
}
