package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentStatus is the processing state of an uploaded document.
type DocumentStatus string

const (
	StatusUploading  DocumentStatus = "uploading"
	StatusProcessing DocumentStatus = "processing"
	StatusChunking   DocumentStatus = "chunking"
	StatusEmbedding  DocumentStatus = "embedding"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

var nextStatus = map[DocumentStatus]DocumentStatus{
	StatusUploading:  StatusProcessing,
	StatusProcessing: StatusChunking,
	StatusChunking:   StatusEmbedding,
	StatusEmbedding:  StatusCompleted,
}

// IsTerminal reports whether no further transition is possible.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is allowed. Stages
// advance one at a time; any non-terminal state may fail.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return nextStatus[s] == next
}

// Predecessors returns the states from which next may be entered.
func Predecessors(next DocumentStatus) []DocumentStatus {
	if next == StatusFailed {
		return []DocumentStatus{StatusUploading, StatusProcessing, StatusChunking, StatusEmbedding}
	}
	var out []DocumentStatus
	for from, to := range nextStatus {
		if to == next {
			out = append(out, from)
		}
	}
	return out
}

// Progress maps a status to a coarse percentage for the UI.
func (s DocumentStatus) Progress() int {
	switch s {
	case StatusUploading:
		return 0
	case StatusProcessing:
		return 25
	case StatusChunking:
		return 50
	case StatusEmbedding:
		return 75
	case StatusCompleted:
		return 100
	default:
		return 0
	}
}

// Document is an uploaded PDF and the results of processing it.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"original_name"`
	FilePath     string             `bson:"file_path" json:"-"`
	FileHash     string             `bson:"file_hash" json:"file_hash"`
	Size         int64              `bson:"size" json:"size"`
	PageCount    int                `bson:"page_count" json:"page_count"`
	Status       DocumentStatus     `bson:"status" json:"status"`
	Progress     int                `bson:"progress" json:"progress"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	Summary      string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Tags         []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Language     string             `bson:"language,omitempty" json:"language,omitempty"`
	Metadata     ProcessingMetadata `bson:"metadata" json:"metadata"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// ProcessingMetadata summarizes one pipeline run over a document.
type ProcessingMetadata struct {
	TotalChunks      int     `bson:"total_chunks" json:"totalChunks"`
	TotalTokens      int     `bson:"total_tokens" json:"totalTokens"`
	TotalWords       int     `bson:"total_words" json:"totalWords"`
	AverageChunkSize float64 `bson:"average_chunk_size" json:"averageChunkSize"`
	ProcessingTimeMs int64   `bson:"processing_time_ms" json:"processingTime"`
	EmbeddingModel   string  `bson:"embedding_model" json:"embeddingModel"`
	EmbeddedChunks   int     `bson:"embedded_chunks" json:"embeddedChunks"`
	ChunkSize        int     `bson:"chunk_size" json:"chunkSize"`
	ChunkOverlap     int     `bson:"chunk_overlap" json:"chunkOverlap"`
}

// UploadResponse is returned after a document is accepted.
type UploadResponse struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Status   DocumentStatus `json:"status"`
	TaskID   string         `json:"task_id,omitempty"`
	Message  string         `json:"message"`
}
