package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageBreak separates pages in extracted document text.
const PageBreak = "\f"

// Chunk is the unit of retrievable text. Chunks are immutable once created.
type Chunk struct {
	DocumentID primitive.ObjectID `bson:"document_id" json:"-"`
	ChunkID    string             `bson:"chunk_id" json:"chunkId"`
	Content    string             `bson:"content" json:"content"`
	PageNumber int                `bson:"page_number" json:"pageNumber"`
	ChunkIndex int                `bson:"chunk_index" json:"chunkIndex"`
	StartChar  int                `bson:"start_char" json:"startChar"`
	EndChar    int                `bson:"end_char" json:"endChar"`
	WordCount  int                `bson:"word_count" json:"wordCount"`
	Embedding  *Embedding         `bson:"embedding,omitempty" json:"embedding,omitempty"`
}

// Embedding is a vector together with the method that produced it. Vectors
// from different methods are never compared.
type Embedding struct {
	Vector []float64 `bson:"vector" json:"vector"`
	Method string    `bson:"method" json:"method"`
}

// ChunkID derives the document-unique identifier for a chunk.
func ChunkID(pageNumber, chunkIndex int) string {
	return fmt.Sprintf("p%d-c%d", pageNumber, chunkIndex)
}

// HasEmbedding reports whether the chunk carries a usable vector.
func (c *Chunk) HasEmbedding() bool {
	return c.Embedding != nil && len(c.Embedding.Vector) > 0
}
