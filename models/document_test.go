package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	path := []DocumentStatus{StatusUploading, StatusProcessing, StatusChunking, StatusEmbedding, StatusCompleted}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, path[i].CanTransition(path[i+1]), "%s -> %s", path[i], path[i+1])
		assert.True(t, path[i].CanTransition(StatusFailed), "%s -> failed", path[i])
	}

	assert.False(t, StatusUploading.CanTransition(StatusEmbedding), "stages cannot be skipped")
	assert.False(t, StatusChunking.CanTransition(StatusProcessing), "stages cannot go back")
	assert.False(t, StatusCompleted.CanTransition(StatusFailed))
	assert.False(t, StatusFailed.CanTransition(StatusProcessing))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusEmbedding.IsTerminal())
}

func TestChunkHelpers(t *testing.T) {
	assert.Equal(t, "p3-c0", ChunkID(3, 0))

	c := Chunk{}
	assert.False(t, c.HasEmbedding())
	c.Embedding = &Embedding{Method: "tfidf"}
	assert.False(t, c.HasEmbedding())
	c.Embedding.Vector = []float64{0.1}
	assert.True(t, c.HasEmbedding())
}

func TestPredecessors(t *testing.T) {
	assert.Equal(t, []DocumentStatus{StatusEmbedding}, Predecessors(StatusCompleted))
	assert.Equal(t, []DocumentStatus{StatusUploading}, Predecessors(StatusProcessing))
	assert.Len(t, Predecessors(StatusFailed), 4)
	assert.Empty(t, Predecessors(StatusUploading))
}
