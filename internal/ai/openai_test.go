package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_EmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)

		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("test-key", srv.URL+"/", time.Second, nil)
	vectors, err := c.EmbedBatch(context.Background(), "text-embedding-3-small", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIClient_EmbedBatchRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, time.Second, nil)
	_, err := c.EmbedBatch(context.Background(), "m", []string{"a", "b"})
	assert.Error(t, err)
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.1, req.Temperature)
		assert.Equal(t, 4000, req.MaxTokens)
		require.Len(t, req.Messages, 1)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"See page 2."}}],"usage":{"prompt_tokens":40,"completion_tokens":4}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, time.Second, nil)
	res, err := c.Generate(context.Background(), "gpt-4o-mini", "question", 0.1, 4000)
	require.NoError(t, err)
	assert.Equal(t, "See page 2.", res.Text)
	assert.Equal(t, 40, res.PromptTokens)
	assert.Equal(t, 4, res.CompletionTokens)
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, time.Second, nil)
	_, err := c.Generate(context.Background(), "m", "q", 0.1, 10)
	assert.Error(t, err)
}

func TestOpenAIClient_BreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("k", srv.URL, time.Second, nil)
	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), "m", "q", 0.1, 10)
		require.Error(t, err)
	}
	_, err := c.Generate(context.Background(), "m", "q", 0.1, 10)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestNewLimiter(t *testing.T) {
	assert.Equal(t, 1, newLimiter(5).Burst())
	assert.Equal(t, 6, newLimiter(60).Burst())
	assert.True(t, newLimiter(0).Allow())
}
