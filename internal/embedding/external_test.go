package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-rag-platform/internal/ai"
	"pdf-rag-platform/models"
)

type fakeProvider struct {
	calls   int
	err     error
	vectors func(texts []string) [][]float32
	block   bool
}

func (f *fakeProvider) Name() string { return "fake:model" }

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors(texts), nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func TestExternal_Success(t *testing.T) {
	p := &fakeProvider{}
	e := NewExternal(p, time.Second, nil)

	res, err := e.Embed(context.Background(), []string{"one text", "two text"})
	require.NoError(t, err)
	assert.Equal(t, "fake:model", res.Method)
	assert.False(t, res.Degraded())
	assert.Equal(t, [][]float64{{0, 1}, {1, 1}}, res.Vectors)
}

func TestExternal_FallsBackOnError(t *testing.T) {
	e := NewExternal(&fakeProvider{err: errors.New("503 unavailable")}, time.Second, nil)

	res, err := e.Embed(context.Background(), []string{"alpha beta", "beta gamma"})
	require.NoError(t, err)
	assert.Equal(t, MethodTFIDF, res.Method)
	require.True(t, res.Degraded())
	assert.Equal(t, models.ReasonUpstreamError, res.Degradation.Reason)
	assert.Equal(t, TFIDF([]string{"alpha beta", "beta gamma"}), res.Vectors)
}

func TestExternal_FallsBackOnCircuitOpen(t *testing.T) {
	e := NewExternal(&fakeProvider{err: ai.ErrCircuitOpen}, time.Second, nil)

	res, err := e.Embed(context.Background(), []string{"alpha beta"})
	require.NoError(t, err)
	assert.Equal(t, models.ReasonCircuitOpen, res.Degradation.Reason)
}

func TestExternal_TimeoutDegrades(t *testing.T) {
	e := NewExternal(&fakeProvider{block: true}, 20*time.Millisecond, nil)

	res, err := e.Embed(context.Background(), []string{"alpha beta"})
	require.NoError(t, err)
	require.True(t, res.Degraded())
	assert.Equal(t, models.ReasonTimeout, res.Degradation.Reason)
}

func TestExternal_WrongVectorCountDegrades(t *testing.T) {
	p := &fakeProvider{vectors: func([]string) [][]float32 { return [][]float32{{1}} }}
	e := NewExternal(p, time.Second, nil)

	res, err := e.Embed(context.Background(), []string{"alpha beta", "gamma delta"})
	require.NoError(t, err)
	assert.True(t, res.Degraded())
	assert.Len(t, res.Vectors, 2)
}

func TestExternal_CancelledContextIsAnError(t *testing.T) {
	p := &fakeProvider{}
	e := NewExternal(p, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, []string{"alpha beta"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, p.calls)
}
