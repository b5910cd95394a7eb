package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsRecords(t *testing.T) {
	m, err := InitMetrics("test")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/health", "success", 0.01)
		m.RecordTokensUsed(120, "gemini-2.0-flash", "prompt")
		m.RecordDocumentProcessed("completed", 1.5)
		m.RecordEmbeddingBatches("tfidf", 12, 1)
		m.RecordDegradation("retrieval", "dimension_mismatch")
		m.RecordCircuitBreakerState("gemini", "open")
	})
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("GET", "/", "success", 0)
		m.RecordDocumentProcessed("failed", 0)
		m.RecordEmbeddingBatches("tfidf", 0, 0)
		m.RecordDegradation("answer", "timeout")
	})
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "test", "", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
