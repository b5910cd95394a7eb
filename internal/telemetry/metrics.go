package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	DocumentProcessing  metric.Float64Histogram
	EmbeddedChunks      metric.Int64Counter
	FailedBatches       metric.Int64Counter
	Degradations        metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics(serviceName string) (*Metrics, error) {
	meter := otel.Meter(serviceName)

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"generation.tokens.used",
		metric.WithDescription("Prompt and completion tokens sent to generation providers"),
	)
	if err != nil {
		return nil, err
	}

	documentProcessing, err := meter.Float64Histogram(
		"document.processing.duration",
		metric.WithDescription("Document pipeline duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	embeddedChunks, err := meter.Int64Counter(
		"embedding.chunks.embedded",
		metric.WithDescription("Chunks that received an embedding"),
	)
	if err != nil {
		return nil, err
	}

	failedBatches, err := meter.Int64Counter(
		"embedding.batches.failed",
		metric.WithDescription("Embedding batches that produced no vectors"),
	)
	if err != nil {
		return nil, err
	}

	degradations, err := meter.Int64Counter(
		"degradation.total",
		metric.WithDescription("Operations that fell back to a local method"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		DocumentProcessing:  documentProcessing,
		EmbeddedChunks:      embeddedChunks,
		FailedBatches:       failedBatches,
		Degradations:        degradations,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordTokensUsed records generation token usage
func (m *Metrics) RecordTokensUsed(tokens int64, model, kind string) {
	if m == nil || tokens <= 0 {
		return
	}
	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(
		attribute.String("generation.model", model),
		attribute.String("generation.kind", kind),
	))
}

func (m *Metrics) RecordDocumentProcessed(status string, seconds float64) {
	if m == nil {
		return
	}
	m.DocumentProcessing.Record(context.Background(), seconds, metric.WithAttributes(
		attribute.String("document.status", status),
	))
}

func (m *Metrics) RecordEmbeddingBatches(method string, embedded, failedBatches int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("embedding.method", method))
	m.EmbeddedChunks.Add(context.Background(), int64(embedded), attrs)
	if failedBatches > 0 {
		m.FailedBatches.Add(context.Background(), int64(failedBatches), attrs)
	}
}

func (m *Metrics) RecordDegradation(component, reason string) {
	if m == nil {
		return
	}
	m.Degradations.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("reason", reason),
	))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
