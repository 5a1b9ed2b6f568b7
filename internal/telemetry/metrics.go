package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter    metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	ToolInvocations   metric.Int64Counter
	EmbeddingCalls    metric.Int64Counter
	SandboxExecutions metric.Int64Counter
	IngestionDuration metric.Float64Histogram
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("cs-instructor-backend")

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

	toolInvocations, err := meter.Int64Counter(
		"agent.tool.invocations",
		metric.WithDescription("Total agent tool invocations"),
	)
	if err != nil {
		return nil, err
	}

	embeddingCalls, err := meter.Int64Counter(
		"embeddings.calls.total",
		metric.WithDescription("Total embedding provider calls"),
	)
	if err != nil {
		return nil, err
	}

	sandboxExecutions, err := meter.Int64Counter(
		"sandbox.executions.total",
		metric.WithDescription("Total sandbox code executions"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"documents.ingestion.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:    requestCounter,
		RequestDuration:   requestDuration,
		ToolInvocations:   toolInvocations,
		EmbeddingCalls:    embeddingCalls,
		SandboxExecutions: sandboxExecutions,
		IngestionDuration: ingestionDuration,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an agent tool call
func (m *Metrics) RecordToolInvocation(tool string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("tool.name", tool),
		attribute.Bool("tool.success", success),
	}

	m.ToolInvocations.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordEmbeddingCall records an embedding provider call
func (m *Metrics) RecordEmbeddingCall(provider string, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("embeddings.provider", provider),
		attribute.Bool("embeddings.success", success),
	}

	m.EmbeddingCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordSandboxExecution records a sandbox run by result kind
func (m *Metrics) RecordSandboxExecution(result string) {
	attrs := []attribute.KeyValue{
		attribute.String("sandbox.result", result),
	}

	m.SandboxExecutions.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// RecordIngestion records document ingestion metrics
func (m *Metrics) RecordIngestion(duration float64, chunks int) {
	attrs := []attribute.KeyValue{
		attribute.Int("documents.chunks", chunks),
	}

	m.IngestionDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}
