// Package observe provides application-wide observability primitives for
// CourseAI: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all CourseAI metrics.
const meterName = "github.com/courseai/courseai"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// RecognitionDuration tracks the time from final transcript arrival to
	// the end of its pipeline processing.
	RecognitionDuration metric.Float64Histogram

	// EnrichmentDuration tracks LLM hint enrichment latency.
	EnrichmentDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptFinals counts finalized transcript segments. Use with
	// attribute: attribute.String("backend", ...)
	TranscriptFinals metric.Int64Counter

	// HintsDetected counts detected teacher hints. Use with attribute:
	//   attribute.String("hint_type", ...)
	HintsDetected metric.Int64Counter

	// --- Error counters ---

	// PersistFailures counts absorbed persistence errors. Use with attribute:
	//   attribute.String("table", ...)
	PersistFailures metric.Int64Counter

	// RecognizerErrors counts terminal recognition stream errors. Use with
	// attribute: attribute.String("backend", ...)
	RecognizerErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live transcription sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// transcript pipeline latencies, which include one LLM round trip.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RecognitionDuration, err = m.Float64Histogram("courseai.recognition.duration",
		metric.WithDescription("Processing latency per finalized transcript segment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EnrichmentDuration, err = m.Float64Histogram("courseai.enrichment.duration",
		metric.WithDescription("Latency of LLM hint enrichment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptFinals, err = m.Int64Counter("courseai.transcript.finals",
		metric.WithDescription("Total finalized transcript segments by backend."),
	); err != nil {
		return nil, err
	}
	if met.HintsDetected, err = m.Int64Counter("courseai.hints.detected",
		metric.WithDescription("Total detected teacher hints by hint type."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.PersistFailures, err = m.Int64Counter("courseai.persist.failures",
		metric.WithDescription("Total absorbed persistence errors by table."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerErrors, err = m.Int64Counter("courseai.recognizer.errors",
		metric.WithDescription("Total terminal recognition stream errors by backend."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("courseai.active_sessions",
		metric.WithDescription("Number of live transcription sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("courseai.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordHintDetected records a detected hint with its type attribute.
func (m *Metrics) RecordHintDetected(ctx context.Context, hintType string) {
	m.HintsDetected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("hint_type", hintType)),
	)
}

// RecordPersistFailure records an absorbed persistence error for a table.
func (m *Metrics) RecordPersistFailure(ctx context.Context, table string) {
	m.PersistFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.String("table", table)),
	)
}

// RecordRecognizerError records a terminal recognition stream error.
func (m *Metrics) RecordRecognizerError(ctx context.Context, backend string) {
	m.RecognizerErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("backend", backend)),
	)
}
