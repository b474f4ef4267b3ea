// Package observe provides application-wide observability primitives for
// whisperbridge: OpenTelemetry metrics, tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
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

// meterName is the instrumentation scope name used for all whisperbridge
// metrics.
const meterName = "github.com/MrWong99/whisperbridge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per engine operation ---

	// TranscribeDuration tracks single-shot transcription latency.
	TranscribeDuration metric.Float64Histogram

	// ChunkDuration tracks per-chunk latency in streaming sessions.
	ChunkDuration metric.Float64Histogram

	// DetectDuration tracks language detection latency.
	DetectDuration metric.Float64Histogram

	// --- Counters ---

	// ChunksProcessed counts streaming chunks processed successfully.
	ChunksProcessed metric.Int64Counter

	// AudioSeconds counts seconds of audio fed into the engine. Use with
	// attribute: attribute.String("op", ...)
	AudioSeconds metric.Float64Counter

	// EngineErrors counts failed engine runs. Use with attribute:
	//   attribute.String("op", ...)
	EngineErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveStreams tracks the number of live streaming sessions.
	ActiveStreams metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech-decoder latencies: sub-second chunk decodes up to multi-second
// whole-file runs.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("whisperbridge.transcribe.duration",
		metric.WithDescription("Latency of single-shot transcription runs."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChunkDuration, err = m.Float64Histogram("whisperbridge.stream.chunk.duration",
		metric.WithDescription("Latency of per-chunk decodes in streaming sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DetectDuration, err = m.Float64Histogram("whisperbridge.detect.duration",
		metric.WithDescription("Latency of language detection runs."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ChunksProcessed, err = m.Int64Counter("whisperbridge.stream.chunks",
		metric.WithDescription("Total streaming chunks processed successfully."),
	); err != nil {
		return nil, err
	}
	if met.AudioSeconds, err = m.Float64Counter("whisperbridge.audio.seconds",
		metric.WithDescription("Total seconds of audio fed into the engine by operation."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("whisperbridge.engine.errors",
		metric.WithDescription("Total failed engine runs by operation."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveStreams, err = m.Int64UpDownCounter("whisperbridge.active_streams",
		metric.WithDescription("Number of live streaming sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("whisperbridge.http.request.duration",
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

// RecordEngineError records a failed engine run for the given operation
// ("transcribe", "chunk", "detect").
func (m *Metrics) RecordEngineError(ctx context.Context, op string) {
	m.EngineErrors.Add(ctx, 1, metric.WithAttributes(Attr("op", op)))
}

// RecordAudio records seconds of audio handed to the engine for the given
// operation.
func (m *Metrics) RecordAudio(ctx context.Context, op string, seconds float64) {
	m.AudioSeconds.Add(ctx, seconds, metric.WithAttributes(Attr("op", op)))
}
