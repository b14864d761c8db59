// Package observe provides application-wide observability primitives for
// chatvoice: OpenTelemetry metrics, tracing, trace-aware logging and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping by the Prometheus exporter set up in [InitProvider]. Tests should
// use [NewMetrics] with their own [metric.MeterProvider] rather than
// [DefaultMetrics] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all chatvoice metrics.
const meterName = "github.com/MrWong99/chatvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// SynthesisDuration tracks the time until a playable resource is
	// returned. Attributes: engine, status.
	SynthesisDuration metric.Float64Histogram

	// SynthesisErrors counts items dropped as unplayable. Attribute: engine.
	SynthesisErrors metric.Int64Counter

	// CacheLookups counts content cache lookups. Attribute: result (hit|miss).
	CacheLookups metric.Int64Counter

	// QueueDepth tracks items waiting across all playback queues.
	QueueDepth metric.Int64UpDownCounter

	// PlaybackItems counts finished items. Attribute: outcome
	// (played|skipped).
	PlaybackItems metric.Int64Counter

	// Fallbacks counts silent downgrades to the free voice. Attribute: from.
	Fallbacks metric.Int64Counter

	// ActiveSessions tracks connected voice sessions.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks probe and metrics endpoint latency.
	// Attributes: method, path.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are histogram bucket boundaries in seconds, sized for
// network synthesis round trips.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SynthesisDuration, err = m.Float64Histogram("chatvoice.synthesis.duration",
		metric.WithDescription("Time until a synthesized item is ready to play."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("chatvoice.synthesis.errors",
		metric.WithDescription("Items dropped because synthesis failed."),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("chatvoice.cache.lookups",
		metric.WithDescription("Content cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("chatvoice.queue.depth",
		metric.WithDescription("Items waiting in playback queues."),
	); err != nil {
		return nil, err
	}
	if met.PlaybackItems, err = m.Int64Counter("chatvoice.playback.items",
		metric.WithDescription("Finished queue items by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Fallbacks, err = m.Int64Counter("chatvoice.fallbacks",
		metric.WithDescription("Downgrades from a premium engine to the free voice."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("chatvoice.active_sessions",
		metric.WithDescription("Connected voice sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("chatvoice.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, created on
// first use from [otel.GetMeterProvider]. Call it after [InitProvider].
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

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordSynthesis records the latency of one Speak call and, on failure,
// the dropped item.
func (m *Metrics) RecordSynthesis(ctx context.Context, engine string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		m.SynthesisErrors.Add(ctx, 1, metric.WithAttributes(Attr("engine", engine)))
	}
	m.SynthesisDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(Attr("engine", engine), Attr("status", status)),
	)
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(Attr("result", result)))
}

// RecordPlayback counts a finished queue item.
func (m *Metrics) RecordPlayback(ctx context.Context, played bool) {
	outcome := "skipped"
	if played {
		outcome = "played"
	}
	m.PlaybackItems.Add(ctx, 1, metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordFallback counts a downgrade away from engine from.
func (m *Metrics) RecordFallback(ctx context.Context, from string) {
	m.Fallbacks.Add(ctx, 1, metric.WithAttributes(Attr("from", from)))
}
