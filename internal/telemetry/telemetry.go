// Package telemetry wires OpenTelemetry metrics through the Prometheus
// exporter and defines the instruments the serving path records into.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

// Metrics bundles the serving-path instruments.
type Metrics struct {
	Requests       metric.Int64Counter
	SynthDuration  metric.Float64Histogram
	AdmissionWait  metric.Float64Histogram
	BusyWorkers    metric.Int64UpDownCounter
	StreamedChunks metric.Int64Counter
}

// Setup builds a meter provider backed by the Prometheus exporter and
// creates the instruments. The returned handler serves the scrape
// endpoint; the shutdown func flushes the provider.
func Setup(serviceName string) (*Metrics, http.Handler, func(context.Context) error, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, nil, nil, err
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.Requests, err = meter.Int64Counter("speech_requests_total",
		metric.WithDescription("Speech requests by outcome"))
	if err != nil {
		return nil, nil, nil, err
	}

	m.SynthDuration, err = meter.Float64Histogram("synthesis_duration_seconds",
		metric.WithDescription("Wall time of one synthesis request"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, nil, nil, err
	}

	m.AdmissionWait, err = meter.Float64Histogram("admission_wait_seconds",
		metric.WithDescription("Time spent waiting for a free worker slot"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, nil, nil, err
	}

	m.BusyWorkers, err = meter.Int64UpDownCounter("busy_workers",
		metric.WithDescription("Worker slots currently held by a request"))
	if err != nil {
		return nil, nil, nil, err
	}

	m.StreamedChunks, err = meter.Int64Counter("streamed_chunks_total",
		metric.WithDescription("Audio chunks delivered on streaming responses"))
	if err != nil {
		return nil, nil, nil, err
	}

	return m, promhttp.Handler(), provider.Shutdown, nil
}

// RecordRequest counts one finished request with its outcome label.
func (m *Metrics) RecordRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Requests.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSynthesis records the duration of one synthesis call.
func (m *Metrics) RecordSynthesis(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.SynthDuration.Record(ctx, d.Seconds())
}

// RecordAdmissionWait records how long admission blocked.
func (m *Metrics) RecordAdmissionWait(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.AdmissionWait.Record(ctx, d.Seconds())
}

// WorkerAcquired / WorkerReleased track the busy-slot gauge.
func (m *Metrics) WorkerAcquired(ctx context.Context) {
	if m == nil {
		return
	}
	m.BusyWorkers.Add(ctx, 1)
}

func (m *Metrics) WorkerReleased(ctx context.Context) {
	if m == nil {
		return
	}
	m.BusyWorkers.Add(ctx, -1)
}

// RecordChunks counts streamed chunks delivered to a client.
func (m *Metrics) RecordChunks(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.StreamedChunks.Add(ctx, int64(n))
}
