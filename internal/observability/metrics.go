// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// NewMeterProvider builds an OTel MeterProvider backed by a Prometheus
// reader, always wiring Prometheus rather than layering in an optional
// OTLP/console exporter. The returned shutdown func should be deferred by
// the host process.
func NewMeterProvider() (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	reader, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return mp, mp.Shutdown, nil
}

// Recorder drives a meter off a field index's metrics observability config.
// One counter ("reqcontext.requests") is tagged with every LOW-cardinality
// field's metrics_fields projection per recorded request; fields
// individually marked observability.metrics.histogram=true additionally get
// their own per-field histogram, named by metricName (or
// "reqcontext.<field name>" when metricName is empty),
// recording the field's numeric value when the raw string parses as a
// float64 — a per-field opt-in rather than a global one.
type Recorder struct {
	idx *fieldkit.Index

	requests   metric.Int64Counter
	histograms map[string]metric.Float64Histogram
}

// NewRecorder builds a Recorder against meter, pre-creating one histogram
// per field configured with observability.metrics.histogram=true.
func NewRecorder(meter metric.Meter, idx *fieldkit.Index) (*Recorder, error) {
	requests, err := meter.Int64Counter("reqcontext.requests",
		metric.WithDescription("requests observed by the context pipeline"))
	if err != nil {
		return nil, err
	}

	r := &Recorder{idx: idx, requests: requests, histograms: map[string]metric.Float64Histogram{}}
	for _, name := range idx.Order() {
		f, ok := idx.Field(name)
		if !ok || !f.Observability.Metrics.Histogram {
			continue
		}
		metricName := f.Observability.Metrics.MetricName
		if metricName == "" {
			metricName = "reqcontext." + name
		}
		h, err := meter.Float64Histogram(metricName)
		if err != nil {
			return nil, err
		}
		r.histograms[name] = h
	}
	return r, nil
}

// RecordRequest increments the request counter tagged with the LOW-
// cardinality tier's projection, and records any per-field histograms for
// fields whose current value parses as a number.
func (r *Recorder) RecordRequest(ctx context.Context, store *fieldkit.Store) {
	tags := MetricsFields(r.idx, store, fieldkit.CardinalityLow)
	attrs := make([]attribute.KeyValue, 0, len(tags))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.requests.Add(ctx, 1, metric.WithAttributes(attrs...))

	for name, h := range r.histograms {
		value, ok := store.Get(name)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		h.Record(ctx, f)
	}
}
