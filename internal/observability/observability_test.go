// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

func boolPtr(b bool) *bool { return &b }

func buildTestIndex(t *testing.T) *fieldkit.Index {
	t.Helper()
	idx, err := fieldkit.Build([]fieldkit.Field{
		{
			Name: "tenantId",
			Observability: fieldkit.Observability{
				Metrics: fieldkit.MetricsConfig{Enabled: boolPtr(true), Cardinality: fieldkit.CardinalityLow, TagName: "tenant"},
				Logging: fieldkit.LoggingConfig{Enabled: boolPtr(true), MDCKey: "request.tenantId", NestedFromDottedKey: true},
				Tracing: fieldkit.TracingConfig{Enabled: boolPtr(true), SpanTagName: "tenant.id"},
			},
		},
		{
			Name: "apiKey",
			Security: fieldkit.Security{Sensitive: true, MaskPattern: "****"},
			Observability: fieldkit.Observability{
				Logging: fieldkit.LoggingConfig{Enabled: boolPtr(true), MDCKey: "apiKey"},
			},
		},
		{
			Name: "latencyMs",
			Observability: fieldkit.Observability{
				Metrics: fieldkit.MetricsConfig{Enabled: boolPtr(true), Cardinality: fieldkit.CardinalityLow, Histogram: true, MetricName: "reqcontext.latency_ms"},
			},
		},
		{
			Name: "sessionId",
			Observability: fieldkit.Observability{
				Logging: fieldkit.LoggingConfig{Enabled: boolPtr(true), MDCKey: "session.id", NestedFromDottedKey: false},
			},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestMetricsFieldsUsesTagNames(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")

	fields := MetricsFields(idx, store, fieldkit.CardinalityLow)
	require.Equal(t, map[string]string{"tenant": "acme"}, fields)
}

func TestLoggingFieldsMasksSensitiveValues(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")
	store.Put("apiKey", "super-secret")

	fields := LoggingFields(idx, store)
	require.Equal(t, "acme", fields["request.tenantId"])
	require.Equal(t, "****", fields["apiKey"])
}

func TestNestedLoggingFieldsBuildsNestedMap(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")

	nested := NestedLoggingFields(idx, store)
	request, ok := nested["request"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "acme", request["tenantId"])
}

func TestNestedLoggingFieldsKeepsDottedKeyFlatWhenFlagIsOff(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("sessionId", "sess-123")

	nested := NestedLoggingFields(idx, store)
	require.Equal(t, "sess-123", nested["session.id"])
	_, isNested := nested["session"].(map[string]any)
	require.False(t, isNested)
}

func TestTracingFieldsUsesSpanTagNames(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")

	fields := TracingFields(idx, store)
	require.Equal(t, map[string]string{"tenant.id": "acme"}, fields)
}

func TestRecorderRecordsCounterAndHistogram(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")
	store.Put("latencyMs", "42.5")

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("reqcontext-test")

	r, err := NewRecorder(meter, idx)
	require.NoError(t, err)
	r.RecordRequest(context.Background(), store)

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))
	require.NotEmpty(t, data.ScopeMetrics)
}

func TestNoopTracerIsSafeToCall(t *testing.T) {
	tr := NoopTracer{}
	ctx, span := tr.StartSpan(context.Background(), "op", fieldkit.NewStore(nil), buildTestIndex(t), nil)
	require.NotNil(t, ctx)
	tr.EndSpan(span, nil)
}

func TestOtelTracerStartsAndEndsSpan(t *testing.T) {
	idx := buildTestIndex(t)
	store := fieldkit.NewStore(idx)
	store.Put("tenantId", "acme")

	tp := trace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tr := NewTracer(tp.Tracer("reqcontext-test"), nil)
	ctx, span := tr.StartSpan(context.Background(), "request", store, idx, nil)
	require.NotNil(t, ctx)
	tr.EndSpan(span, nil)
}
