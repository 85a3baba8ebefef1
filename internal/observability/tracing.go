// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// Tracer starts one span per request carrying tracing_fields as attributes,
// and injects the resulting trace context into outbound propagation
// headers.
type Tracer interface {
	// StartSpan starts a span for the request, records tracing_fields as
	// span attributes, and injects the span's context into carrier so it
	// can be forwarded on outbound calls. Returns the span and a derived
	// context carrying it.
	StartSpan(ctx context.Context, name string, store *fieldkit.Store, idx *fieldkit.Index, carrier propagation.TextMapCarrier) (context.Context, trace.Span)
	// EndSpan ends span, marking it as errored when err is non-nil.
	EndSpan(span trace.Span, err error)
}

// otelTracer is the real Tracer, backed by an OTel trace.Tracer.
type otelTracer struct {
	tracer trace.Tracer
	prop   propagation.TextMapPropagator
}

// NewTracer wraps tracer (typically obtained from an OTel TracerProvider)
// as a Tracer. prop defaults to propagation.TraceContext{} when nil.
func NewTracer(tracer trace.Tracer, prop propagation.TextMapPropagator) Tracer {
	if prop == nil {
		prop = propagation.TraceContext{}
	}
	return &otelTracer{tracer: tracer, prop: prop}
}

func (t *otelTracer) StartSpan(ctx context.Context, name string, store *fieldkit.Store, idx *fieldkit.Index, carrier propagation.TextMapCarrier) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, name)
	for tag, value := range TracingFields(idx, store) {
		span.SetAttributes(attribute.String(tag, value))
	}
	if carrier != nil {
		t.prop.Inject(ctx, carrier)
	}
	return ctx, span
}

func (t *otelTracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// NoopTracer is a Tracer that never creates real spans — the default when
// no TracerProvider is configured.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, _ string, _ *fieldkit.Store, _ *fieldkit.Index, _ propagation.TextMapCarrier) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (NoopTracer) EndSpan(trace.Span, error) {}
