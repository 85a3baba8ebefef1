// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package observability implements three pull-APIs for sinks to call at
// their own cadence — metrics_fields, logging_fields, tracing_fields — plus
// concrete OTel/Prometheus wiring that drives an actual meter and tracer off
// those projections.
package observability

import (
	"strings"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// MetricsFields returns tag_name -> value for every field enabled for
// metrics in exactly the given cardinality tier, using masked values for
// sensitive fields.
func MetricsFields(idx *fieldkit.Index, store *fieldkit.Store, cardinality fieldkit.CardinalityTier) map[string]string {
	out := map[string]string{}
	for _, name := range idx.MetricsFields(cardinality) {
		value, ok := store.GetMaskedOrOriginal(name)
		if !ok {
			continue
		}
		tag, ok := idx.MetricTagName(name)
		if !ok || tag == "" {
			tag = name
		}
		out[tag] = value
	}
	return out
}

// LoggingFields returns mdc_key -> value for every field enabled for
// logging, using masked values for sensitive fields. A dotted mdc_key with
// the nested-object flag set (the field's MDC key configured with a "."
// inside it) is left flat here — callers that want the nested-object
// projection should use NestedLoggingFields instead.
func LoggingFields(idx *fieldkit.Index, store *fieldkit.Store) map[string]string {
	out := map[string]string{}
	for _, name := range idx.LoggingFields() {
		value, ok := store.GetMaskedOrOriginal(name)
		if !ok {
			continue
		}
		key, ok := idx.MDCKey(name)
		if !ok || key == "" {
			key = name
		}
		out[key] = value
	}
	return out
}

// NestedLoggingFields is LoggingFields's nested-object variant: an mdc_key
// containing "." is split and built into a nested map[string]any instead of
// a flat string key, so a structured-logging sink can emit it as a real
// nested JSON object rather than a literal dotted key name.
func NestedLoggingFields(idx *fieldkit.Index, store *fieldkit.Store) map[string]any {
	out := map[string]any{}
	for _, name := range idx.LoggingFields() {
		value, ok := store.GetMaskedOrOriginal(name)
		if !ok {
			continue
		}
		key, ok := idx.MDCKey(name)
		if !ok || key == "" {
			key = name
		}
		f, _ := idx.Field(name)
		if f == nil || !f.Observability.Logging.NestedFromDottedKey || !strings.Contains(key, ".") {
			out[key] = value
			continue
		}
		setNested(out, strings.Split(key, "."), value)
	}
	return out
}

func setNested(root map[string]any, segments []string, value string) {
	cur := root
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
}

// TracingFields returns span_tag_name -> value for every field enabled for
// tracing, using masked values for sensitive fields.
func TracingFields(idx *fieldkit.Index, store *fieldkit.Store) map[string]string {
	out := map[string]string{}
	for _, name := range idx.TracingFields() {
		value, ok := store.GetMaskedOrOriginal(name)
		if !ok {
			continue
		}
		tag, ok := idx.TraceTagName(name)
		if !ok || tag == "" {
			tag = name
		}
		out[tag] = value
	}
	return out
}
