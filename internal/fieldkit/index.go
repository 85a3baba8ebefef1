// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import "fmt"

// MaxFallbackDepth bounds the recursive extraction-spec fallback chain,
// guarding against a cyclic fallback reference.
const MaxFallbackDepth = 8

// Index is the process-wide, immutable projection of the field configuration
// built once at startup. All ten lookup tables and the scalar name maps are
// populated by Build and never mutated afterward, so reads need no
// synchronization.
type Index struct {
	fields map[string]*Field
	order  []string // config order, for deterministic per-stage iteration

	preAuthInbound        []string
	postAuthInboundNoBody []string
	postAuthInboundBody   []string
	upstreamOutbound      []string
	downstreamOutbound    []string
	downstreamInbound     []string

	metricsLow    []string
	metricsMedium []string
	metricsHigh   []string
	loggingFields []string
	tracingFields []string
	sensitive     []string

	mdcKey               map[string]string
	metricTagName        map[string]string
	traceTagName         map[string]string
	maskPattern          map[string]string
	upstreamOutboundKey  map[string]string
	upstreamOutboundType map[string]EnrichAs
}

// Build walks fields once and produces an Index. Field order in the input
// slice is preserved for deterministic per-stage iteration.
func Build(fields []Field) (*Index, error) {
	idx := &Index{
		fields:               make(map[string]*Field, len(fields)),
		mdcKey:               make(map[string]string),
		metricTagName:        make(map[string]string),
		traceTagName:         make(map[string]string),
		maskPattern:          make(map[string]string),
		upstreamOutboundKey:  make(map[string]string),
		upstreamOutboundType: make(map[string]EnrichAs),
	}

	for i := range fields {
		f := &fields[i]
		if f.Name == "" {
			return nil, fmt.Errorf("fieldkit: field at position %d has no name", i)
		}
		if _, dup := idx.fields[f.Name]; dup {
			return nil, fmt.Errorf("fieldkit: duplicate field name %q", f.Name)
		}
		if err := validateFallbackDepth(f.Upstream.Inbound, 0); err != nil {
			return nil, fmt.Errorf("fieldkit: field %q: %w", f.Name, err)
		}
		idx.fields[f.Name] = f
		idx.order = append(idx.order, f.Name)

		phase := classifyPhase(f)
		switch phase {
		case phasePreAuth:
			idx.preAuthInbound = append(idx.preAuthInbound, f.Name)
		case phasePostAuthNoBody:
			idx.postAuthInboundNoBody = append(idx.postAuthInboundNoBody, f.Name)
		case phasePostAuthBody:
			idx.postAuthInboundBody = append(idx.postAuthInboundBody, f.Name)
		case phaseNone:
			if f.Upstream.Inbound != nil && f.Upstream.Inbound.Required {
				return nil, fmt.Errorf("fieldkit: field %q: required fields must be upstream-inbound", f.Name)
			}
		}

		if f.Upstream.Outbound != nil {
			idx.upstreamOutbound = append(idx.upstreamOutbound, f.Name)
			idx.upstreamOutboundKey[f.Name] = f.Upstream.Outbound.Key
			idx.upstreamOutboundType[f.Name] = f.Upstream.Outbound.EnrichAs
		}
		if f.Downstream.Outbound != nil {
			idx.downstreamOutbound = append(idx.downstreamOutbound, f.Name)
		}
		if f.Downstream.Inbound != nil {
			idx.downstreamInbound = append(idx.downstreamInbound, f.Name)
		}

		buildObservability(idx, f)

		if f.Security.Sensitive {
			idx.sensitive = append(idx.sensitive, f.Name)
			pattern := f.Security.MaskPattern
			if pattern == "" {
				pattern = "***"
			}
			idx.maskPattern[f.Name] = pattern
		}
	}

	return idx, nil
}

type phase int

const (
	phaseNone phase = iota
	phasePreAuth
	phasePostAuthNoBody
	phasePostAuthBody
)

// classifyPhase partitions a field into exactly one of the three inbound
// extraction phases, or none for a context-generated field.
func classifyPhase(f *Field) phase {
	in := f.Upstream.Inbound
	if in == nil {
		return phaseNone
	}
	switch in.Source {
	case SourceHeader, SourceQuery, SourceCookie:
		return phasePreAuth
	case SourcePath, SourceToken, SourceClaim, SourceSession, SourceAttribute, SourceForm:
		return phasePostAuthNoBody
	case SourceBody:
		return phasePostAuthBody
	default:
		return phaseNone
	}
}

// buildObservability applies the implicit-enable rule: an explicit
// enabled:false always wins; absent that, any of the listed implicit
// signals turns the table entry on even for a minimally spelled config.
func buildObservability(idx *Index, f *Field) {
	m := f.Observability.Metrics
	if metricsEnabled(m) {
		switch m.Cardinality {
		case CardinalityLow:
			idx.metricsLow = append(idx.metricsLow, f.Name)
		case CardinalityMedium:
			idx.metricsMedium = append(idx.metricsMedium, f.Name)
		case CardinalityHigh:
			idx.metricsHigh = append(idx.metricsHigh, f.Name)
		}
		tag := m.TagName
		if tag == "" {
			tag = f.Name
		}
		idx.metricTagName[f.Name] = tag
	}

	l := f.Observability.Logging
	if loggingEnabled(l) {
		idx.loggingFields = append(idx.loggingFields, f.Name)
		key := l.MDCKey
		if key == "" {
			key = f.Name
		}
		idx.mdcKey[f.Name] = key
	}

	t := f.Observability.Tracing
	if tracingEnabled(t) {
		idx.tracingFields = append(idx.tracingFields, f.Name)
		tag := t.SpanTagName
		if tag == "" {
			tag = f.Name
		}
		idx.traceTagName[f.Name] = tag
	}
}

func metricsEnabled(m MetricsConfig) bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return m.TagName != "" || m.MetricName != "" || m.Histogram || (m.Cardinality != "" && m.Cardinality != CardinalityNone)
}

func loggingEnabled(l LoggingConfig) bool {
	if l.Enabled != nil {
		return *l.Enabled
	}
	return l.MDCKey != "" || l.MinLevel != "" || l.NestedFromDottedKey
}

func tracingEnabled(t TracingConfig) bool {
	if t.Enabled != nil {
		return *t.Enabled
	}
	return t.SpanTagName != "" || t.NestedTags
}

func validateFallbackDepth(spec *ExtractionSpec, depth int) error {
	if spec == nil {
		return nil
	}
	if depth > MaxFallbackDepth {
		return fmt.Errorf("fallback chain exceeds max depth %d", MaxFallbackDepth)
	}
	return validateFallbackDepth(spec.Fallback, depth+1)
}

// Field returns the configuration for name, if any.
func (idx *Index) Field(name string) (*Field, bool) {
	f, ok := idx.fields[name]
	return f, ok
}

// Order returns every configured field name in config-file order.
func (idx *Index) Order() []string { return append([]string(nil), idx.order...) }

// PreAuthInbound returns fields whose source ∈ {HEADER, QUERY, COOKIE}.
func (idx *Index) PreAuthInbound() []string { return idx.preAuthInbound }

// PostAuthInboundNoBody returns fields whose source ∈ {PATH, TOKEN, CLAIM, SESSION, ATTRIBUTE, FORM}.
func (idx *Index) PostAuthInboundNoBody() []string { return idx.postAuthInboundNoBody }

// PostAuthInboundBody returns fields whose source = BODY.
func (idx *Index) PostAuthInboundBody() []string { return idx.postAuthInboundBody }

// UpstreamOutbound returns fields with an upstream.outbound spec.
func (idx *Index) UpstreamOutbound() []string { return idx.upstreamOutbound }

// DownstreamOutbound returns fields with a downstream.outbound spec.
func (idx *Index) DownstreamOutbound() []string { return idx.downstreamOutbound }

// DownstreamInbound returns fields with a downstream.inbound spec.
func (idx *Index) DownstreamInbound() []string { return idx.downstreamInbound }

// MetricsFields returns the fields in the given cardinality tier.
func (idx *Index) MetricsFields(tier CardinalityTier) []string {
	switch tier {
	case CardinalityLow:
		return idx.metricsLow
	case CardinalityMedium:
		return idx.metricsMedium
	case CardinalityHigh:
		return idx.metricsHigh
	default:
		return nil
	}
}

// LoggingFields returns fields emitted to the MDC/log scope.
func (idx *Index) LoggingFields() []string { return idx.loggingFields }

// TracingFields returns fields attached to spans.
func (idx *Index) TracingFields() []string { return idx.tracingFields }

// SensitiveFields returns fields needing mask rendering.
func (idx *Index) SensitiveFields() []string { return idx.sensitive }

// MDCKey returns the logging key for name, defaulting to the field name.
func (idx *Index) MDCKey(name string) (string, bool) { v, ok := idx.mdcKey[name]; return v, ok }

// MetricTagName returns the metrics tag name for name.
func (idx *Index) MetricTagName(name string) (string, bool) {
	v, ok := idx.metricTagName[name]
	return v, ok
}

// TraceTagName returns the span tag name for name.
func (idx *Index) TraceTagName(name string) (string, bool) {
	v, ok := idx.traceTagName[name]
	return v, ok
}

// MaskPattern returns the configured mask pattern for a sensitive field.
func (idx *Index) MaskPattern(name string) (string, bool) { v, ok := idx.maskPattern[name]; return v, ok }

// UpstreamOutboundKey returns the response-enrichment key for name.
func (idx *Index) UpstreamOutboundKey(name string) (string, bool) {
	v, ok := idx.upstreamOutboundKey[name]
	return v, ok
}

// UpstreamOutboundType returns the response-enrichment surface for name.
func (idx *Index) UpstreamOutboundType(name string) (EnrichAs, bool) {
	v, ok := idx.upstreamOutboundType[name]
	return v, ok
}
