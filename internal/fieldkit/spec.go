// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

// Source identifies which request/response surface an ExtractionSpec reads from.
type Source string

// The set of sources is closed; a tagged variant over a small fixed set,
// not open polymorphism over source handlers.
const (
	SourceHeader    Source = "HEADER"
	SourceQuery     Source = "QUERY"
	SourceCookie    Source = "COOKIE"
	SourcePath      Source = "PATH"
	SourceSession   Source = "SESSION"
	SourceAttribute Source = "ATTRIBUTE"
	SourceToken     Source = "TOKEN"
	SourceClaim     Source = "CLAIM"
	SourceBody      Source = "BODY"
	SourceForm      Source = "FORM"
)

// Generator names the value generator used when generate_if_absent is set.
type Generator string

const (
	GeneratorUUID      Generator = "UUID"
	GeneratorULID      Generator = "ULID"
	GeneratorTimestamp Generator = "TIMESTAMP"
	GeneratorSequence  Generator = "SEQUENCE"
	GeneratorRandom    Generator = "RANDOM"
	GeneratorNanoID    Generator = "NANOID"
)

// Transformation names one of the canonical value transforms applied by C2.
type Transformation string

const (
	TransformNone          Transformation = ""
	TransformUppercase     Transformation = "UPPERCASE"
	TransformLowercase     Transformation = "LOWERCASE"
	TransformTrim          Transformation = "TRIM"
	TransformBase64Encode  Transformation = "BASE64_ENCODE"
	TransformBase64Decode  Transformation = "BASE64_DECODE"
	TransformURLEncode     Transformation = "URL_ENCODE"
	TransformURLDecode     Transformation = "URL_DECODE"
	TransformHashSHA256    Transformation = "HASH_SHA256"
	TransformCustom        Transformation = "CUSTOM"
)

// EnrichAs identifies which response/request surface an EnrichmentSpec writes to.
type EnrichAs string

const (
	EnrichHeader    EnrichAs = "HEADER"
	EnrichQuery     EnrichAs = "QUERY"
	EnrichCookie    EnrichAs = "COOKIE"
	EnrichPath      EnrichAs = "PATH"
	EnrichAttribute EnrichAs = "ATTRIBUTE"
	EnrichBody      EnrichAs = "BODY"
	// EnrichSession appears in the enum, but implementations are allowed to
	// omit a handler for it; see EnrichSurface's EnrichSession case.
	EnrichSession EnrichAs = "SESSION"
)

// ValueAs identifies how an enrichment's rendered value is encoded before being written.
type ValueAs string

const (
	ValueString     ValueAs = "STRING"
	ValueExpression ValueAs = "EXPRESSION"
	ValueJSONArray  ValueAs = "JSON_ARRAY"
	ValueJSONObject ValueAs = "JSON_OBJECT"
	ValueNumber     ValueAs = "NUMBER"
	ValueBoolean    ValueAs = "BOOLEAN"
	ValueBase64     ValueAs = "BASE64"
	ValueURLEncoded ValueAs = "URL_ENCODED"
)

// CardinalityTier bounds how many distinct values a field may take, governing
// whether it is safe to emit as a metric tag.
type CardinalityTier string

const (
	CardinalityNone   CardinalityTier = "NONE"
	CardinalityLow    CardinalityTier = "LOW"
	CardinalityMedium CardinalityTier = "MEDIUM"
	CardinalityHigh   CardinalityTier = "HIGH"
)

// ExtractionSpec describes "read this from surface X, key Y".
type ExtractionSpec struct {
	Source    Source `json:"source"`
	Key       string `json:"key"`
	TokenType string `json:"tokenType,omitempty"`
	ClaimPath string `json:"claimPath,omitempty"`

	GenerateIfAbsent bool      `json:"generateIfAbsent,omitempty"`
	Generator        Generator `json:"generator,omitempty"`

	Transformation     Transformation `json:"transformation,omitempty"`
	TransformExpression string        `json:"transformExpression,omitempty"`

	ValidationPattern string `json:"validationPattern,omitempty"`

	Required     bool   `json:"required,omitempty"`
	DefaultValue string `json:"defaultValue,omitempty"`

	// Fallback is the recursive chained spec tried when this one is absent.
	// Depth is bounded at index build time; see MaxFallbackDepth.
	Fallback *ExtractionSpec `json:"fallback,omitempty"`

	// ExtSysIds narrows downstream-outbound propagation to specific target systems.
	ExtSysIds []string `json:"extSysIds,omitempty"`
}

// EnrichmentSpec describes "write this to surface X, key Y".
type EnrichmentSpec struct {
	EnrichAs EnrichAs `json:"enrichAs"`
	Key      string   `json:"key"`
	ValueAs  ValueAs  `json:"valueAs,omitempty"`
	Value    string   `json:"value,omitempty"`

	Override  bool     `json:"override,omitempty"`
	Condition string   `json:"condition,omitempty"`
	ExtSysIds []string `json:"extSysIds,omitempty"`
}

// MetricsConfig is a field's metrics observability sub-config.
type MetricsConfig struct {
	Enabled     *bool           `json:"enabled,omitempty"`
	Cardinality CardinalityTier `json:"cardinality,omitempty"`
	TagName     string          `json:"tagName,omitempty"`
	MetricName  string          `json:"metricName,omitempty"`
	Histogram   bool            `json:"histogram,omitempty"`
}

// LoggingConfig is a field's logging observability sub-config.
type LoggingConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	MDCKey      string `json:"mdcKey,omitempty"`
	MinLevel    string `json:"minLevel,omitempty"`
	NestedFromDottedKey bool `json:"nestedFromDottedKey,omitempty"`
}

// TracingConfig is a field's tracing observability sub-config.
type TracingConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	SpanTagName string `json:"spanTagName,omitempty"`
	NestedTags  bool   `json:"nestedTags,omitempty"`
}

// Observability bundles a field's metrics/logging/tracing sub-configs.
type Observability struct {
	Metrics MetricsConfig `json:"metrics,omitempty"`
	Logging LoggingConfig `json:"logging,omitempty"`
	Tracing TracingConfig `json:"tracing,omitempty"`
}

// Security is a field's masking/PII configuration.
type Security struct {
	Sensitive    bool   `json:"sensitive,omitempty"`
	MaskPattern  string `json:"maskPattern,omitempty"`
	PIILevel     string `json:"piiLevel,omitempty"`
	Audit        bool   `json:"audit,omitempty"`
	Encrypted    bool   `json:"encrypted,omitempty"`
}

// Metadata is descriptive, non-functional information about a field.
type Metadata struct {
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Version     string `json:"version,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty"`
}

// Upstream bundles the inbound extraction and outbound enrichment specs
// pairing a field with the caller of this service.
type Upstream struct {
	Inbound  *ExtractionSpec `json:"inbound,omitempty"`
	Outbound *EnrichmentSpec `json:"outbound,omitempty"`
}

// Downstream bundles the outbound enrichment and inbound extraction specs
// pairing a field with the services this application calls.
type Downstream struct {
	Outbound *EnrichmentSpec `json:"outbound,omitempty"`
	Inbound  *ExtractionSpec `json:"inbound,omitempty"`
}

// Field is one named, immutable-after-load entry in the field configuration.
// The zero value with no Upstream.Inbound is a "context-generated" field,
// populated programmatically.
type Field struct {
	Name string `json:"name"`

	Upstream   Upstream   `json:"upstream,omitempty"`
	Downstream Downstream `json:"downstream,omitempty"`

	Observability Observability `json:"observability,omitempty"`
	Security      Security      `json:"security,omitempty"`
	Metadata      Metadata      `json:"metadata,omitempty"`
}

// RequiresBodyCapture reports whether this field's downstream.inbound spec
// reads from the BODY source, which forces the capture filter to buffer the
// downstream response.
func (f *Field) RequiresBodyCapture() bool {
	return f.Downstream.Inbound != nil && f.Downstream.Inbound.Source == SourceBody
}
