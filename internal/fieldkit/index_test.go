// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestBuildPartitionsFieldsByPhase(t *testing.T) {
	fields := []Field{
		{Name: "tenant", Upstream: Upstream{Inbound: &ExtractionSpec{Source: SourceHeader, Key: "X-Tenant"}}},
		{Name: "userId", Upstream: Upstream{Inbound: &ExtractionSpec{Source: SourceClaim, ClaimPath: "sub"}}},
		{Name: "payload", Upstream: Upstream{Inbound: &ExtractionSpec{Source: SourceBody, Key: "amount"}}},
		{Name: "generated"},
	}
	idx, err := Build(fields)
	require.NoError(t, err)

	require.Equal(t, []string{"tenant"}, idx.PreAuthInbound())
	require.Equal(t, []string{"userId"}, idx.PostAuthInboundNoBody())
	require.Equal(t, []string{"payload"}, idx.PostAuthInboundBody())
}

func TestBuildRejectsRequiredFieldWithUnclassifiableSource(t *testing.T) {
	fields := []Field{{Name: "broken"}}
	fields[0].Upstream.Inbound = nil
	// A field with no inbound spec is context-generated and accepted. A
	// required inbound spec whose source falls through classifyPhase's
	// default case lands in phaseNone too, and Build rejects it because it
	// could never be extracted.
	fields[0].Upstream.Inbound = &ExtractionSpec{Source: Source("UNKNOWN"), Required: true}

	_, err := Build(fields)
	require.Error(t, err)
}

func TestBuildRejectsDuplicateNames(t *testing.T) {
	fields := []Field{{Name: "dup"}, {Name: "dup"}}
	_, err := Build(fields)
	require.Error(t, err)
}

func TestBuildRejectsDeepFallbackChains(t *testing.T) {
	var chain *ExtractionSpec
	for i := 0; i < MaxFallbackDepth+2; i++ {
		chain = &ExtractionSpec{Source: SourceHeader, Key: "X-Try", Fallback: chain}
	}
	fields := []Field{{Name: "deep", Upstream: Upstream{Inbound: chain}}}
	_, err := Build(fields)
	require.Error(t, err)
}

func TestBuildObservabilityExplicitDisableWins(t *testing.T) {
	fields := []Field{{
		Name: "tagged",
		Observability: Observability{
			Metrics: MetricsConfig{Enabled: boolPtr(false), TagName: "custom_tag"},
		},
	}}
	idx, err := Build(fields)
	require.NoError(t, err)
	require.Empty(t, idx.MetricsFields(CardinalityLow))
	require.Empty(t, idx.MetricsFields(CardinalityMedium))
	require.Empty(t, idx.MetricsFields(CardinalityHigh))
	_, ok := idx.MetricTagName("tagged")
	require.False(t, ok)
}

func TestBuildObservabilityImplicitEnableFromCustomTagName(t *testing.T) {
	fields := []Field{{
		Name: "tagged",
		Observability: Observability{
			Metrics: MetricsConfig{TagName: "custom_tag", Cardinality: CardinalityLow},
		},
	}}
	idx, err := Build(fields)
	require.NoError(t, err)
	require.Contains(t, idx.MetricsFields(CardinalityLow), "tagged")
	name, ok := idx.MetricTagName("tagged")
	require.True(t, ok)
	require.Equal(t, "custom_tag", name)
}

func TestBuildLoggingDefaultsMDCKeyToFieldName(t *testing.T) {
	fields := []Field{{
		Name:          "sessionId",
		Observability: Observability{Logging: LoggingConfig{Enabled: boolPtr(true)}},
	}}
	idx, err := Build(fields)
	require.NoError(t, err)
	require.Contains(t, idx.LoggingFields(), "sessionId")
	key, ok := idx.MDCKey("sessionId")
	require.True(t, ok)
	require.Equal(t, "sessionId", key)
}

func TestBuildSensitiveFieldsDefaultMaskPattern(t *testing.T) {
	fields := []Field{{Name: "ssn", Security: Security{Sensitive: true}}}
	idx, err := Build(fields)
	require.NoError(t, err)
	pattern, ok := idx.MaskPattern("ssn")
	require.True(t, ok)
	require.Equal(t, "***", pattern)
}

func TestBuildUpstreamOutboundKeyAndType(t *testing.T) {
	fields := []Field{{
		Name: "quota",
		Upstream: Upstream{
			Outbound: &EnrichmentSpec{EnrichAs: EnrichHeader, Key: "X-Quota-Remaining"},
		},
	}}
	idx, err := Build(fields)
	require.NoError(t, err)
	require.Contains(t, idx.UpstreamOutbound(), "quota")
	key, ok := idx.UpstreamOutboundKey("quota")
	require.True(t, ok)
	require.Equal(t, "X-Quota-Remaining", key)
	kind, ok := idx.UpstreamOutboundType("quota")
	require.True(t, ok)
	require.Equal(t, EnrichHeader, kind)
}
