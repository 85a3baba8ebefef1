// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

func newTestRunner(t *testing.T, fields []fieldkit.Field, excludePatterns []string) *Runner {
	t.Helper()
	idx, err := fieldkit.Build(fields)
	require.NoError(t, err)
	excl, err := NewExcludeMatcher(excludePatterns)
	require.NoError(t, err)
	return NewRunner(idx, excl, nil)
}

func TestOnRequestReceivedExtractsAndGenerates(t *testing.T) {
	fields := []fieldkit.Field{{
		Name: "requestId",
		Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{
			Source: fieldkit.SourceHeader, Key: "X-Request-Id",
			GenerateIfAbsent: true, Generator: fieldkit.GeneratorUUID,
		}},
	}}
	r := newTestRunner(t, fields, nil)

	req, err := r.OnRequestReceived(context.Background(), "/orders", fieldkit.InboundSurfaces{
		Header: func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)
	require.Equal(t, StatePreAuthExtracted, req.State())

	v, ok := req.Store.Get("requestId")
	require.True(t, ok)
	require.Len(t, v, 36)
}

func TestOnRequestReceivedBypassesExcludedPath(t *testing.T) {
	fields := []fieldkit.Field{{
		Name: "requestId",
		Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{
			Source: fieldkit.SourceHeader, Key: "X-Request-Id", Required: true,
		}},
	}}
	r := newTestRunner(t, fields, []string{"/healthz/**"})

	req, err := r.OnRequestReceived(context.Background(), "/healthz/live", fieldkit.InboundSurfaces{})
	require.NoError(t, err)
	require.Nil(t, req)
}

func TestOnRequestReceivedMissingRequiredFieldReturns400(t *testing.T) {
	fields := []fieldkit.Field{{
		Name: "tenant",
		Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{
			Source: fieldkit.SourceHeader, Key: "X-Tenant", Required: true,
		}},
	}}
	r := newTestRunner(t, fields, nil)

	req, err := r.OnRequestReceived(context.Background(), "/orders", fieldkit.InboundSurfaces{
		Header: func(string) (string, bool) { return "", false },
	})
	require.Error(t, err)
	var fe *fieldkit.Error
	require.True(t, errors.As(err, &fe))
	require.Equal(t, fieldkit.KindMissingRequiredField, fe.Kind)
	require.Equal(t, []string{"tenant"}, fe.Missing)
	require.Equal(t, StateError400, req.State())
}

func TestOnRequestReceivedCollectsAllMissingRequiredFields(t *testing.T) {
	fields := []fieldkit.Field{
		{Name: "a", Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{Source: fieldkit.SourceHeader, Key: "A", Required: true}}},
		{Name: "b", Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{Source: fieldkit.SourceHeader, Key: "B", Required: true}}},
	}
	r := newTestRunner(t, fields, nil)

	_, err := r.OnRequestReceived(context.Background(), "/x", fieldkit.InboundSurfaces{
		Header: func(string) (string, bool) { return "", false },
	})
	var fe *fieldkit.Error
	require.True(t, errors.As(err, &fe))
	require.ElementsMatch(t, []string{"a", "b"}, fe.Missing)
}

func TestOnAuthenticatedExtractsClaim(t *testing.T) {
	fields := []fieldkit.Field{{
		Name: "userId",
		Upstream: fieldkit.Upstream{Inbound: &fieldkit.ExtractionSpec{
			Source: fieldkit.SourceClaim, ClaimPath: "sub", Required: true,
		}},
	}}
	r := newTestRunner(t, fields, nil)

	req, err := r.OnRequestReceived(context.Background(), "/x", fieldkit.InboundSurfaces{})
	require.NoError(t, err)

	claims, err := fieldkit.ParseClaimsUnverified(unsignedJWTFor(`{"sub":"u-9"}`))
	require.NoError(t, err)

	err = r.OnAuthenticated(context.Background(), req, fieldkit.InboundSurfaces{Claims: claims})
	require.NoError(t, err)
	require.Equal(t, StatePostAuthExtracted, req.State())

	v, ok := req.Store.Get("userId")
	require.True(t, ok)
	require.Equal(t, "u-9", v)
}

func TestOnBodyParsedSkippedWithNoBodyFields(t *testing.T) {
	r := newTestRunner(t, nil, nil)
	req, _ := r.OnRequestReceived(context.Background(), "/x", fieldkit.InboundSurfaces{})

	err := r.OnBodyParsed(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, StateBodyExtracted, req.State())
}

func TestOnBeforeResponseWriteRendersAndRespectsCondition(t *testing.T) {
	fields := []fieldkit.Field{
		{
			Name: "quota",
			Upstream: fieldkit.Upstream{
				Outbound: &fieldkit.EnrichmentSpec{EnrichAs: fieldkit.EnrichHeader, Key: "X-Quota"},
			},
		},
		{
			Name: "hidden",
			Upstream: fieldkit.Upstream{
				Outbound: &fieldkit.EnrichmentSpec{EnrichAs: fieldkit.EnrichHeader, Key: "X-Hidden", Condition: "#hidden"},
			},
		},
	}
	r := newTestRunner(t, fields, nil)
	req, _ := r.OnRequestReceived(context.Background(), "/x", fieldkit.InboundSurfaces{})
	req.Store.Put("quota", "42")
	// "hidden" never set by extraction, so its condition template resolves
	// to empty and the enrichment must be skipped.

	written := map[string]string{}
	out := fieldkit.OutboundSurfaces{
		SetHeader: func(k, v string, override bool) { written[k] = v },
	}
	require.NoError(t, r.OnBeforeResponseWrite(req, out))
	require.Equal(t, "42", written["X-Quota"])
	require.NotContains(t, written, "X-Hidden")
	require.Equal(t, StateResponseEnriched, req.State())
}

func TestOnRequestCompleteClearsStoreAndTeardownState(t *testing.T) {
	r := newTestRunner(t, nil, nil)
	req, _ := r.OnRequestReceived(context.Background(), "/x", fieldkit.InboundSurfaces{})
	req.Store.Put("a", "1")

	r.OnRequestComplete(req)
	require.Equal(t, 0, req.Store.Size())
	require.Equal(t, StateTeardown, req.State())
}

func unsignedJWTFor(payloadJSON string) string {
	b64 := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	return b64(`{"alg":"none","typ":"JWT"}`) + "." + b64(payloadJSON) + "."
}
