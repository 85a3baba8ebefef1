// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFromSurfaceDispatchesBySource(t *testing.T) {
	in := InboundSurfaces{
		Header:    func(k string) (string, bool) { return "header-" + k, true },
		Query:     func(k string) (string, bool) { return "query-" + k, true },
		Cookie:    func(k string) (string, bool) { return "cookie-" + k, true },
		Path:      func(k string) (string, bool) { return "path-" + k, true },
		Session:   func(k string) (string, bool) { return "session-" + k, true },
		Attribute: func(k string) (string, bool) { return "attr-" + k, true },
		Form:      func(k string) (string, bool) { return "form-" + k, true },
		Token:     func() (string, bool) { return "tok-abc", true },
	}

	cases := []struct {
		source Source
		want   string
	}{
		{SourceHeader, "header-k"},
		{SourceQuery, "query-k"},
		{SourceCookie, "cookie-k"},
		{SourcePath, "path-k"},
		{SourceSession, "session-k"},
		{SourceAttribute, "attr-k"},
		{SourceForm, "form-k"},
	}
	for _, c := range cases {
		v, ok, err := ExtractFromSurface(&ExtractionSpec{Source: c.source, Key: "k"}, in)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, c.want, v)
	}

	v, ok, err := ExtractFromSurface(&ExtractionSpec{Source: SourceToken}, in)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok-abc", v)
}

func TestExtractFromSurfaceMissingSourceErrors(t *testing.T) {
	_, _, err := ExtractFromSurface(&ExtractionSpec{Source: SourceToken}, InboundSurfaces{})
	require.Error(t, err)

	_, _, err = ExtractFromSurface(&ExtractionSpec{Source: SourceClaim, ClaimPath: "sub"}, InboundSurfaces{})
	require.Error(t, err)

	_, ok, err := ExtractFromSurface(&ExtractionSpec{Source: SourceHeader, Key: "absent"}, InboundSurfaces{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnrichSurfaceDispatchesByEnrichAs(t *testing.T) {
	var gotHeader, gotCookie string
	var gotAttrs CookieAttrs
	out := OutboundSurfaces{
		SetHeader: func(k, v string, override bool) { gotHeader = k + "=" + v },
		SetCookie: func(k, v string, attrs CookieAttrs, override bool) {
			gotCookie = k + "=" + v
			gotAttrs = attrs
		},
	}
	cookie := CookieAttrs{Path: "/", SameSite: "Strict", Secure: true}

	require.NoError(t, EnrichSurface(&EnrichmentSpec{EnrichAs: EnrichHeader, Key: "X-A"}, "1", out, cookie, nil))
	require.Equal(t, "X-A=1", gotHeader)

	require.NoError(t, EnrichSurface(&EnrichmentSpec{EnrichAs: EnrichCookie, Key: "sid"}, "2", out, cookie, nil))
	require.Equal(t, "sid=2", gotCookie)
	require.Equal(t, cookie, gotAttrs)
}

func TestEnrichSurfaceSessionIsNoOpButDoesNotError(t *testing.T) {
	err := EnrichSurface(&EnrichmentSpec{EnrichAs: EnrichSession, Key: "k"}, "v", OutboundSurfaces{}, CookieAttrs{}, nil)
	require.NoError(t, err)
}

func TestEnrichSurfaceUnknownTargetErrors(t *testing.T) {
	err := EnrichSurface(&EnrichmentSpec{EnrichAs: EnrichAs("NOPE")}, "v", OutboundSurfaces{}, CookieAttrs{}, nil)
	require.Error(t, err)
}

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func unsignedJWT(payloadJSON string) string {
	header := b64url(`{"alg":"none","typ":"JWT"}`)
	payload := b64url(payloadJSON)
	return header + "." + payload + "."
}

func TestParseClaimsUnverifiedAndDottedPathTraversal(t *testing.T) {
	token := unsignedJWT(`{"sub":"u-42","org":{"id":"acme"},"realm_access":{"roles":["admin","viewer"]}}`)

	claims, err := ParseClaimsUnverified(token)
	require.NoError(t, err)

	sub, ok := claims.Claim("sub")
	require.True(t, ok)
	require.Equal(t, "u-42", sub)

	orgID, ok := claims.Claim("org.id")
	require.True(t, ok)
	require.Equal(t, "acme", orgID)

	role, ok := claims.Claim("realm_access.roles[0]")
	require.True(t, ok)
	require.Equal(t, "admin", role)

	_, ok = claims.Claim("realm_access.roles[5]")
	require.False(t, ok)

	_, ok = claims.Claim("nonexistent.path")
	require.False(t, ok)
}

func TestParseClaimsUnverifiedRejectsMalformedToken(t *testing.T) {
	_, err := ParseClaimsUnverified("not-a-jwt")
	require.Error(t, err)
}

func TestParseClaimsUnverifiedWithSyntaxUsesConfiguredSeparatorAndBrackets(t *testing.T) {
	token := unsignedJWT(`{"org":{"id":"acme"},"realm_access":{"roles":["admin","viewer"]}}`)

	claims, err := ParseClaimsUnverifiedWithSyntax(token, ClaimSyntax{
		Separator:       "/",
		ArrayIndexOpen:  "(",
		ArrayIndexClose: ")",
	})
	require.NoError(t, err)

	orgID, ok := claims.Claim("org/id")
	require.True(t, ok)
	require.Equal(t, "acme", orgID)

	role, ok := claims.Claim("realm_access/roles(1)")
	require.True(t, ok)
	require.Equal(t, "viewer", role)

	// The default "." separator no longer applies under this syntax.
	_, ok = claims.Claim("org.id")
	require.False(t, ok)
}
