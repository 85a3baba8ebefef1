// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package tokencache

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func unsignedJWT(payloadJSON string) string {
	header := b64url(`{"alg":"none","typ":"JWT"}`)
	payload := b64url(payloadJSON)
	return header + "." + payload + "."
}

func TestCacheParseClaimsCachesOnHit(t *testing.T) {
	c := New(8, time.Minute)
	token := unsignedJWT(`{"sub":"u-1"}`)

	first, err := c.ParseClaims(token, fieldkit.ClaimSyntax{})
	require.NoError(t, err)
	sub, ok := first.Claim("sub")
	require.True(t, ok)
	require.Equal(t, "u-1", sub)

	second, err := c.ParseClaims(token, fieldkit.ClaimSyntax{})
	require.NoError(t, err)
	sub, ok = second.Claim("sub")
	require.True(t, ok)
	require.Equal(t, "u-1", sub)
}

func TestCacheParseClaimsPropagatesParseError(t *testing.T) {
	c := New(8, time.Minute)
	_, err := c.ParseClaims("not-a-jwt", fieldkit.ClaimSyntax{})
	require.Error(t, err)
}

func TestCacheParseClaimsHonorsConfiguredSyntax(t *testing.T) {
	c := New(8, time.Minute)
	token := unsignedJWT(`{"org":{"id":"acme"}}`)

	claims, err := c.ParseClaims(token, fieldkit.ClaimSyntax{
		Separator:       "/",
		ArrayIndexOpen:  "(",
		ArrayIndexClose: ")",
	})
	require.NoError(t, err)

	orgID, ok := claims.Claim("org/id")
	require.True(t, ok)
	require.Equal(t, "acme", orgID)

	_, ok = claims.Claim("org.id")
	require.False(t, ok)
}

func TestCacheEvictsLeastRecentlyUsedBeyondSize(t *testing.T) {
	c := New(1, time.Minute)
	tokenA := unsignedJWT(`{"sub":"a"}`)
	tokenB := unsignedJWT(`{"sub":"b"}`)

	_, err := c.ParseClaims(tokenA, fieldkit.ClaimSyntax{})
	require.NoError(t, err)
	_, err = c.ParseClaims(tokenB, fieldkit.ClaimSyntax{})
	require.NoError(t, err)

	require.Equal(t, 1, c.inner.Len())
	_, ok := c.inner.Peek(tokenA)
	require.False(t, ok)
}

func TestNewFallsBackToDefaultsOnNonPositiveArgs(t *testing.T) {
	c := New(0, 0)
	require.NotNil(t, c.inner)
}
