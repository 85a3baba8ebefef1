// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package tokencache memoizes bearer-token claim parsing, sized and TTL'd
// per the request-context cache block: an LRU with time-based
// eviction. A high-QPS host extracting CLAIM-sourced fields on every
// request would otherwise re-decode and re-walk the same bearer token's
// claim map on every call.
package tokencache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

const (
	defaultSize = 1024
	defaultTTL  = 5 * time.Minute
)

// Cache caches the ClaimSource produced by parsing a bearer token, keyed on
// the raw token string.
type Cache struct {
	inner *lru.LRU[string, fieldkit.ClaimSource]
}

// New builds a Cache. size <= 0 and ttl <= 0 fall back to defaultSize and
// defaultTTL respectively, matching config.CacheConfig's zero-value meaning
// "use the package default".
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{inner: lru.NewLRU[string, fieldkit.ClaimSource](size, nil, ttl)}
}

// ParseClaims returns the cached ClaimSource for bearerToken, parsing it
// with syntax and caching it on a miss. Entries are keyed on the token
// alone, so a hit returns the ClaimSource built with the syntax of the call
// that cached it.
func (c *Cache) ParseClaims(bearerToken string, syntax fieldkit.ClaimSyntax) (fieldkit.ClaimSource, error) {
	if v, ok := c.inner.Get(bearerToken); ok {
		return v, nil
	}
	claims, err := fieldkit.ParseClaimsUnverifiedWithSyntax(bearerToken, syntax)
	if err != nil {
		return nil, err
	}
	c.inner.Add(bearerToken, claims)
	return claims, nil
}
