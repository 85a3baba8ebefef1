// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package config loads the declarative field configuration and the global
// source-configuration/filter-config/cache settings from YAML, and builds
// the resulting fieldkit.Index.
package config

import "github.com/envoyproxy/reqcontext/internal/fieldkit"

// Document is the top-level YAML/JSON document at prefix "request-context".
type Document struct {
	RequestContext RequestContext `json:"request-context"`
}

// RequestContext bundles the field list with the three global settings
// blocks.
type RequestContext struct {
	Fields              []fieldkit.Field    `json:"fields"`
	SourceConfiguration SourceConfiguration `json:"source-configuration,omitempty"`
	FilterConfig        FilterConfig        `json:"filter-config,omitempty"`
	Cache               CacheConfig         `json:"cache,omitempty"`
}

// SourceConfiguration carries per-source-type global defaults.
type SourceConfiguration struct {
	Token   TokenConfig   `json:"token,omitempty"`
	Cookie  CookieConfig  `json:"cookie,omitempty"`
	Session SessionConfig `json:"session,omitempty"`
	Claim   ClaimConfig   `json:"claim,omitempty"`
	Header  HeaderConfig  `json:"header,omitempty"`
}

// TokenConfig names the header the bearer token is read from and the prefix
// stripped before the token string is used (e.g. "Bearer ").
type TokenConfig struct {
	HeaderName string `json:"header-name,omitempty"`
	Prefix     string `json:"prefix,omitempty"`
}

// CookieConfig carries the attributes applied to cookies this framework
// writes via downstream.outbound/upstream.outbound enrich_as: COOKIE. Cookie
// writes honor this global SameSite/HttpOnly/Secure config.
type CookieConfig struct {
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	SameSite string `json:"same-site,omitempty"`
	HTTPOnly bool   `json:"http-only,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
}

// SessionConfig names the key prefix SESSION-sourced fields read and write
// under: the effective session key is this prefix concatenated with the
// field's configured key.
type SessionConfig struct {
	AttributePrefix string `json:"attribute-prefix,omitempty"`
}

// ClaimConfig carries the path-traversal syntax for CLAIM sources: the
// separator between path segments and the bracket pair marking an array
// index.
type ClaimConfig struct {
	Separator        string `json:"separator,omitempty"`
	ArrayIndexOpen   string `json:"array-index-open,omitempty"`
	ArrayIndexClose  string `json:"array-index-close,omitempty"`
}

// HeaderConfig bounds header value length and lists headers this framework
// never extracts regardless of field configuration.
type HeaderConfig struct {
	MaxValueLength int      `json:"max-value-length,omitempty"`
	ExcludeList    []string `json:"exclude-list,omitempty"`
}

// FilterConfig controls the outbound filter chain's placement and scope.
type FilterConfig struct {
	RunBeforeSecurity    bool     `json:"run-before-security,omitempty"`
	Order                []string `json:"order,omitempty"`
	IncludePatterns      []string `json:"include-patterns,omitempty"`
	ExcludePatterns      []string `json:"exclude-patterns,omitempty"`
	PropagateToAsync     bool     `json:"propagate-to-async,omitempty"`
	ContextAttributeKey  string   `json:"context-attribute-key,omitempty"`
	// MaxCaptureBytes bounds how much of a downstream response body the
	// capture filter buffers before giving up. Zero means the package
	// default of 1 MiB.
	MaxCaptureBytes int64 `json:"max-capture-bytes,omitempty"`
}

// CacheConfig controls the parsed-token cache: an LRU with time-based
// eviction, sized and TTL'd per these settings.
type CacheConfig struct {
	Enabled    bool `json:"enabled,omitempty"`
	TTLSeconds int  `json:"ttl-seconds,omitempty"`
	MaxSize    int  `json:"max-size,omitempty"`
}

// DefaultMaxCaptureBytes is applied when FilterConfig.MaxCaptureBytes is zero.
const DefaultMaxCaptureBytes int64 = 1 << 20
