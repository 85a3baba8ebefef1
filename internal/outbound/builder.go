// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package outbound

import (
	"log/slog"
	"net/http"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// Builder constructs *http.Client values with the three outbound filters
// chained in request-out order propagation -> capture -> logging. Builders
// are cheap to Clone — a host keeps one long-lived Builder per logical
// target and clones it to add per-call customization (a system tag, extra
// headers via a wrapped base transport) without re-deriving the filter
// chain.
type Builder struct {
	index *fieldkit.Index
	log   *slog.Logger

	base http.RoundTripper

	propagate bool
	capture   bool
	logging   bool

	systemID     string
	maxBodyBytes int64
	cookieAttrs  fieldkit.CookieAttrs
}

// NewBuilder constructs a Builder with all three filters enabled against
// idx, the base transport defaulting to http.DefaultTransport.
func NewBuilder(idx *fieldkit.Index, log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		index:     idx,
		log:       log,
		propagate: true,
		capture:   true,
		logging:   true,
	}
}

// WithBaseTransport overrides the innermost http.RoundTripper (e.g. a custom
// *http.Transport with tuned pooling, or a test fake).
func (b *Builder) WithBaseTransport(base http.RoundTripper) *Builder {
	clone := *b
	clone.base = base
	return &clone
}

// WithMaxCaptureBytes overrides the capture filter's body-buffering bound,
// normally sourced from config.Document.MaxCaptureBytes().
func (b *Builder) WithMaxCaptureBytes(n int64) *Builder {
	clone := *b
	clone.maxBodyBytes = n
	return &clone
}

// WithCookieAttrs overrides the global cookie attributes applied to any
// EnrichCookie-targeted downstream.outbound field this builder's clients
// propagate.
func (b *Builder) WithCookieAttrs(attrs fieldkit.CookieAttrs) *Builder {
	clone := *b
	clone.cookieAttrs = attrs
	return &clone
}

// Clone returns an independent copy that shares filter selection and base
// transport but can diverge (e.g. adding a system tag) without mutating b.
func (b *Builder) Clone() *Builder {
	clone := *b
	return &clone
}

// Create builds a generic client with no extSysIds gate engaged.
func (b *Builder) Create() *http.Client {
	return &http.Client{Transport: b.chain("")}
}

// CreateForSystem tags the client with systemID so the extSysIds gate on
// downstream.outbound specs applies.
func (b *Builder) CreateForSystem(systemID string) *http.Client {
	return &http.Client{Transport: b.chain(systemID)}
}

// CreateWithSelectiveFilters builds a client engaging only the requested
// subset of filters, e.g. a capture-only client for a health-check call that
// should never receive propagated context.
func (b *Builder) CreateWithSelectiveFilters(propagate, capture, logging bool) *http.Client {
	clone := b.Clone()
	clone.propagate, clone.capture, clone.logging = propagate, capture, logging
	return &http.Client{Transport: clone.chain("")}
}

func (b *Builder) chain(systemID string) http.RoundTripper {
	base := b.base
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = base
	if b.logging {
		rt = &LoggingTransport{Next: rt, Index: b.index, Log: b.log}
	}
	if b.capture {
		rt = &CaptureTransport{Next: rt, Index: b.index, MaxBodyBytes: b.maxBodyBytes, Log: b.log}
	}
	if b.propagate {
		rt = &PropagationTransport{Next: rt, Index: b.index, SystemID: systemID, CookieAttrs: b.cookieAttrs, Log: b.log}
	}
	return rt
}
