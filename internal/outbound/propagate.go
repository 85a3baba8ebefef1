// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package outbound implements the three composable http.RoundTripper
// filters applied to every outgoing call the host makes through a
// builder-produced client, and the client-builder API. Each filter owns one
// concern — propagation, capture, logging — with a shared read-only
// fieldkit.Index and a logger injected at construction.
package outbound

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
	"github.com/envoyproxy/reqcontext/internal/reqscope"
)

// PropagationTransport is the request-out filter: it copies context fields
// from the request-scoped store onto the outgoing request before it leaves
// the process.
type PropagationTransport struct {
	Next        http.RoundTripper
	Index       *fieldkit.Index
	SystemID    string // empty: no extSysIds gate applies
	CookieAttrs fieldkit.CookieAttrs
	Log         *slog.Logger
}

func (t *PropagationTransport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

func (t *PropagationTransport) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper.
func (t *PropagationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	store, ok := reqscope.From(req.Context())
	if !ok {
		// No request-scoped store in context: pass the request through
		// unchanged rather than erroring.
		return t.next().RoundTrip(req)
	}

	if v, ok := store.Get(fieldkit.FieldRequestID); ok {
		req.Header.Set("X-Request-Id", v)
	}
	if v, ok := store.Get(fieldkit.FieldCorrelationID); ok {
		req.Header.Set("X-Correlation-Id", v)
	}

	lookup := store.Lookup()
	out := requestSurfaces(req)
	for _, name := range t.Index.DownstreamOutbound() {
		f, ok := t.Index.Field(name)
		if !ok {
			continue
		}
		spec := f.Downstream.Outbound
		if t.SystemID != "" && len(spec.ExtSysIds) > 0 && !slices.Contains(spec.ExtSysIds, t.SystemID) {
			continue
		}
		value, ok := store.Get(name)
		if !ok {
			continue
		}
		rendered, err := fieldkit.RenderValueAs(value, spec.ValueAs, lookup)
		if err != nil {
			t.logger().Error("downstream propagation render failed", slog.String("field", name), slog.Any("err", err))
			continue
		}
		if !fieldkit.ConditionTrue(spec.Condition, lookup) {
			continue
		}
		// Propagation is best-effort: on exception, log and continue rather
		// than failing the outgoing call.
		if err := fieldkit.EnrichSurface(spec, rendered, out, t.CookieAttrs, t.logger()); err != nil {
			t.logger().Error("downstream propagation failed", slog.String("field", name), slog.Any("err", err))
		}
	}

	return t.next().RoundTrip(req)
}

// requestSurfaces adapts an outgoing *http.Request into fieldkit.OutboundSurfaces.
func requestSurfaces(req *http.Request) fieldkit.OutboundSurfaces {
	return fieldkit.OutboundSurfaces{
		SetHeader: func(key, value string, override bool) {
			if override {
				req.Header.Set(key, value)
			} else {
				req.Header.Add(key, value)
			}
		},
		SetQuery: func(key, value string, override bool) {
			q := req.URL.Query()
			if override {
				q.Set(key, value)
			} else {
				q.Add(key, value)
			}
			req.URL.RawQuery = q.Encode()
		},
		SetCookie: func(key, value string, _ fieldkit.CookieAttrs, override bool) {
			// A request's Cookie header is a bare name=value list; Path/
			// Domain/SameSite/HttpOnly/Secure are Set-Cookie response
			// attributes and have no outgoing-request analogue, so the
			// global cookie config is a no-op here.
			setRequestCookie(req, key, value, override)
		},
		SetPath: func(key, value string, override bool) {
			placeholder := "{" + key + "}"
			if strings.Contains(req.URL.Path, placeholder) {
				req.URL.Path = strings.ReplaceAll(req.URL.Path, placeholder, value)
			}
		},
		// ATTRIBUTE has no net/http analogue for an outgoing request: a
		// request-scoped attribute map belongs to the host's own request
		// object, not the derived outbound *http.Request. Left nil; C1's
		// EnrichSurface treats a nil setter as a silent no-op (mirroring how
		// HEADER/QUERY do for a host that didn't wire that surface).
	}
}

func setRequestCookie(req *http.Request, name, value string, override bool) {
	if override {
		existing := req.Cookies()
		req.Header.Del("Cookie")
		for _, c := range existing {
			if c.Name == name {
				continue
			}
			req.AddCookie(c)
		}
	}
	req.AddCookie(&http.Cookie{Name: name, Value: value})
}
