// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package outbound

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
	"github.com/envoyproxy/reqcontext/internal/reqscope"
)

// LoggingTransport is the innermost filter: it snapshots the logging-fields
// projection of the ambient store and attaches it to the request-out and
// response-in log lines for the call.
//
// An outbound HTTP call has no long-lived scope to attach a mutated logger
// to the way a request handler might, so each log line here carries the
// snapshotted fields directly as structured slog.Attrs — the MDC projection
// becomes per-line attributes rather than a mutable thread-local.
type LoggingTransport struct {
	Next  http.RoundTripper
	Index *fieldkit.Index
	Log   *slog.Logger
}

func (t *LoggingTransport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

func (t *LoggingTransport) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	attrs := t.mdcAttrs(req)
	start := time.Now()

	t.logger().Debug("outbound request",
		append(attrs, slog.String("method", req.Method), slog.String("url", req.URL.String()))...)

	res, err := t.next().RoundTrip(req)

	elapsed := time.Since(start)
	if err != nil {
		t.logger().Error("outbound request failed",
			append(attrs, slog.String("method", req.Method), slog.Duration("elapsed", elapsed), slog.Any("err", err))...)
		return res, err
	}

	logFn := t.logger().Info
	switch {
	case res.StatusCode >= 500:
		logFn = t.logger().Error
	case res.StatusCode >= 400:
		logFn = t.logger().Warn
	}
	logFn("outbound response",
		append(attrs, slog.Int("status", res.StatusCode), slog.Duration("elapsed", elapsed))...)

	return res, nil
}

// mdcAttrs projects the ambient store through Index.LoggingFields(), using
// each field's configured MDC key name when one was set.
func (t *LoggingTransport) mdcAttrs(req *http.Request) []any {
	store, ok := reqscope.From(req.Context())
	if !ok {
		return nil
	}
	fields := t.Index.LoggingFields()
	attrs := make([]any, 0, len(fields))
	for _, name := range fields {
		value, ok := store.GetMaskedOrOriginal(name)
		if !ok {
			continue
		}
		key := name
		if mdcKey, ok := t.Index.MDCKey(name); ok && mdcKey != "" {
			key = mdcKey
		}
		attrs = append(attrs, slog.String(key, value))
	}
	return attrs
}
