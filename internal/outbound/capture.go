// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package outbound

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
	"github.com/envoyproxy/reqcontext/internal/reqscope"
)

// CaptureTransport is the response-in filter: it extracts downstream.inbound
// fields (headers and, for BODY sources, a buffered-and-restored response
// body) from a downstream call's response and writes them into the ambient
// store for later stages — upstream-response enrichment, logging, metrics —
// to read.
type CaptureTransport struct {
	Next  http.RoundTripper
	Index *fieldkit.Index
	// MaxBodyBytes bounds how much of the response body is buffered for BODY
	// extraction (config.Document.MaxCaptureBytes). Zero falls back to
	// config.DefaultMaxCaptureBytes.
	MaxBodyBytes int64
	Log          *slog.Logger
}

func (t *CaptureTransport) next() http.RoundTripper {
	if t.Next != nil {
		return t.Next
	}
	return http.DefaultTransport
}

func (t *CaptureTransport) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

func (t *CaptureTransport) maxBodyBytes() int64 {
	if t.MaxBodyBytes > 0 {
		return t.MaxBodyBytes
	}
	return 1 << 20
}

// RoundTrip implements http.RoundTripper.
func (t *CaptureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.next().RoundTrip(req)
	if err != nil || res == nil {
		return res, err
	}

	store, ok := reqscope.From(req.Context())
	if !ok {
		return res, nil
	}

	fields := t.Index.DownstreamInbound()
	if len(fields) == 0 {
		return res, nil
	}

	needsBody := false
	for _, name := range fields {
		if f, ok := t.Index.Field(name); ok && f.RequiresBodyCapture() {
			needsBody = true
			break
		}
	}

	var body fieldkit.BodySource
	if needsBody {
		body = t.bufferAndParseBody(res)
	}

	in := fieldkit.InboundSurfaces{
		Header: func(name string) (string, bool) {
			v := res.Header.Get(name)
			if v == "" {
				return "", false
			}
			return v, true
		},
		Body: body,
	}

	for _, name := range fields {
		f, ok := t.Index.Field(name)
		if !ok || f.Downstream.Inbound == nil {
			continue
		}
		value, found, err := fieldkit.ExtractFromSurface(f.Downstream.Inbound, in)
		if err != nil {
			t.logger().Warn("downstream capture failed", slog.String("field", name), slog.Any("err", err))
			continue
		}
		if !found {
			continue
		}
		store.Put(name, value)
	}

	return res, nil
}

// bufferAndParseBody reads up to maxBodyBytes()+1 bytes of res.Body to detect
// truncation and always restores res.Body so the caller's downstream code
// still sees the complete body regardless of parse outcome: a fresh reader
// over the buffered bytes, or, past the bound, those bytes followed by the
// unread rest of the original body. It returns a BodySource over a body that
// fit within the bound. Parse failures are logged and simply yield a nil
// BodySource rather than failing the whole round trip: capture is
// best-effort, like propagation.
func (t *CaptureTransport) bufferAndParseBody(res *http.Response) fieldkit.BodySource {
	if res.Body == nil {
		return nil
	}
	limit := t.maxBodyBytes()
	orig := res.Body
	data, err := io.ReadAll(io.LimitReader(orig, limit+1))

	if int64(len(data)) > limit {
		res.Body = struct {
			io.Reader
			io.Closer
		}{io.MultiReader(bytes.NewReader(data), orig), orig}
		t.logger().Warn("downstream response body exceeded capture bound, skipping body capture",
			slog.Int64("limit", limit))
		return nil
	}
	_ = orig.Close()
	res.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) == 0 {
		return nil
	}

	tree, err := fieldkit.ParseJSONTree(data)
	if err != nil {
		t.logger().Warn("downstream response body is not JSON, skipping body capture", slog.Any("err", err))
		return nil
	}
	return tree
}
