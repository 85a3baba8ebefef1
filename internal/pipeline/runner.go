// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// Runner drives the five-stage lifecycle against one process-wide
// fieldkit.Index. It is safe for concurrent use by many in-flight requests:
// the Index is read-only and each Request carries its own Store.
type Runner struct {
	Index       *fieldkit.Index
	Exclude     *ExcludeMatcher
	Log         *slog.Logger
	Clock       fieldkit.Clock
	Seq         *atomic.Uint64
	CookieAttrs fieldkit.CookieAttrs
}

// NewRunner builds a Runner. log may be nil, falling back to slog.Default().
func NewRunner(idx *fieldkit.Index, exclude *ExcludeMatcher, log *slog.Logger) *Runner {
	return &Runner{Index: idx, Exclude: exclude, Log: log, Seq: new(atomic.Uint64)}
}

// WithCookieAttrs sets the global cookie attributes applied to every
// EnrichCookie write this Runner makes on upstream-response enrichment.
// Returns r for chaining.
func (r *Runner) WithCookieAttrs(attrs fieldkit.CookieAttrs) *Runner {
	r.CookieAttrs = attrs
	return r
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// OnRequestReceived is stage 1. path is matched against the configured
// exclude_patterns; a match bypasses the pipeline entirely and returns a nil
// *Request — no context is ever created for those paths. A non-nil error is
// always a *fieldkit.Error with Kind == KindMissingRequiredField.
func (r *Runner) OnRequestReceived(ctx context.Context, path string, in fieldkit.InboundSurfaces) (*Request, error) {
	if r.Exclude.Match(path) {
		return nil, nil
	}
	req := newRequest(r.Index)
	if err := r.extractPhase(ctx, req, r.Index.PreAuthInbound(), in); err != nil {
		req.scope.transition(StateError400)
		return req, err
	}
	req.scope.transition(StatePreAuthExtracted)
	return req, nil
}

// OnAuthenticated is stage 2. Called only for requests that completed
// stage 1 (req is non-nil and not in StateError400).
func (r *Runner) OnAuthenticated(ctx context.Context, req *Request, in fieldkit.InboundSurfaces) error {
	if err := r.extractPhase(ctx, req, r.Index.PostAuthInboundNoBody(), in); err != nil {
		req.scope.transition(StateError400)
		return err
	}
	req.scope.transition(StatePostAuthExtracted)
	return nil
}

// OnBodyParsed is stage 3. Skipped (a no-op transition) when no BODY-sourced
// fields are configured or body is nil.
func (r *Runner) OnBodyParsed(ctx context.Context, req *Request, body fieldkit.BodySource) error {
	names := r.Index.PostAuthInboundBody()
	if len(names) == 0 || body == nil {
		req.scope.transition(StateBodyExtracted)
		return nil
	}
	in := fieldkit.InboundSurfaces{Body: body}
	if err := r.extractPhase(ctx, req, names, in); err != nil {
		req.scope.transition(StateError400)
		return err
	}
	req.scope.transition(StateBodyExtracted)
	return nil
}

// OnBeforeResponseWrite is stage 4. Iterates upstream_outbound in index
// order, writing whatever fields resolve to the response surfaces named by
// out.
func (r *Runner) OnBeforeResponseWrite(req *Request, out fieldkit.OutboundSurfaces) error {
	req.scope.transition(StateController)
	for _, name := range r.Index.UpstreamOutbound() {
		f, ok := r.Index.Field(name)
		if !ok {
			continue
		}
		r.enrichOne(f, req, out)
	}
	req.scope.transition(StateResponseEnriched)
	return nil
}

// OnRequestComplete is stage 5, always invoked regardless of how the
// request ended. It clears the context store and moves to the terminal
// TEARDOWN state.
func (r *Runner) OnRequestComplete(req *Request) {
	if req == nil {
		return
	}
	req.Store.Clear()
	req.scope.transition(StateTeardown)
}
