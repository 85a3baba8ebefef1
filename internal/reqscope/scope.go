// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package reqscope makes a request's fieldkit.Store ambient to any code
// running on that request's behalf: within the lifetime of a single HTTP
// request, the ambient store reachable from any code on the request's
// behalf is the same one. It does this through explicit context propagation
// via context.WithValue rather than a package-level or goroutine-local
// variable.
package reqscope

import (
	"context"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

type storeKey struct{}

// With attaches store to ctx, making it the ambient store for any code
// derived from the returned context.
func With(ctx context.Context, store *fieldkit.Store) context.Context {
	return context.WithValue(ctx, storeKey{}, store)
}

// From returns the ambient store, if any code upstream called With.
func From(ctx context.Context) (*fieldkit.Store, bool) {
	store, ok := ctx.Value(storeKey{}).(*fieldkit.Store)
	return store, ok
}

// Go runs fn in a new goroutine with ctx's ambient store still reachable via
// From, for request handlers that fan out to a worker pool or spawn
// concurrent outbound calls mid-request. fn receives ctx so cancellation
// still propagates.
func Go(ctx context.Context, fn func(context.Context)) {
	go fn(ctx)
}
