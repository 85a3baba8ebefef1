// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import "github.com/envoyproxy/reqcontext/internal/fieldkit"

// Request is the per-request handle a host carries across the five stage
// calls. Its Store is what internal/outbound's filters and
// internal/observability's pull-APIs read through the ambient-context
// primitive in internal/reqscope.
type Request struct {
	Store *fieldkit.Store
	scope scope
}

// State reports where this request currently sits in the state machine.
func (r *Request) State() State { return r.scope.get() }

func newRequest(idx *fieldkit.Index) *Request {
	return &Request{Store: fieldkit.NewStore(idx), scope: scope{state: StateInit}}
}
