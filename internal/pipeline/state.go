// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package pipeline implements the five-stage request lifecycle that drives
// fieldkit's source handlers, transformer, masker, and context store against
// a single HTTP request, plus the state machine tracking where a request
// sits in that lifecycle.
package pipeline

import "sync"

// State is one node of the per-request state machine.
type State int

const (
	StateInit State = iota
	StatePreAuthExtracted
	StatePostAuthExtracted
	StateBodyExtracted
	StateController
	StateOutPropagated
	StateOutCaptured
	StateResponseEnriched
	StateTeardown
	StateError400
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StatePreAuthExtracted:
		return "PRE_AUTH_EXTRACTED"
	case StatePostAuthExtracted:
		return "POST_AUTH_EXTRACTED"
	case StateBodyExtracted:
		return "BODY_EXTRACTED"
	case StateController:
		return "CONTROLLER"
	case StateOutPropagated:
		return "OUT_PROPAGATED"
	case StateOutCaptured:
		return "OUT_CAPTURED"
	case StateResponseEnriched:
		return "RESPONSE_ENRICHED"
	case StateTeardown:
		return "TEARDOWN"
	case StateError400:
		return "ERROR_400"
	default:
		return "UNKNOWN"
	}
}

// scope tracks one request's current state under its own small mutex,
// separate from the fieldkit.Store's mutex since state transitions happen at
// stage boundaries, not on every field read/write.
type scope struct {
	mu    sync.Mutex
	state State
}

func (s *scope) get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves to "to" unconditionally; the pipeline's stage methods are
// the only callers. Stage order is not checked here or in the Runner: every
// stage after the first takes the *Request returned by stage 1, so calling
// the hooks in order is the host's job. MissingRequiredField short-circuits
// to StateError400 from any state.
func (s *scope) transition(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
}
