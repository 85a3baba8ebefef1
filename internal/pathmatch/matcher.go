// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package pathmatch provides a ready-made implementation of the URL pattern
// matcher capability a host must inject for PATH-sourced fields: a PATH
// source requires a URL pattern containing a placeholder for the field, and
// match extracts the named segment. It is not a dependency of
// internal/fieldkit or internal/pipeline, which only consume the
// already-resolved fieldkit.InboundSurfaces.Path function — a host is free
// to supply that function from any router it likes.
package pathmatch

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Matcher matches an *http.Request against a set of registered path
// templates and exposes matched path variables, built on gorilla/mux.
type Matcher struct {
	router *mux.Router
}

// New creates an empty Matcher.
func New() *Matcher {
	return &Matcher{router: mux.NewRouter()}
}

// Register adds a path template, e.g. "/orders/{orderId}" or
// "/tenants/{tenantId}/users/{userId}", using gorilla/mux's placeholder
// syntax.
func (m *Matcher) Register(pattern string) {
	m.router.NewRoute().Path(pattern)
}

// Match returns a fieldkit.InboundSurfaces.Path-compatible lookup function
// for r's path variables if any registered template matches, and false
// otherwise.
func (m *Matcher) Match(r *http.Request) (func(name string) (string, bool), bool) {
	var match mux.RouteMatch
	if !m.router.Match(r, &match) {
		return nil, false
	}
	vars := match.Vars
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}, true
}
