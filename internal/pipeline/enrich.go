// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"log/slog"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// enrichOne reads a field's raw value from the context store, skips it if
// absent or its condition is false, renders value_as, then dispatches to the
// enrich_upstream_response surface. Override semantics for
// add-if-absent-else-replace are the host's SetHeader/etc. implementation's
// responsibility (fieldkit.EnrichSurface only forwards the override flag).
func (r *Runner) enrichOne(f *fieldkit.Field, req *Request, out fieldkit.OutboundSurfaces) {
	spec := f.Upstream.Outbound
	value, ok := req.Store.Get(f.Name)
	if !ok {
		return
	}
	lookup := req.Store.Lookup()
	if !fieldkit.ConditionTrue(spec.Condition, lookup) {
		return
	}
	rendered, err := fieldkit.RenderValueAs(value, spec.ValueAs, lookup)
	if err != nil {
		r.logger().Error("upstream response enrichment render failed", slog.String("field", f.Name), slog.Any("err", err))
		return
	}
	if err := fieldkit.EnrichSurface(spec, rendered, out, r.CookieAttrs, r.logger()); err != nil {
		r.logger().Error("upstream response enrichment failed", slog.String("field", f.Name), slog.Any("err", err))
	}
}
