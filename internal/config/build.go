// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package config

import (
	"fmt"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// Build projects the parsed field list into a *fieldkit.Index. The capture
// bound is not part of the Index; read it with MaxCaptureBytes. The returned
// Index is process-wide and read-only, ready to hand to a pipeline.Runner.
func (d *Document) Build() (*fieldkit.Index, error) {
	idx, err := fieldkit.Build(d.RequestContext.Fields)
	if err != nil {
		return nil, fmt.Errorf("config: build field index: %w", err)
	}
	return idx, nil
}

// MaxCaptureBytes returns the configured capture bound, or the package
// default when the document left it at zero.
func (d *Document) MaxCaptureBytes() int64 {
	if d.RequestContext.FilterConfig.MaxCaptureBytes > 0 {
		return d.RequestContext.FilterConfig.MaxCaptureBytes
	}
	return DefaultMaxCaptureBytes
}
