// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package config

import (
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// Load parses a YAML or JSON request-context document. It round-trips
// through encoding/json via sigs.k8s.io/yaml so one set of json-tagged
// structs serves both formats without a second parser.
//
// Load only parses; reading the file, watching it for changes, and wiring it
// into a host's dependency-injection container are out of scope.
func Load(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return &doc, nil
}
