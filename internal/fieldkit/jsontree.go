// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"encoding/json"
	"fmt"
)

// JSONTree is a reference BodySource implementation that walks a generic
// JSON value. Hosts that already have a parsed body tree of their own (e.g.
// from a framework's request binder) can implement BodySource directly
// instead of using this type.
type JSONTree struct {
	root any
}

// ParseJSONTree decodes data as a JSON tree. A non-JSON body should be
// converted to a JSON tree by the host's own deserializer before reaching
// here; ParseJSONTree itself only handles JSON.
func ParseJSONTree(data []byte) (*JSONTree, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, wrapf(KindExtractionFailed, "", err, "parse body as JSON")
	}
	return &JSONTree{root: root}, nil
}

// BodyField walks a dotted/array-indexed path (the same grammar as
// ClaimSource.Claim) against the decoded tree.
func (t *JSONTree) BodyField(path string) (string, bool) {
	if t == nil || path == "" {
		return "", false
	}
	cur := t.root
	for _, segment := range splitPath(path) {
		name, index, hasIndex := splitIndex(segment)
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		v, ok := m[name]
		if !ok {
			return "", false
		}
		if hasIndex {
			arr, ok := v.([]any)
			if !ok || index < 0 || index >= len(arr) {
				return "", false
			}
			v = arr[index]
		}
		cur = v
	}
	return claimToString(cur)
}

// SetBodyField writes value at path, creating intermediate object levels as
// needed. It does not create array elements; a path segment with an index
// must already exist in the tree.
func (t *JSONTree) SetBodyField(path, value string) error {
	if t == nil {
		return fmt.Errorf("fieldkit: nil JSONTree")
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("fieldkit: empty body field path")
	}
	if t.root == nil {
		t.root = map[string]any{}
	}
	cur := t.root
	for i, segment := range segments {
		name, index, hasIndex := splitIndex(segment)
		m, ok := cur.(map[string]any)
		if !ok {
			return fmt.Errorf("fieldkit: path segment %q is not an object", segment)
		}
		last := i == len(segments)-1
		if hasIndex {
			arr, ok := m[name].([]any)
			if !ok || index < 0 || index >= len(arr) {
				return fmt.Errorf("fieldkit: array index out of range at %q", segment)
			}
			if last {
				arr[index] = value
				return nil
			}
			cur = arr[index]
			continue
		}
		if last {
			m[name] = value
			return nil
		}
		next, ok := m[name].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[name] = next
		}
		cur = next
	}
	return nil
}

// Marshal serializes the tree back to JSON, for a host that needs to write a
// mutated body back out after enrichment.
func (t *JSONTree) Marshal() ([]byte, error) {
	b, err := json.Marshal(t.root)
	if err != nil {
		return nil, wrapf(KindPropagationFailed, "", err, "marshal body tree")
	}
	return b, nil
}

// splitIndex splits "items[1]" into ("items", 1, true) using the default
// "["/"]" bracket pair, the same rule jwtClaims.splitIndex applies.
func splitIndex(segment string) (string, int, bool) {
	j := &jwtClaims{arrOpen: "[", arrClose: "]"}
	return j.splitIndex(segment)
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out = append(out, path[start:i])
			start = i + 1
		}
	}
	out = append(out, path[start:])
	return out
}
