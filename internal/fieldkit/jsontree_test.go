// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONTreeBodyField(t *testing.T) {
	tree, err := ParseJSONTree([]byte(`{"order":{"id":"o-1","items":[{"sku":"A"},{"sku":"B"}]},"amount":42.5}`))
	require.NoError(t, err)

	v, ok := tree.BodyField("order.id")
	require.True(t, ok)
	require.Equal(t, "o-1", v)

	v, ok = tree.BodyField("order.items[1].sku")
	require.True(t, ok)
	require.Equal(t, "B", v)

	v, ok = tree.BodyField("amount")
	require.True(t, ok)
	require.Equal(t, "42.5", v)

	_, ok = tree.BodyField("order.items[9].sku")
	require.False(t, ok)

	_, ok = tree.BodyField("nonexistent")
	require.False(t, ok)
}

func TestParseJSONTreeRejectsInvalidJSON(t *testing.T) {
	_, err := ParseJSONTree([]byte(`not json`))
	require.Error(t, err)
}

func TestJSONTreeSetBodyFieldCreatesNestedObjects(t *testing.T) {
	tree, err := ParseJSONTree([]byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, tree.SetBodyField("meta.traceId", "t-1"))

	v, ok := tree.BodyField("meta.traceId")
	require.True(t, ok)
	require.Equal(t, "t-1", v)

	out, err := tree.Marshal()
	require.NoError(t, err)
	require.Contains(t, string(out), `"traceId":"t-1"`)
}

func TestJSONTreeSetBodyFieldArrayElement(t *testing.T) {
	tree, err := ParseJSONTree([]byte(`{"items":[{"sku":"A"}]}`))
	require.NoError(t, err)

	require.NoError(t, tree.SetBodyField("items[0].sku", "Z"))
	v, _ := tree.BodyField("items[0].sku")
	require.Equal(t, "Z", v)

	err = tree.SetBodyField("items[5].sku", "nope")
	require.Error(t, err)
}
