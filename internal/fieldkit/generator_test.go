// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func TestGenerateUUID(t *testing.T) {
	v, err := Generate(GeneratorUUID, nil, nil)
	require.NoError(t, err)
	require.Len(t, v, 36)
}

func TestGenerateTimestamp(t *testing.T) {
	clock := fixedClock(time.UnixMilli(1700000000123))
	v, err := Generate(GeneratorTimestamp, clock, nil)
	require.NoError(t, err)
	require.Equal(t, "1700000000123", v)
}

func TestGenerateSequenceRequiresCounter(t *testing.T) {
	_, err := Generate(GeneratorSequence, nil, nil)
	require.Error(t, err)

	var seq atomic.Uint64
	first, err := Generate(GeneratorSequence, nil, &seq)
	require.NoError(t, err)
	second, err := Generate(GeneratorSequence, nil, &seq)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestGenerateRandomAndNanoIDAreNonEmptyAndDistinct(t *testing.T) {
	r1, err := Generate(GeneratorRandom, nil, nil)
	require.NoError(t, err)
	r2, err := Generate(GeneratorRandom, nil, nil)
	require.NoError(t, err)
	require.NotEqual(t, r1, r2)

	n1, err := Generate(GeneratorNanoID, nil, nil)
	require.NoError(t, err)
	require.Len(t, n1, 21)
}

func TestGenerateULIDIsLexicallySortableByTime(t *testing.T) {
	earlier, err := Generate(GeneratorULID, fixedClock(time.UnixMilli(1000)), nil)
	require.NoError(t, err)
	later, err := Generate(GeneratorULID, fixedClock(time.UnixMilli(999999999999)), nil)
	require.NoError(t, err)
	require.Less(t, earlier, later)
}

func TestGenerateUnknownGenerator(t *testing.T) {
	_, err := Generate(Generator("NOPE"), nil, nil)
	require.Error(t, err)
}
