// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time; tests substitute a fixed clock. Defaults
// to time.Now, so request IDs are minted at call time rather than at
// config-load time.
type Clock func() time.Time

// Generate produces a value for generate_if_absent's Generator enum. UUID
// generation uses google/uuid's NewString() for request identifiers.
func Generate(g Generator, clock Clock, seq *atomic.Uint64) (string, error) {
	if clock == nil {
		clock = time.Now
	}
	switch g {
	case GeneratorUUID:
		return uuid.NewString(), nil
	case GeneratorULID:
		return ulidLike(clock()), nil
	case GeneratorTimestamp:
		return strconv.FormatInt(clock().UnixMilli(), 10), nil
	case GeneratorSequence:
		if seq == nil {
			return "", wrapf(KindExtractionFailed, "", fmt.Errorf("sequence generator requires a counter"), "")
		}
		return strconv.FormatUint(seq.Add(1), 10), nil
	case GeneratorRandom:
		return randomHex(16)
	case GeneratorNanoID:
		return nanoID(21)
	default:
		return "", wrapf(KindExtractionFailed, "", fmt.Errorf("unknown generator %q", g), "")
	}
}

// ulidLike produces a lexicographically-sortable, Crockford base32 ID made of
// a millisecond timestamp prefix and random suffix. It is "ULID-like" rather
// than a strict ULID implementation: a dedicated ULID library has no other
// use in this module, so the core's small generator set stays on stdlib
// crypto/rand + encoding/base32 rather than adding a dependency for one enum
// value (see DESIGN.md).
func ulidLike(t time.Time) string {
	var buf [10]byte
	ms := uint64(t.UnixMilli())
	for i := 5; i >= 0; i-- {
		buf[i] = byte(ms & 0xff)
		ms >>= 8
	}
	_, _ = rand.Read(buf[6:])
	enc := base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)
	return enc.EncodeToString(buf[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", wrapf(KindExtractionFailed, "", err, "random generator")
	}
	return hex.EncodeToString(buf), nil
}

const nanoIDAlphabet = "useandom26T198340PX75pxJACKVERYMINDBUSHWOLF_GHIJKLMNOPQRSTUVWXYZ"

func nanoID(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", wrapf(KindExtractionFailed, "", err, "nanoid generator")
	}
	out := make([]byte, size)
	for i, b := range buf {
		out[i] = nanoIDAlphabet[int(b)%len(nanoIDAlphabet)]
	}
	return string(out), nil
}
