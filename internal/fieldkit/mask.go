// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"strconv"
	"strings"
)

// Mask renders value according to pattern, following four deterministic
// rules in order. Masking follows a small closed set of literal patterns
// since the result must be bit-exact and reproducible across requests for
// the same pattern, not merely stable for one value.
func Mask(value, pattern string) string {
	switch {
	case pattern == "***":
		return "***"
	case strings.HasPrefix(pattern, "*-"):
		n, err := strconv.Atoi(pattern[2:])
		if err != nil || n < 0 {
			return pattern
		}
		if len(value) <= n {
			return pattern
		}
		return "***" + value[len(value)-n:]
	case strings.Contains(pattern, "@") && strings.Contains(value, "@"):
		return "***@***.***"
	default:
		return pattern
	}
}
