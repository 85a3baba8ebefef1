// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

// Well-known context field names backing the core tracing headers:
// X-Request-Id is always sent outbound when present in context, and
// X-Correlation-Id is sent when present. A field configuration is expected
// to populate these two names (typically via source=HEADER with
// generate_if_absent for FieldRequestID); the outbound propagation filter
// reads them by this exact name regardless of how they were populated.
const (
	FieldRequestID     = "requestId"
	FieldCorrelationID = "correlationId"
)
