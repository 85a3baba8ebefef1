// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

// Package fieldkit implements the field configuration model, the source
// handler registry, the transform/validate/mask pipeline, the per-request
// context store, and the precomputed field index described by the core's
// data model.
package fieldkit

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the class of error a field operation failed with.
type Kind int

const (
	// KindExtractionFailed means a source handler returned an error while reading a surface.
	KindExtractionFailed Kind = iota
	// KindTransformFailed means a canonical transform could not be applied to the extracted value.
	KindTransformFailed
	// KindValidationFailed means the validation_pattern did not match the whole value.
	KindValidationFailed
	// KindMissingRequiredField means a required field had no value after fallback, generator, and default.
	KindMissingRequiredField
	// KindBodyBufferFailed means the capture filter could not buffer a downstream response body.
	KindBodyBufferFailed
	// KindPropagationFailed means an outbound enrichment for one field failed; propagation is best-effort.
	KindPropagationFailed
)

func (k Kind) String() string {
	switch k {
	case KindExtractionFailed:
		return "ExtractionFailed"
	case KindTransformFailed:
		return "TransformFailed"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindMissingRequiredField:
		return "MissingRequiredField"
	case KindBodyBufferFailed:
		return "BodyBufferFailed"
	case KindPropagationFailed:
		return "PropagationFailed"
	default:
		return "Unknown"
	}
}

// Error is the single error type all field operations return. It carries the
// field name (empty for errors not tied to one field) and an optional wrapped
// cause, and implements errors.Is/As via Unwrap so callers can match on Kind
// with errors.Is(err, &fieldkit.Error{Kind: fieldkit.KindValidationFailed}) or
// narrow with a type switch.
type Error struct {
	Kind  Kind
	Field string
	Err   error

	// Missing is only populated on KindMissingRequiredField and lists every
	// required field name still absent after stage 1/2 extraction, so the
	// host can render the full 400 body in one shot.
	Missing []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if len(e.Missing) > 0 {
		b.WriteString(" missing=[")
		b.WriteString(strings.Join(e.Missing, ","))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, letting callers
// write errors.Is(err, &fieldkit.Error{Kind: fieldkit.KindMissingRequiredField}).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// NewMissingRequiredField builds the terminal error for the stage 1/2
// short-circuit: required fields still absent after fallback, generator,
// and default.
func NewMissingRequiredField(names []string) *Error {
	return &Error{Kind: KindMissingRequiredField, Missing: names}
}

func wrapf(kind Kind, field string, cause error, format string, args ...any) *Error {
	if format != "" {
		cause = fmt.Errorf(format+": %w", append(args, cause)...)
	}
	return &Error{Kind: kind, Field: field, Err: cause}
}
