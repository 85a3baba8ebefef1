// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/envoyproxy/reqcontext/internal/fieldkit"
)

// extractPhase runs the extraction algorithm over names in order, collecting
// every still-missing required field instead of stopping at the first one,
// so the host can report the whole list in one 400 body.
func (r *Runner) extractPhase(ctx context.Context, req *Request, names []string, in fieldkit.InboundSurfaces) error {
	var missing []string
	for _, name := range names {
		if ctx.Err() != nil {
			// Cancellation aborts the stage without raising required-field
			// errors.
			return nil
		}
		f, ok := r.Index.Field(name)
		if !ok {
			continue
		}
		if err := r.extractOne(req, f, in); err != nil {
			var fe *fieldkit.Error
			if errors.As(err, &fe) && fe.Kind == fieldkit.KindMissingRequiredField {
				missing = append(missing, fe.Missing...)
			}
		}
	}
	if len(missing) > 0 {
		return fieldkit.NewMissingRequiredField(missing)
	}
	return nil
}

// extractOne runs the fixed extract→fallback→generate→default→transform→
// validate→store order for a single field.
func (r *Runner) extractOne(req *Request, f *fieldkit.Field, in fieldkit.InboundSurfaces) error {
	spec := f.Upstream.Inbound
	if spec == nil {
		return nil
	}

	value, ok, isDefault, err := r.resolveValue(spec, in, 0)
	if err != nil {
		r.logNonFatal("extraction failed", f.Name, err)
	}
	if !ok {
		if spec.Required {
			return fieldkit.NewMissingRequiredField([]string{f.Name})
		}
		return nil
	}

	if !isDefault && spec.Transformation != fieldkit.TransformNone {
		transformed, terr := fieldkit.ApplyTransformation(value, spec.Transformation, spec.TransformExpression, req.Store.Lookup())
		if terr != nil {
			r.logNonFatal("transform failed", f.Name, terr)
			if spec.Required {
				return fieldkit.NewMissingRequiredField([]string{f.Name})
			}
			return nil
		}
		value = transformed
	}

	if !isDefault && spec.ValidationPattern != "" {
		matched, verr := fieldkit.ValidatePattern(value, spec.ValidationPattern)
		if verr != nil {
			r.logNonFatal("validation pattern invalid", f.Name, verr)
		}
		if verr != nil || !matched {
			if spec.Required {
				return fieldkit.NewMissingRequiredField([]string{f.Name})
			}
			return nil
		}
	}

	req.Store.Put(f.Name, value)
	return nil
}

// resolveValue walks extract → fallback chain → generator → default. The
// returned isDefault flag tells the caller to skip transform/validate.
func (r *Runner) resolveValue(spec *fieldkit.ExtractionSpec, in fieldkit.InboundSurfaces, depth int) (value string, ok bool, isDefault bool, err error) {
	if depth > fieldkit.MaxFallbackDepth {
		return "", false, false, errors.New("pipeline: fallback chain exceeds max depth")
	}

	value, ok, err = fieldkit.ExtractFromSurface(spec, in)
	if err == nil && ok {
		return value, true, false, nil
	}

	if spec.Fallback != nil {
		fv, fok, fdef, ferr := r.resolveValue(spec.Fallback, in, depth+1)
		if fok {
			return fv, true, fdef, nil
		}
		if ferr != nil {
			err = ferr
		}
	}

	if spec.GenerateIfAbsent {
		generated, genErr := fieldkit.Generate(spec.Generator, r.Clock, r.Seq)
		if genErr == nil {
			return generated, true, false, nil
		}
		err = genErr
	}

	if spec.DefaultValue != "" {
		return spec.DefaultValue, true, true, nil
	}

	return "", false, false, err
}

func (r *Runner) logNonFatal(msg, field string, err error) {
	r.logger().Debug(msg, slog.String("field", field), slog.Any("err", err))
}
