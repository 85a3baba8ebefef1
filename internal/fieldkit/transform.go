// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Lookup resolves a previously-stored field's raw value for template
// placeholder substitution. Only fields written earlier in the same pipeline
// pass are visible.
type Lookup func(name string) (string, bool)

// placeholderPattern matches the #fieldName placeholder syntax used by
// CUSTOM transforms and EXPRESSION-valued enrichments. Field names in this
// framework are plain identifiers.
var placeholderPattern = regexp.MustCompile(`#([A-Za-z_][A-Za-z0-9_.]*)`)

// RenderTemplate expands #fieldName placeholders against lookup. Undefined
// placeholders render as empty string — the same rule applies to CUSTOM
// transforms, EXPRESSION-valued enrichments, and condition predicates. This
// is a closed substitution grammar, not a general expression language.
func RenderTemplate(expr string, lookup Lookup) string {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}
	return placeholderPattern.ReplaceAllStringFunc(expr, func(m string) string {
		name := m[1:]
		if v, ok := lookup(name); ok {
			return v
		}
		return ""
	})
}

// ApplyTransformation applies exactly one canonical transform. It is only
// called once absence/default has been resolved by the caller (stage
// processing owns the "skip if is_default" rule).
func ApplyTransformation(value string, t Transformation, customExpr string, lookup Lookup) (string, error) {
	switch t {
	case TransformNone:
		return value, nil
	case TransformUppercase:
		return strings.ToUpper(value), nil
	case TransformLowercase:
		return strings.ToLower(value), nil
	case TransformTrim:
		return strings.TrimSpace(value), nil
	case TransformBase64Encode:
		// Standard alphabet, no wrapping.
		return base64.StdEncoding.EncodeToString([]byte(value)), nil
	case TransformBase64Decode:
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", wrapf(KindTransformFailed, "", err, "base64 decode")
		}
		return string(decoded), nil
	case TransformURLEncode:
		// UTF-8 percent-encoding.
		return url.QueryEscape(value), nil
	case TransformURLDecode:
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return "", wrapf(KindTransformFailed, "", err, "url decode")
		}
		return decoded, nil
	case TransformHashSHA256:
		sum := sha256.Sum256([]byte(value))
		// Lowercase hex.
		return fmt.Sprintf("%x", sum), nil
	case TransformCustom:
		return RenderTemplate(customExpr, lookup), nil
	default:
		return "", wrapf(KindTransformFailed, "", fmt.Errorf("unknown transformation %q", t), "")
	}
}

// ValidatePattern reports whether value matches pattern in its entirety.
func ValidatePattern(value, pattern string) (bool, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return false, wrapf(KindValidationFailed, "", err, "compile validation_pattern")
	}
	return re.MatchString(value), nil
}

// RenderValueAs encodes value per an enrichment's value_as. EXPRESSION
// resolves #name placeholders via lookup before any further encoding is
// applied; all other kinds operate directly on value.
func RenderValueAs(value string, kind ValueAs, lookup Lookup) (string, error) {
	switch kind {
	case "", ValueString:
		return value, nil
	case ValueExpression:
		return RenderTemplate(value, lookup), nil
	case ValueBase64:
		return base64.StdEncoding.EncodeToString([]byte(value)), nil
	case ValueURLEncoded:
		return url.QueryEscape(value), nil
	case ValueJSONArray:
		// A scalar wraps as a single-element array, JSON-string-escaped.
		b, err := jsonMarshalString(value)
		if err != nil {
			return "", err
		}
		return "[" + b + "]", nil
	case ValueJSONObject:
		b, err := jsonMarshalString(value)
		if err != nil {
			return "", err
		}
		return `{"value":` + b + `}`, nil
	case ValueNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return "", wrapf(KindValidationFailed, "", err, "NUMBER value_as round-trip")
		}
		return value, nil
	case ValueBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return "", wrapf(KindValidationFailed, "", err, "BOOLEAN value_as round-trip")
		}
		return value, nil
	default:
		return "", wrapf(KindValidationFailed, "", fmt.Errorf("unknown value_as %q", kind), "")
	}
}

// jsonMarshalString produces the JSON-string-escaped form of s without
// pulling in encoding/json for a single scalar, mirroring how a JSON encoder
// would render a bare string value.
func jsonMarshalString(s string) (string, error) {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String(), nil
}

// ConditionTrue evaluates a simple template predicate: truthy if, after
// placeholder substitution, the result is non-empty and not the literal
// string "false".
func ConditionTrue(condition string, lookup Lookup) bool {
	if condition == "" {
		return true
	}
	rendered := RenderTemplate(condition, lookup)
	return rendered != "" && rendered != "false"
}
