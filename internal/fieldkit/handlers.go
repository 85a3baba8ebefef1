// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package fieldkit

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimSource exposes parsed JWT claims by dotted/array-index path, for the
// CLAIM source. It is deliberately separated from the bearer token string
// itself: a field with source=TOKEN wants the raw credential, one with
// source=CLAIM wants a single decoded claim.
type ClaimSource interface {
	Claim(path string) (string, bool)
}

// BodySource exposes a parsed request/response body tree for BODY-sourced
// extraction (stage 3) and BODY-targeted enrichment. The host owns parsing
// (JSON, form, or otherwise); fieldkit only walks paths.
type BodySource interface {
	BodyField(path string) (string, bool)
	SetBodyField(path, value string) error
}

// InboundSurfaces bundles every read surface the host exposes for pre-auth
// and post-auth extraction. The key-based funcs are nil-safe to call through
// callGet; a host that doesn't support such a surface (e.g. no session store
// configured) simply leaves that field nil and reads come back absent. A nil
// Token, Claims or Body makes ExtractFromSurface return an error instead.
type InboundSurfaces struct {
	Header    func(name string) (string, bool)
	Query     func(name string) (string, bool)
	Cookie    func(name string) (string, bool)
	Path      func(name string) (string, bool)
	Session   func(key string) (string, bool)
	Attribute func(name string) (string, bool)
	Token     func() (string, bool)
	Claims    ClaimSource
	Form      func(name string) (string, bool)
	Body      BodySource
}

// OutboundSurfaces bundles every write surface for downstream-outbound
// enrichment (on outgoing calls this service makes) and upstream-response
// enrichment (on the response this service sends back).
type OutboundSurfaces struct {
	SetHeader    func(key, value string, override bool)
	SetQuery     func(key, value string, override bool)
	SetCookie    func(key, value string, attrs CookieAttrs, override bool)
	SetPath      func(key, value string, override bool)
	SetAttribute func(key, value string, override bool)
	SetSession   func(key, value string, override bool)
	Body         BodySource
}

// CookieAttrs carries the global cookie attributes configured for this
// framework: Path, Domain, SameSite, HttpOnly, and Secure, applied to every
// cookie this framework writes. A host's SetCookie implementation decides
// how to apply them; writing an outgoing request's Cookie header has no
// attribute surface to honor them against, so only a response's Set-Cookie
// sink typically uses them.
type CookieAttrs struct {
	Path     string
	Domain   string
	SameSite string
	HTTPOnly bool
	Secure   bool
}

// ExtractFromSurface is the framework's single inbound entry point: given a
// source and key, read the raw string from whichever surface the source
// names. ok is false when the surface has no value at that key; err is only
// set for a handler-level failure (e.g. no Claims source wired for a CLAIM
// field).
func ExtractFromSurface(spec *ExtractionSpec, in InboundSurfaces) (string, bool, error) {
	switch spec.Source {
	case SourceHeader:
		// Case-insensitive, first-value-wins: the host's Header func owns both.
		return callGet(in.Header, spec.Key)
	case SourceQuery:
		// Percent-decoded by the host before this call; first-occurrence wins.
		return callGet(in.Query, spec.Key)
	case SourceCookie:
		return callGet(in.Cookie, spec.Key)
	case SourcePath:
		return callGet(in.Path, spec.Key)
	case SourceSession:
		return callGet(in.Session, spec.Key)
	case SourceAttribute:
		return callGet(in.Attribute, spec.Key)
	case SourceForm:
		return callGet(in.Form, spec.Key)
	case SourceToken:
		if in.Token == nil {
			return "", false, wrapf(KindExtractionFailed, "", fmt.Errorf("no bearer token source wired"), "")
		}
		v, ok := in.Token()
		return v, ok, nil
	case SourceClaim:
		if in.Claims == nil {
			return "", false, wrapf(KindExtractionFailed, "", fmt.Errorf("no claim source wired"), "")
		}
		v, ok := in.Claims.Claim(spec.ClaimPath)
		return v, ok, nil
	case SourceBody:
		if in.Body == nil {
			return "", false, wrapf(KindExtractionFailed, "", fmt.Errorf("no body source wired"), "")
		}
		v, ok := in.Body.BodyField(spec.Key)
		return v, ok, nil
	default:
		return "", false, wrapf(KindExtractionFailed, spec.Key, fmt.Errorf("unknown source %q", spec.Source), "")
	}
}

func callGet(fn func(string) (string, bool), key string) (string, bool, error) {
	if fn == nil {
		return "", false, nil
	}
	v, ok := fn(key)
	return v, ok, nil
}

// EnrichSurface is the framework's single outbound entry point: write value
// to whichever surface spec.EnrichAs names, honoring override (add-if-
// absent-else-replace-if-override). cookie carries the global cookie
// attribute config applied whenever EnrichAs is EnrichCookie; every other
// surface ignores it. A logger is required only for the SESSION surface's
// no-op path; pass slog.Default() if the caller has none of its own.
func EnrichSurface(spec *EnrichmentSpec, value string, out OutboundSurfaces, cookie CookieAttrs, log *slog.Logger) error {
	switch spec.EnrichAs {
	case EnrichHeader:
		return callSet(out.SetHeader, spec.Key, value, spec.Override)
	case EnrichQuery:
		return callSet(out.SetQuery, spec.Key, value, spec.Override)
	case EnrichCookie:
		if out.SetCookie == nil {
			return nil
		}
		out.SetCookie(spec.Key, value, cookie, spec.Override)
		return nil
	case EnrichPath:
		return callSet(out.SetPath, spec.Key, value, spec.Override)
	case EnrichAttribute:
		return callSet(out.SetAttribute, spec.Key, value, spec.Override)
	case EnrichBody:
		if out.Body == nil {
			return wrapf(KindPropagationFailed, spec.Key, fmt.Errorf("no body sink wired"), "")
		}
		if err := out.Body.SetBodyField(spec.Key, value); err != nil {
			return wrapf(KindPropagationFailed, spec.Key, err, "set body field")
		}
		return nil
	case EnrichSession:
		// A SESSION enrichment handler may be omitted entirely. Rather than
		// silently succeeding (which would hide a config author's mistaken
		// expectation that the value landed somewhere), log when the write
		// had nowhere to go.
		if out.SetSession == nil {
			if log == nil {
				log = slog.Default()
			}
			log.Debug("session enrichment has no sink wired", "key", spec.Key)
			return nil
		}
		return callSet(out.SetSession, spec.Key, value, spec.Override)
	default:
		return wrapf(KindPropagationFailed, spec.Key, fmt.Errorf("unknown enrich_as %q", spec.EnrichAs), "")
	}
}

func callSet(fn func(key, value string, override bool), key, value string, override bool) error {
	if fn == nil {
		return nil
	}
	fn(key, value, override)
	return nil
}

// jwtClaims is the ClaimSource built on golang-jwt/jwt/v5, parsing a bearer
// token's claims without verifying the signature — signature verification is
// an external collaborator's job, and this framework only ever reads claims
// already trusted by an upstream authenticator.
type jwtClaims struct {
	claims    jwt.MapClaims
	separator string
	arrOpen   string
	arrClose  string
}

// ClaimSyntax names the path-traversal syntax for CLAIM sources: the
// separator between path segments and the bracket pair marking an array
// index. An empty field falls back to the default "."/"["/"]".
type ClaimSyntax struct {
	Separator       string
	ArrayIndexOpen  string
	ArrayIndexClose string
}

// ParseClaimsUnverified decodes a bearer token's claims without checking its
// signature or expiry, for use as an InboundSurfaces.Claims source. It uses
// the default "."/"["/"]" claim-path syntax; a host with a configured
// ClaimSyntax should call ParseClaimsUnverifiedWithSyntax instead.
func ParseClaimsUnverified(bearerToken string) (ClaimSource, error) {
	return ParseClaimsUnverifiedWithSyntax(bearerToken, ClaimSyntax{})
}

// ParseClaimsUnverifiedWithSyntax is ParseClaimsUnverified with an
// explicit ClaimSyntax, for hosts whose source-configuration.claim block
// overrides the default separator or bracket pair.
func ParseClaimsUnverifiedWithSyntax(bearerToken string, syntax ClaimSyntax) (ClaimSource, error) {
	token, _, err := jwt.NewParser().ParseUnverified(bearerToken, jwt.MapClaims{})
	if err != nil {
		return nil, wrapf(KindExtractionFailed, "", err, "parse JWT claims")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, wrapf(KindExtractionFailed, "", fmt.Errorf("unexpected claims type %T", token.Claims), "")
	}
	sep, open, close_ := syntax.Separator, syntax.ArrayIndexOpen, syntax.ArrayIndexClose
	if sep == "" {
		sep = "."
	}
	if open == "" {
		open = "["
	}
	if close_ == "" {
		close_ = "]"
	}
	return &jwtClaims{claims: claims, separator: sep, arrOpen: open, arrClose: close_}, nil
}

// Claim walks a path with optional array-index segments, e.g.
// "realm_access.roles[0]" or "org.id" using the configured separator and
// bracket pair.
func (j *jwtClaims) Claim(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	var cur any = map[string]any(j.claims)
	for _, segment := range strings.Split(path, j.separator) {
		name, index, hasIndex := j.splitIndex(segment)
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

// splitIndex splits "roles[0]" into ("roles", 0, true) using j's configured
// bracket pair; a segment with no opening bracket, or one that doesn't end
// with the configured closing bracket, returns (segment, 0, false).
func (j *jwtClaims) splitIndex(segment string) (string, int, bool) {
	open := strings.Index(segment, j.arrOpen)
	if open < 0 || !strings.HasSuffix(segment, j.arrClose) {
		return segment, 0, false
	}
	idx, err := strconv.Atoi(segment[open+len(j.arrOpen) : len(segment)-len(j.arrClose)])
	if err != nil {
		return segment, 0, false
	}
	return segment[:open], idx, true
}

func claimToString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}
