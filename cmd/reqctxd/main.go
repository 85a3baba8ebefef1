// Copyright Envoy AI Gateway Authors
// SPDX-License-Identifier: Apache-2.0
// The full text of the Apache license is available in the LICENSE file at
// the root of the repo.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/envoyproxy/reqcontext/internal/config"
	"github.com/envoyproxy/reqcontext/internal/fieldkit"
	"github.com/envoyproxy/reqcontext/internal/observability"
	"github.com/envoyproxy/reqcontext/internal/outbound"
	"github.com/envoyproxy/reqcontext/internal/pathmatch"
	"github.com/envoyproxy/reqcontext/internal/pipeline"
	"github.com/envoyproxy/reqcontext/internal/reqscope"
	"github.com/envoyproxy/reqcontext/internal/tokencache"
)

func main() {
	f, err := parseAndValidateFlags(os.Args[1:])
	if err != nil {
		slog.Error("parse flags", slog.Any("err", err))
		os.Exit(1)
	}

	log := newLogger(f.logLevel)

	file, err := os.Open(f.configPath)
	if err != nil {
		log.Error("open config", slog.Any("err", err))
		os.Exit(1)
	}
	doc, err := config.Load(file)
	_ = file.Close()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	idx, err := doc.Build()
	if err != nil {
		log.Error("build field index", slog.Any("err", err))
		os.Exit(1)
	}

	exclude, err := pipeline.NewExcludeMatcher(doc.RequestContext.FilterConfig.ExcludePatterns)
	if err != nil {
		log.Error("compile exclude patterns", slog.Any("err", err))
		os.Exit(1)
	}

	cookieAttrs := cookieAttrsFromConfig(doc.RequestContext.SourceConfiguration.Cookie)

	var claimCache *tokencache.Cache
	if cc := doc.RequestContext.Cache; cc.Enabled {
		claimCache = tokencache.New(cc.MaxSize, time.Duration(cc.TTLSeconds)*time.Second)
	}

	sessions := newSessionStore(doc.RequestContext.SourceConfiguration.Session.AttributePrefix)

	runner := pipeline.NewRunner(idx, exclude, log).WithCookieAttrs(cookieAttrs)
	paths := pathmatch.New()
	// Demo placeholder: a real host registers every PATH-sourced field's
	// route template here so its {placeholder} segments resolve.
	paths.Register("/{resource}/{id}")
	clientBuilder := outbound.NewBuilder(idx, log).
		WithMaxCaptureBytes(doc.MaxCaptureBytes()).
		WithCookieAttrs(cookieAttrs)

	mp, shutdownMeter, err := observability.NewMeterProvider()
	if err != nil {
		log.Error("start meter provider", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()
	recorder, err := observability.NewRecorder(mp.Meter("reqctxd"), idx)
	if err != nil {
		log.Error("build metrics recorder", slog.Any("err", err))
		os.Exit(1)
	}

	srv := &server{
		runner:    runner,
		paths:     paths,
		client:    clientBuilder.Create(),
		record:    recorder,
		log:       log,
		tracer:    observability.NoopTracer{},
		sourceCfg:  doc.RequestContext.SourceConfiguration,
		claimCache: claimCache,
		sessions:   sessions,
	}

	httpSrv := &http.Server{Addr: f.addr, Handler: srv}
	log.Info("listening", slog.String("addr", f.addr))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", slog.Any("err", err))
		os.Exit(1)
	}
}

// cookieAttrsFromConfig converts the YAML-parsed cookie block into the
// fieldkit.CookieAttrs threaded through EnrichSurface.
func cookieAttrsFromConfig(c config.CookieConfig) fieldkit.CookieAttrs {
	return fieldkit.CookieAttrs{
		Path:     c.Path,
		Domain:   c.Domain,
		SameSite: c.SameSite,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// server wires pipeline.Runner's five hooks around a single demonstration
// handler, exercising every stage: pre-auth extraction, a stand-in
// authentication step, body extraction, a downstream call through the
// outbound filter chain, and response enrichment.
type server struct {
	runner     *pipeline.Runner
	paths      *pathmatch.Matcher
	client     *http.Client
	record     *observability.Recorder
	log        *slog.Logger
	tracer     observability.Tracer
	sourceCfg  config.SourceConfiguration
	claimCache *tokencache.Cache // nil when request-context.cache.enabled is false
	sessions   *sessionStore
}

// sessionStore is a demonstration SESSION surface: an in-memory map keyed by
// SourceConfiguration.Session.AttributePrefix+key. A real host backs SESSION
// with whatever session store terminates its session cookie (Redis, a signed
// cookie jar, ...); this one exists so a single reqctxd process can exercise
// the SESSION source/enrich_as target end to end.
type sessionStore struct {
	mu     sync.RWMutex
	prefix string
	data   map[string]string
}

func newSessionStore(prefix string) *sessionStore {
	return &sessionStore{prefix: prefix, data: make(map[string]string)}
}

func (s *sessionStore) get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[s.prefix+key]
	return v, ok
}

func (s *sessionStore) set(key, value string, override bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.prefix + key
	if !override {
		if _, exists := s.data[k]; exists {
			return
		}
	}
	s.data[k] = value
}

func (s *server) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in := httpInboundSurfaces(r, s.paths, s.sourceCfg, s.claimCache, s.sessions)

	req, err := s.runner.OnRequestReceived(ctx, r.URL.Path, in)
	if err != nil {
		s.runner.OnRequestComplete(req)
		s.writeMissingFieldError(w, err)
		return
	}
	if req == nil {
		// Excluded path: pipeline bypassed entirely.
		http.NotFound(w, r)
		return
	}
	defer s.runner.OnRequestComplete(req)

	ctx = reqscope.With(ctx, req.Store)
	ctx, span := s.tracer.StartSpan(ctx, "reqctxd.request", req.Store, s.runner.Index, nil)
	defer func() { s.tracer.EndSpan(span, nil) }()

	if err := s.runner.OnAuthenticated(ctx, req, in); err != nil {
		s.writeMissingFieldError(w, err)
		return
	}

	var body fieldkit.BodySource
	if r.Body != nil && r.ContentLength != 0 {
		if tree, parseErr := fieldkit.ParseJSONTree(readBody(r)); parseErr == nil {
			body = tree
		}
	}
	if err := s.runner.OnBodyParsed(ctx, req, body); err != nil {
		s.writeMissingFieldError(w, err)
		return
	}

	downstreamReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://downstream.internal/health", nil)
	if res, err := s.client.Do(downstreamReq); err == nil {
		_ = res.Body.Close()
	}

	out := httpOutboundSurfaces(w, s.sessions)
	_ = s.runner.OnBeforeResponseWrite(req, out)

	s.record.RecordRequest(ctx, req.Store)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *server) writeMissingFieldError(w http.ResponseWriter, err error) {
	var fe *fieldkit.Error
	if errors.As(err, &fe) && fe.Kind == fieldkit.KindMissingRequiredField {
		s.logger().Warn("missing required fields", slog.Any("fields", fe.Missing))
		http.Error(w, fe.Error(), http.StatusBadRequest)
		return
	}
	s.logger().Error("pipeline stage failed", slog.Any("err", err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func readBody(r *http.Request) []byte {
	buf := make([]byte, 0, 1024)
	tmp := make([]byte, 512)
	for {
		n, err := r.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			break
		}
	}
	return buf
}

// httpInboundSurfaces adapts an inbound *http.Request into
// fieldkit.InboundSurfaces, the server-side counterpart of
// internal/outbound's requestSurfaces. cfg supplies the global
// source-configuration block: the header name/prefix TOKEN reads the bearer
// credential from, and the separator/bracket pair CLAIM uses to walk a
// decoded claim path.
func httpInboundSurfaces(r *http.Request, paths *pathmatch.Matcher, cfg config.SourceConfiguration, claimCache *tokencache.Cache, sessions *sessionStore) fieldkit.InboundSurfaces {
	headerName := cfg.Token.HeaderName
	if headerName == "" {
		headerName = "Authorization"
	}
	prefix := cfg.Token.Prefix
	if prefix == "" {
		prefix = "Bearer "
	}

	in := fieldkit.InboundSurfaces{
		Header: func(name string) (string, bool) {
			for _, excluded := range cfg.Header.ExcludeList {
				if strings.EqualFold(excluded, name) {
					return "", false
				}
			}
			v := r.Header.Get(name)
			if v == "" {
				return "", false
			}
			if cfg.Header.MaxValueLength > 0 && len(v) > cfg.Header.MaxValueLength {
				v = v[:cfg.Header.MaxValueLength]
			}
			return v, true
		},
		Query: func(name string) (string, bool) {
			if !r.URL.Query().Has(name) {
				return "", false
			}
			return r.URL.Query().Get(name), true
		},
		Cookie: func(name string) (string, bool) {
			c, err := r.Cookie(name)
			if err != nil {
				return "", false
			}
			return c.Value, true
		},
		Session: sessions.get,
		Token: func() (string, bool) {
			auth := r.Header.Get(headerName)
			if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
				return "", false
			}
			return auth[len(prefix):], true
		},
		Form: func(name string) (string, bool) {
			if err := r.ParseForm(); err != nil {
				return "", false
			}
			if !r.PostForm.Has(name) {
				return "", false
			}
			return r.PostForm.Get(name), true
		},
	}
	if path, ok := paths.Match(r); ok {
		in.Path = path
	}
	if token, ok := in.Token(); ok {
		syntax := fieldkit.ClaimSyntax{
			Separator:       cfg.Claim.Separator,
			ArrayIndexOpen:  cfg.Claim.ArrayIndexOpen,
			ArrayIndexClose: cfg.Claim.ArrayIndexClose,
		}
		var claims fieldkit.ClaimSource
		var err error
		if claimCache != nil {
			claims, err = claimCache.ParseClaims(token, syntax)
		} else {
			claims, err = fieldkit.ParseClaimsUnverifiedWithSyntax(token, syntax)
		}
		if err == nil {
			in.Claims = claims
		}
	}
	return in
}

// httpOutboundSurfaces adapts an http.ResponseWriter into
// fieldkit.OutboundSurfaces for stage 4's upstream-response enrichment. The
// cookie attributes arrive per-call from EnrichSurface, already resolved
// from the Runner's configured CookieAttrs.
func httpOutboundSurfaces(w http.ResponseWriter, sessions *sessionStore) fieldkit.OutboundSurfaces {
	return fieldkit.OutboundSurfaces{
		SetHeader: func(key, value string, override bool) {
			if override {
				w.Header().Set(key, value)
			} else {
				w.Header().Add(key, value)
			}
		},
		SetCookie: func(key, value string, attrs fieldkit.CookieAttrs, _ bool) {
			http.SetCookie(w, &http.Cookie{
				Name:     key,
				Value:    value,
				Path:     attrs.Path,
				Domain:   attrs.Domain,
				SameSite: sameSiteFromString(attrs.SameSite),
				HttpOnly: attrs.HTTPOnly,
				Secure:   attrs.Secure,
			})
		},
		SetSession: sessions.set,
	}
}

// sameSiteFromString maps the source-configuration "same-site" string onto
// net/http's SameSite enum, defaulting to SameSiteDefaultMode for an
// unrecognized or empty value.
func sameSiteFromString(s string) http.SameSite {
	switch s {
	case "Strict":
		return http.SameSiteStrictMode
	case "Lax":
		return http.SameSiteLaxMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
