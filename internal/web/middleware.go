// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"context"
	"crypto/rand"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// unmatchedRoute labels requests no pattern served.
const unmatchedRoute = "unmatched"

type contextKey int

const (
	requestInfoKey contextKey = iota
	identityKey
)

// requestInfo is shared by the middleware layers of one request. route is
// filled in once the mux has matched a pattern.
type requestInfo struct {
	id    string
	route string
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.id
	}
	return ""
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.status = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.status = http.StatusOK
		rec.wroteHeader = true
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// chain wraps mux in recover, tracing, logging, metrics and identity.
func (s *Server) chain(mux *http.ServeMux) http.Handler {
	var h http.Handler = recordRoute(mux)
	h = s.identify(h)
	h = s.measure(h)
	h = s.logRequests(h)
	h = s.trace(h)
	return s.recoverPanics(h)
}

// recordRoute copies the matched pattern into the shared request info. The
// mux sets Pattern on the request it was handed.
func recordRoute(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		if info := requestInfoFrom(r.Context()); info != nil && r.Pattern != "" {
			info.route = r.Pattern
		}
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			s.logger.ErrorContext(r.Context(), "panic while serving request",
				"panic", v,
				"stack", string(debug.Stack()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			if !rec.wroteHeader {
				http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// trace assigns the request id and a span context. An incoming W3C
// traceparent is continued; otherwise the trace id is the request id.
func (s *Server) trace(next http.Handler) http.Handler {
	propagator := propagation.TraceContext{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		parsed, err := uuid.Parse(id)
		if err != nil {
			parsed, err = uuid.NewV7()
			if err != nil {
				parsed = uuid.New()
			}
		}
		id = parsed.String()
		w.Header().Set(RequestIDHeader, id)

		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		if !trace.SpanContextFromContext(ctx).IsValid() {
			var spanID trace.SpanID
			_, _ = rand.Read(spanID[:])
			ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
				TraceID: trace.TraceID(parsed),
				SpanID:  spanID,
			}))
		}

		ctx = context.WithValue(ctx, requestInfoKey, &requestInfo{id: id})
		ctx, span := s.tracer.Start(ctx, r.Method+" "+r.URL.Path, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", routeLabel(r.Context()),
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestID(r.Context()),
			"remote_addr", clientIP(r),
		)
	})
}

func (s *Server) measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.ObserveRequest(routeLabel(r.Context()), rec.status, time.Since(start))
	})
}

// identify resolves the session cookie to a user once per request. A cookie
// that no longer maps to a live session is cleared. When the session store
// cannot answer, the request fails with 503 and the cookie is kept.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, ok, err := s.auth.CurrentIdentity(r.Context(), token)
		if err != nil {
			s.unavailable(w, r, err)
			return
		}
		if !ok {
			s.clearSessionCookie(w)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, user)))
	})
}

func routeLabel(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil && info.route != "" {
		return info.route
	}
	return unmatchedRoute
}
