package httppresentation

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pantrychef/pantry/internal/infrastructure/auth"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

// RequestLogger injects a request-scoped logger carrying request_id and, when
// a span is active, trace_id and span_id. X-Request-ID is echoed or generated.
func RequestLogger(base observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rid := r.Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set(headerRequestID, rid)

			fields := []observability.Field{observability.F("request_id", rid)}
			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				fields = append(fields,
					observability.F("trace_id", sc.TraceID().String()),
					observability.F("span_id", sc.SpanID().String()),
				)
			}
			ctx = logctx.With(ctx, logctx.FromOr(ctx, base).With(fields...))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// withTrace starts a server span, continuing any W3C parent from the headers.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parent := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		route := routeFromContext(parent)

		ctx, span := otel.Tracer("pantry.http").Start(parent, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", routeTemplate(route)),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// withAccessLog writes one http_access line after the handler completes.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", rec.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeTemplate(routeFromContext(r.Context()))),
			observability.L("status", strconv.Itoa(rec.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

// withRecover turns a panic into the generic 500 body and logs the stack.
func (h *Handler) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				logctx.FromOr(r.Context(), h.log).Error("http_panic",
					observability.F("panic", p),
					observability.F("stack", string(debug.Stack())),
				)
				writeMessage(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withAuth resolves the bearer token to a user id. Anything else is a 401.
func (h *Handler) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		userID, err := h.auth.Verify(token)
		if err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("http_auth_rejected", observability.F("error", err))
			writeMessage(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, userID)
		ctx = logctx.WithFields(ctx, h.log, observability.F("user_id", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

type (
	routeKey struct{}
	userKey  struct{}
)

func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}

// routeTemplate drops the method from "POST /api/x".
func routeTemplate(route string) string {
	if idx := strings.Index(route, " "); idx >= 0 {
		return route[idx+1:]
	}
	return route
}

// UserID returns the authenticated user on ctx, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}
