package davtest

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Handler is a http.Handler that returns an error.
type Handler func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// Middleware defines a signature to chain Handler together.
type Middleware func(handler Handler) Handler

type ctxKey int

const valuesKey ctxKey = iota + 1

// Values are shared by every middleware serving one request.
type Values struct {
	RequestID  string
	Now        time.Time
	StatusCode int
}

// GetValues retrieves the Values from ctx, or fresh ones when unset.
func GetValues(ctx context.Context) *Values {
	v, ok := ctx.Value(valuesKey).(*Values)
	if !ok {
		return &Values{RequestID: uuid.Nil.String(), Now: time.Now()}
	}

	return v
}

// statusWriter records the status written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	v *Values
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.v.StatusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.v.StatusCode == 0 {
		sw.v.StatusCode = http.StatusOK
	}

	return sw.ResponseWriter.Write(b)
}

// serve builds the http.Handler running mw around h. Each request gets
// a span, a request ID and its Values.
func (s *Server) serve(h Handler, mw []Middleware) http.Handler {
	handler := wrap(mw, h)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, "davtest."+r.Method)
		defer span.End()
		span.SetAttributes(attribute.String("path", r.URL.Path))

		reqID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			reqID = uuid.NewString()
		}

		v := &Values{RequestID: reqID, Now: time.Now().UTC()}
		r = r.WithContext(context.WithValue(ctx, valuesKey, v))

		if err := handler(r.Context(), &statusWriter{ResponseWriter: w, v: v}, r); err != nil {
			s.logger.Error("davtest", "handle", err, "request_id", reqID)
			if v.StatusCode == 0 {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}

		span.SetAttributes(attribute.Int("status", v.StatusCode))
		if v.StatusCode >= http.StatusInternalServerError {
			span.AddEvent("server error", trace.WithAttributes(attribute.String("request_id", reqID)))
		}
	})
}

// adapt converts a standard http.Handler into a Handler.
func adapt(h http.Handler) Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		h.ServeHTTP(w, r)
		return nil
	}
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []Middleware, handler Handler) Handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			handler = mwFn(handler)
		}
	}

	return handler
}
