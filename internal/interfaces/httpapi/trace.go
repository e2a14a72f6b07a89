package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var (
	apiTracer = otel.Tracer("patient-onboarding/internal/interfaces/httpapi")
	// callers always End the returned span, so skipped spans must not be the parent
	skippedSpan = trace.SpanFromContext(context.Background())
)

// Only handler entry points and panic recovery get their own span. Response
// helpers and middleware would otherwise double the span count per request.
var tracedSpanPrefixes = []string{
	"httpapi.Handler.",
	"httpapi.recoverPanic",
}

// startSpan returns the request context untouched when there is no sampled
// parent, e.g. on /healthz which otelhttp filters out.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() || !isTracedSpan(name) {
		return ctx, skippedSpan
	}
	return apiTracer.Start(ctx, name)
}

func isTracedSpan(name string) bool {
	for _, prefix := range tracedSpanPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
