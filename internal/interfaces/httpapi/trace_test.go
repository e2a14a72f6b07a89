package httpapi

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestIsTracedSpan(t *testing.T) {
	cases := map[string]bool{
		"httpapi.Handler.SavePersonal": true,
		"httpapi.recoverPanic":         true,
		"httpapi.RequestLogging":       false,
		"httpapi.writeError":           false,
	}
	for name, want := range cases {
		if got := isTracedSpan(name); got != want {
			t.Fatalf("isTracedSpan(%q)=%v want=%v", name, got, want)
		}
	}
}

func TestStartSpanWithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.Home")
	if got != ctx {
		t.Fatalf("expected context to be returned unchanged")
	}
	if span.SpanContext().IsValid() {
		t.Fatalf("expected non-recording span without parent")
	}
	span.End()
}

func TestStartSpanSkipsHelpersUnderParent(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()

	ctx, parent := provider.Tracer("test").Start(context.Background(), "request")
	defer parent.End()

	_, span := startSpan(ctx, "httpapi.writeJSON")
	span.End()
	if !parent.IsRecording() {
		t.Fatalf("ending a skipped helper span must not end the request span")
	}

	handlerCtx, handlerSpan := startSpan(ctx, "httpapi.Handler.Home")
	defer handlerSpan.End()
	if trace.SpanFromContext(handlerCtx).SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Fatalf("handler span must stay in the request trace")
	}
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		t.Fatalf("parent context lost")
	}
}
