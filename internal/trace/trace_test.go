package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewIDs(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("trace ID length = %d, want 32", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID length = %d, want 16", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Errorf("parent span = %q, want empty", tc.ParentSpanID)
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newID(16)
		if seen[id] {
			t.Fatal("generated duplicate ID")
		}
		seen[id] = true
	}
}

func TestNewChildKeepsTraceID(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Errorf("child trace ID = %q, want %q", child.TraceID, parent.TraceID)
	}
	if child.ParentSpanID != parent.SpanID {
		t.Errorf("child parent span = %q, want %q", child.ParentSpanID, parent.SpanID)
	}
	if child.SpanID == parent.SpanID {
		t.Error("child span ID should differ from parent")
	}
}

func TestContextRoundTrip(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext() found no trace context")
	}
	if got != tc {
		t.Errorf("FromContext() = %+v, want %+v", got, tc)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext() on empty context should report false")
	}
}

func TestStartSpanCreatesTraceWhenMissing(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "op")
	defer span.End()

	if span.Ctx.TraceID == "" {
		t.Error("span has no trace ID")
	}
	if tc, ok := FromContext(ctx); !ok || tc.SpanID != span.Ctx.SpanID {
		t.Error("returned context does not carry the span's trace context")
	}
}

func TestStartSpanInheritsParent(t *testing.T) {
	parent := New()
	ctx := WithContext(context.Background(), parent)

	_, span := StartSpan(ctx, "child-op")
	defer span.End()

	if span.Ctx.TraceID != parent.TraceID {
		t.Errorf("span trace ID = %q, want %q", span.Ctx.TraceID, parent.TraceID)
	}
	if span.Ctx.ParentSpanID != parent.SpanID {
		t.Errorf("span parent = %q, want %q", span.Ctx.ParentSpanID, parent.SpanID)
	}
}

func TestSpanDuration(t *testing.T) {
	_, span := StartSpan(context.Background(), "timed")
	if span.Duration() != 0 {
		t.Error("Duration() before End() should be zero")
	}
	span.End()
	if span.Duration() < 0 {
		t.Error("Duration() after End() should not be negative")
	}
}

func TestMiddlewarePropagatesHeaders(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(TraceIDKey, "abc123")
	req.Header.Set(SpanIDKey, "def456")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "abc123" {
		t.Errorf("trace ID = %q, want abc123", got.TraceID)
	}
	if got.ParentSpanID != "def456" {
		t.Errorf("parent span = %q, want def456", got.ParentSpanID)
	}
	if got.SpanID == "" {
		t.Error("middleware did not assign a fresh span ID")
	}
}

func TestMiddlewareCreatesTraceWhenAbsent(t *testing.T) {
	var got Context
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if got.TraceID == "" {
		t.Error("middleware did not create a trace ID")
	}
}
