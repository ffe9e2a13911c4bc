// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slogproblem

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func remoteContext(t *testing.T) context.Context {
	t.Helper()
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}

func attrMap(attrs []slog.Attr) map[string]slog.Value {
	m := make(map[string]slog.Value, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}
	return m
}

// resetEnvProject clears the cached environment project for a test.
func resetEnvProject(t *testing.T) {
	t.Helper()
	envProjectOnce = sync.Once{}
	envProjectID = ""
	t.Cleanup(func() {
		envProjectOnce = sync.Once{}
		envProjectID = ""
	})
}

// TestTraceAttributesWithProject uses Cloud Logging keys.
func TestTraceAttributesWithProject(t *testing.T) {
	attrs, ok := TraceAttributes(remoteContext(t), "proj-123")
	if !ok {
		t.Fatalf("expected trace attributes")
	}
	m := attrMap(attrs)
	if got := m[TraceKey].String(); got != "projects/proj-123/traces/4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace = %q", got)
	}
	if !m[SampledKey].Bool() {
		t.Fatalf("sampled flag lost")
	}
	if _, ok := m[SpanKey]; ok {
		t.Fatalf("remote span must not be attributed")
	}
}

// TestTraceAttributesWithoutProject falls back to otel.* keys.
func TestTraceAttributesWithoutProject(t *testing.T) {
	for _, name := range projectEnvVars {
		t.Setenv(name, "")
	}
	resetEnvProject(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	m := attrMap(mustTraceAttrs(t, ctx, ""))
	if got := m["otel.trace_id"].String(); got != span.SpanContext().TraceID().String() {
		t.Fatalf("otel.trace_id = %q", got)
	}
	if got := m["otel.span_id"].String(); got != span.SpanContext().SpanID().String() {
		t.Fatalf("otel.span_id = %q", got)
	}
	if got := TraceID(ctx); got != span.SpanContext().TraceID().String() {
		t.Fatalf("TraceID = %q", got)
	}
}

// TestTraceAttributesProjectFromEnv picks the project from the environment.
func TestTraceAttributesProjectFromEnv(t *testing.T) {
	for _, name := range projectEnvVars {
		t.Setenv(name, "")
	}
	t.Setenv("GOOGLE_CLOUD_PROJECT", "env-project")
	resetEnvProject(t)

	m := attrMap(mustTraceAttrs(t, remoteContext(t), ""))
	if got := m[TraceKey].String(); got != "projects/env-project/traces/4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("trace = %q", got)
	}
}

// TestTraceAttributesNoSpan reports false without a span context.
func TestTraceAttributesNoSpan(t *testing.T) {
	t.Parallel()

	if attrs, ok := TraceAttributes(context.Background(), "proj-123"); ok || attrs != nil {
		t.Fatalf("unexpected attrs %v", attrs)
	}
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("TraceID = %q", got)
	}
}

func mustTraceAttrs(t *testing.T, ctx context.Context, projectID string) []slog.Attr {
	t.Helper()
	attrs, ok := TraceAttributes(ctx, projectID)
	if !ok {
		t.Fatalf("expected trace attributes")
	}
	return attrs
}
