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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Keys recognized by Google Cloud Logging for correlating entries with Cloud
// Trace.
const (
	// TraceKey holds "projects/PROJECT_ID/traces/TRACE_ID".
	TraceKey = "logging.googleapis.com/trace"
	// SpanKey holds the hex span ID.
	SpanKey = "logging.googleapis.com/spanId"
	// SampledKey holds the sampling decision.
	SampledKey = "logging.googleapis.com/trace_sampled"
)

// TraceID returns the hex trace ID of the span context in ctx, or "" when
// ctx carries no valid span context.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// FormatTraceResource returns projects/<projectID>/traces/<traceID>.
func FormatTraceResource(projectID, rawTraceID string) string {
	return fmt.Sprintf("projects/%s/traces/%s", projectID, rawTraceID)
}

// TraceAttributes extracts trace correlation attributes from ctx. With a
// project ID (given, or found in the environment) the Cloud Logging keys are
// used; otherwise the OpenTelemetry-style otel.trace_id, otel.span_id and
// otel.trace_sampled keys are. The span ID is only emitted when the span is
// local, because a remote parent's span does not own the log entry.
func TraceAttributes(ctx context.Context, projectID string) ([]slog.Attr, bool) {
	if ctx == nil {
		return nil, false
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil, false
	}

	if projectID == "" {
		projectID = projectIDFromEnv()
	}
	traceID := sc.TraceID().String()
	spanID := ""
	if !sc.IsRemote() {
		spanID = sc.SpanID().String()
	}

	if projectID != "" {
		attrs := []slog.Attr{
			slog.String(TraceKey, FormatTraceResource(projectID, traceID)),
			slog.Bool(SampledKey, sc.IsSampled()),
		}
		if spanID != "" {
			attrs = append(attrs, slog.String(SpanKey, spanID))
		}
		return attrs, true
	}

	attrs := []slog.Attr{slog.String("otel.trace_id", traceID)}
	if spanID != "" {
		attrs = append(attrs, slog.String("otel.span_id", spanID))
	}
	attrs = append(attrs, slog.Bool("otel.trace_sampled", sc.IsSampled()))
	return attrs, true
}
