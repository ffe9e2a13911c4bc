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

package requestlog

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogproblem"
	"github.com/pjscruggs/slogproblem/healthcheck"
)

const instrumentationName = "github.com/pjscruggs/slogproblem/requestlog"

// Middleware returns an http.Handler middleware that writes exactly one
// completion record per request. Handlers reach the request-scoped logger via
// slogproblem.Logger and add properties to the completion record via
// slogproblem.Diagnostics.
//
// A panic escaping the wrapped handler is logged with status 500 and then
// re-raised unchanged.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)
	slogproblem.EnsurePropagation()

	projectID := strings.TrimSpace(cfg.projectID)
	if projectID == "" && cfg.detectProject {
		projectID = slogproblem.DetectProjectID(context.Background())
	}
	tmpl := parseTemplate(cfg.messageTemplate)

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}

		lh := &loggingHandler{cfg: cfg, projectID: projectID, template: tmpl, next: next}
		chain := wrapWithOTel(cfg, lh)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if newCtx := ensureSpanContext(ctx, r, cfg); newCtx != ctx {
				r = r.WithContext(newCtx)
			}
			chain.ServeHTTP(w, r)
		})
	}
}

type loggingHandler struct {
	cfg       *config
	projectID string
	template  messageTemplate
	next      http.Handler
}

// ServeHTTP installs the request-scoped logger and diagnostic context, runs
// the wrapped handler and emits the completion record.
func (h *loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	scope := newRequestScope(r, start, h.cfg)
	collector := slogproblem.NewCollector()

	traceAttrs, _ := slogproblem.TraceAttributes(r.Context(), h.projectID)
	attrs := scope.loggerAttrs(h.cfg, traceAttrs)
	for _, enricher := range h.cfg.attrEnrichers {
		attrs = append(attrs, enricher(r, scope)...)
	}

	ctx := slogproblem.ContextWithLogger(r.Context(), loggerWithAttrs(h.cfg.logger, attrs))
	ctx = slogproblem.ContextWithDiagnosticContext(ctx, collector)
	ctx = context.WithValue(ctx, requestScopeKey{}, scope)
	r = r.WithContext(ctx)

	rec := wrapResponseWriter(w, scope)

	completed := false
	defer func() {
		if completed {
			return
		}
		v := recover()
		if v == nil {
			return
		}
		stack, _ := slogproblem.CaptureStack(slogproblem.SkipInternalStackFrame)
		err := slogproblem.ErrorFromPanic(v, stack)
		scope.finalize(http.StatusInternalServerError, rec.BytesWritten(), time.Since(start))
		h.complete(r, collector, scope, traceAttrs, err)
		panic(v)
	}()

	h.next.ServeHTTP(rec, r)
	completed = true

	scope.finalize(rec.Status(), rec.BytesWritten(), time.Since(start))
	h.complete(r, collector, scope, traceAttrs, nil)
}

// complete closes the diagnostic context and writes the completion record.
// propagated is the panic that escaped the handler chain, if any.
func (h *loggingHandler) complete(r *http.Request, collector *slogproblem.Collector, scope *RequestScope, traceAttrs []slog.Attr, propagated error) {
	for _, enrich := range h.cfg.enrichers {
		enrich(collector, r)
	}
	props, collected := collector.Complete()

	err := propagated
	if err == nil {
		err = collected
	}

	status := scope.Status()
	elapsed, _ := scope.Latency()
	level := h.cfg.getLevel(r, status, elapsed, propagated)

	decision := h.cfg.healthCheck.Match(r)
	if decision.Matched {
		failed := err != nil || status >= http.StatusBadRequest
		h.cfg.healthCheck.Record(decision, failed)
		if !failed {
			if decision.ShouldDrop() {
				return
			}
			level = decision.ApplyLevel(level)
		}
	}

	ctx := r.Context()
	logger := h.cfg.logger
	if !logger.Enabled(ctx, level) {
		return
	}

	path := requestPath(r, h.cfg.includeQuery)
	elapsedMS := float64(elapsed.Nanoseconds()) / float64(time.Millisecond)

	var templateProps []slog.Attr
	if h.cfg.templateProperties != nil {
		templateProps = h.cfg.templateProperties(r, path, elapsedMS, status)
	} else {
		templateProps = []slog.Attr{
			slog.String(PropRequestMethod, r.Method),
			slog.String(PropRequestPath, path),
			slog.Int(PropStatusCode, status),
			slog.Float64(PropElapsed, elapsedMS),
		}
	}

	recordAttrs := make([]slog.Attr, 0, len(traceAttrs)+len(templateProps)+len(props)+3)
	recordAttrs = append(recordAttrs, traceAttrs...)
	recordAttrs = append(recordAttrs, templateProps...)
	recordAttrs = append(recordAttrs, props...)
	msg := h.template.render(recordAttrs)

	if decision.ShouldTag() {
		recordAttrs = append(recordAttrs, slog.Bool(decision.TagKey, true))
	}
	recordAttrs = append(recordAttrs, slogproblem.ErrorAttrs(err)...)

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(recordAttrs...)
	_ = logger.Handler().Handle(healthcheck.ContextWithDecision(ctx, decision), record)
}

// requestPath returns the escaped path, with the query when requested.
func requestPath(r *http.Request, includeQuery bool) string {
	if r.URL == nil {
		return ""
	}
	path := r.URL.EscapedPath()
	if includeQuery && r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}
	return path
}

// wrapWithOTel wraps handler with otelhttp middleware when enabled.
func wrapWithOTel(cfg *config, handler http.Handler) http.Handler {
	if !cfg.enableOTel {
		return handler
	}
	return otelhttp.NewHandler(handler, instrumentationName, otelOptions(cfg)...)
}

// otelOptions builds OpenTelemetry handler options from configuration.
func otelOptions(cfg *config) []otelhttp.Option {
	var otelOpts []otelhttp.Option
	if cfg.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(cfg.tracerProvider))
	}
	if cfg.propagateTrace {
		if cfg.propagatorsSet && cfg.propagators != nil {
			otelOpts = append(otelOpts, otelhttp.WithPropagators(cfg.propagators))
		}
	} else {
		otelOpts = append(otelOpts, otelhttp.WithPropagators(noopPropagator{}))
	}
	if cfg.publicEndpoint {
		otelOpts = append(otelOpts, otelhttp.WithPublicEndpointFn(func(*http.Request) bool {
			return true
		}))
	}
	if cfg.spanNameFormatter != nil {
		otelOpts = append(otelOpts, otelhttp.WithSpanNameFormatter(cfg.spanNameFormatter))
	}
	for _, filter := range cfg.filters {
		otelOpts = append(otelOpts, otelhttp.WithFilter(filter))
	}
	return otelOpts
}

type noopPropagator struct{}

func (noopPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

func (noopPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (noopPropagator) Fields() []string { return nil }

// ensureSpanContext extracts a remote span context from inbound headers when
// ctx does not already carry one, so trace fields reach logs even with
// otelhttp disabled.
func ensureSpanContext(ctx context.Context, r *http.Request, cfg *config) context.Context {
	if !cfg.propagateTrace || trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	if cfg.publicEndpoint && !cfg.enableOTel {
		return ctx
	}
	propagator := cfg.propagators
	if propagator == nil {
		if cfg.propagatorsSet {
			return ctx
		}
		propagator = otel.GetTextMapPropagator()
	}
	extracted := propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
	if !trace.SpanContextFromContext(extracted).IsValid() {
		return ctx
	}
	return extracted
}
