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
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/pjscruggs/slogproblem"
	"github.com/pjscruggs/slogproblem/healthcheck"
)

// DefaultMessageTemplate renders the completion record's message.
const DefaultMessageTemplate = "HTTP {RequestMethod} {RequestPath} responded {StatusCode} in {Elapsed:0.0000} ms"

// Names of the properties every completion record carries by default.
const (
	PropRequestMethod = "RequestMethod"
	PropRequestPath   = "RequestPath"
	PropStatusCode    = "StatusCode"
	PropElapsed       = "Elapsed"
)

// GetLevelFunc chooses the completion record's level. err is the panic that
// escaped the handler chain, or nil; errors already turned into responses
// further down do not count.
type GetLevelFunc func(r *http.Request, status int, elapsed time.Duration, err error) slog.Level

// EnrichFunc adds properties to the completion record. It runs once per
// request, after the handler chain has returned.
type EnrichFunc func(dc slogproblem.DiagnosticContext, r *http.Request)

// TemplatePropertiesFunc replaces the default message template properties.
// elapsedMS is the request duration in milliseconds.
type TemplatePropertiesFunc func(r *http.Request, path string, elapsedMS float64, status int) []slog.Attr

// AttrEnricher can append attributes to the request-scoped logger handed to
// handlers via slogproblem.Logger.
type AttrEnricher func(*http.Request, *RequestScope) []slog.Attr

// Option configures Middleware.
type Option func(*config)

type config struct {
	logger             *slog.Logger
	messageTemplate    string
	getLevel           GetLevelFunc
	enrichers          []EnrichFunc
	includeQuery       bool
	templateProperties TemplatePropertiesFunc
	attrEnrichers      []AttrEnricher
	healthCheck        *healthcheck.Filter

	projectID         string
	detectProject     bool
	enableOTel        bool
	tracerProvider    trace.TracerProvider
	propagators       propagation.TextMapPropagator
	propagatorsSet    bool
	propagateTrace    bool
	publicEndpoint    bool
	spanNameFormatter func(string, *http.Request) string
	filters           []otelhttp.Filter
	routeGetter       func(*http.Request) string
	includeClientIP   bool
	includeUserAgent  bool
}

func defaultConfig() *config {
	return &config{
		logger:          slog.Default(),
		messageTemplate: DefaultMessageTemplate,
		getLevel:        DefaultGetLevel,
		enableOTel:      true,
		propagateTrace:  true,
		includeClientIP: true,
	}
}

func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// DefaultGetLevel logs at Error when a panic escaped or the status is a
// server error, and at Info otherwise.
func DefaultGetLevel(_ *http.Request, status int, _ time.Duration, err error) slog.Level {
	if err != nil || status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithLogger sets the logger that receives completion records and from which
// request-scoped loggers derive. When nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = slog.Default()
			return
		}
		cfg.logger = logger
	}
}

// WithMessageTemplate overrides DefaultMessageTemplate. Placeholders are
// written {Name} or {Name:0.00}; {{ and }} produce literal braces.
func WithMessageTemplate(template string) Option {
	return func(cfg *config) {
		if template != "" {
			cfg.messageTemplate = template
		}
	}
}

// WithGetLevel overrides DefaultGetLevel.
func WithGetLevel(fn GetLevelFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.getLevel = fn
		}
	}
}

// WithEnrichDiagnosticContext registers a callback that adds properties to
// the completion record. Callbacks run in registration order.
func WithEnrichDiagnosticContext(fn EnrichFunc) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.enrichers = append(cfg.enrichers, fn)
		}
	}
}

// WithIncludeQueryInRequestPath makes RequestPath include the raw query.
// Off by default to keep sensitive parameters out of logs.
func WithIncludeQueryInRequestPath(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeQuery = enabled
	}
}

// WithGetMessageTemplateProperties replaces the RequestMethod, RequestPath,
// StatusCode and Elapsed properties with the ones fn returns.
func WithGetMessageTemplateProperties(fn TemplatePropertiesFunc) Option {
	return func(cfg *config) {
		cfg.templateProperties = fn
	}
}

// WithAttrEnricher registers a callback that adds attributes to the
// request-scoped logger. These attributes do not reach the completion record.
func WithAttrEnricher(enricher AttrEnricher) Option {
	return func(cfg *config) {
		if enricher != nil {
			cfg.attrEnrichers = append(cfg.attrEnrichers, enricher)
		}
	}
}

// WithHealthCheck installs a classifier that tags, demotes or drops the
// completion records of health-check traffic. Records for failed requests
// are never demoted or dropped. A disabled configuration is ignored.
func WithHealthCheck(hc healthcheck.Config) Option {
	return func(cfg *config) {
		cfg.healthCheck = healthcheck.NewFilter(hc)
	}
}

// WithHealthCheckFilter is like WithHealthCheck but shares a prepared
// filter, so callers can read its Metrics.
func WithHealthCheckFilter(f *healthcheck.Filter) Option {
	return func(cfg *config) {
		cfg.healthCheck = f
	}
}

// WithProjectID sets the Google Cloud project used to format trace
// correlation fields.
func WithProjectID(projectID string) Option {
	return func(cfg *config) {
		cfg.projectID = projectID
	}
}

// WithProjectDetection asks slogproblem.DetectProjectID for the project when
// none is configured, which may query the GCE metadata server once.
func WithProjectDetection(enabled bool) Option {
	return func(cfg *config) {
		cfg.detectProject = enabled
	}
}

// WithOTel enables or disables otelhttp server instrumentation. Enabled by
// default.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithTracerProvider installs the tracer provider used by otelhttp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithPropagators supplies the propagator used to extract inbound trace
// context. When omitted, otel.GetTextMapPropagator() is used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithTracePropagation toggles extraction of inbound trace context.
// Enabled by default.
func WithTracePropagation(enabled bool) Option {
	return func(cfg *config) {
		cfg.propagateTrace = enabled
	}
}

// WithPublicEndpoint marks the server as public so otelhttp links, rather
// than parents, inbound spans.
func WithPublicEndpoint(enabled bool) Option {
	return func(cfg *config) {
		cfg.publicEndpoint = enabled
	}
}

// WithSpanNameFormatter customizes otelhttp span naming.
func WithSpanNameFormatter(formatter func(string, *http.Request) string) Option {
	return func(cfg *config) {
		cfg.spanNameFormatter = formatter
	}
}

// WithFilter appends an otelhttp filter.
func WithFilter(filter otelhttp.Filter) Option {
	return func(cfg *config) {
		if filter != nil {
			cfg.filters = append(cfg.filters, filter)
		}
	}
}

// WithRouteGetter resolves the route template recorded on the request
// logger, e.g. from a router's context.
func WithRouteGetter(fn func(*http.Request) string) Option {
	return func(cfg *config) {
		cfg.routeGetter = fn
	}
}

// WithClientIP toggles the network.peer.ip attribute. On by default.
func WithClientIP(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeClientIP = enabled
	}
}

// WithUserAgent toggles the http.user_agent attribute. Off by default.
func WithUserAgent(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeUserAgent = enabled
	}
}
