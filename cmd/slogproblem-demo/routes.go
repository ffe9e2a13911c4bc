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

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/pjscruggs/slogproblem"
	"github.com/pjscruggs/slogproblem/healthcheck"
	"github.com/pjscruggs/slogproblem/internal/config"
	"github.com/pjscruggs/slogproblem/problem"
	"github.com/pjscruggs/slogproblem/requestlog"
	"github.com/pjscruggs/slogproblem/slogproblemhttp"
)

// HandledError is an expected failure the client can act on.
type HandledError struct{ Reason string }

func (e *HandledError) Error() string { return e.Reason }

// UnhandledError is a server-side failure with a dedicated status.
type UnhandledError struct{ Reason string }

func (e *UnhandledError) Error() string { return e.Reason }

func problemOptions() *problem.Options {
	return slogproblemhttp.ProblemDetails(func(o *problem.Options) {
		problem.MapToStatusCode[*HandledError](o, http.StatusTeapot)
		problem.MapToStatusCode[*UnhandledError](o, http.StatusNotImplemented)
		o.OnBeforeWriteDetails = func(r *http.Request, d *problem.Details) {
			d.Instance = r.URL.Path
		}
	})
}

func newRouter(cfg *config.Config, logger *slog.Logger) http.Handler {
	opts := problemOptions()

	hc := healthcheck.DefaultConfig()
	hc.Enabled = true
	hc.Mode = healthcheck.ModeDemote

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "Traceparent"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(slogproblemhttp.Middleware(opts,
		requestlog.WithLogger(logger),
		requestlog.WithProjectID(cfg.ProjectID),
		requestlog.WithProjectDetection(!cfg.IsDev()),
		requestlog.WithHealthCheck(hc),
		requestlog.WithEnrichDiagnosticContext(func(dc slogproblem.DiagnosticContext, r *http.Request) {
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				dc.Set("RoutePattern", rc.RoutePattern())
			}
			if id := middleware.GetReqID(r.Context()); id != "" {
				dc.Set("RequestId", id)
			}
		}),
	))
	if cfg.RateLimitRPM > 0 {
		r.Use(httprate.Limit(
			cfg.RateLimitRPM,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				d := problem.New(http.StatusTooManyRequests)
				d.Detail = "Too many requests. Try again later."
				problem.Write(w, r, opts, d)
			}),
		))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/widgets/{id}", problem.HandlerFunc(getWidget))
	r.Method(http.MethodGet, "/brew", problem.HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		return &HandledError{Reason: "I'm a teapot"}
	}))
	r.Method(http.MethodGet, "/unimplemented", problem.HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		return &UnhandledError{Reason: "something went wrong"}
	}))
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("demo panic")
	})
	return r
}

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func getWidget(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return problem.NewError(http.StatusBadRequest, "id must be a positive integer")
	}
	if id > 100 {
		return problem.NewError(http.StatusNotFound, "no such widget")
	}
	slogproblem.Diagnostics(r.Context()).Set("WidgetID", id)
	slogproblem.Logger(r.Context()).Debug("loading widget", slog.Int("id", id))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(widget{ID: id, Name: "widget-" + strconv.Itoa(id)})
}
