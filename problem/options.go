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

package problem

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/pjscruggs/slogproblem"
)

// TraceIDKey is the extension member holding the request's trace identifier.
const TraceIDKey = "traceId"

// ErrorDetailsKey is the extension member listing the error chain when
// Options.IncludeErrorDetails allows it.
const ErrorDetailsKey = "errorDetails"

// Options configures Middleware. Build them with DefaultOptions and adjust
// fields or register mappers before the middleware is constructed.
type Options struct {
	// Logger receives the middleware's own records. When nil the
	// request-scoped logger from the context is used.
	Logger *slog.Logger

	// ShouldLogUnhandledError decides whether the middleware logs err itself
	// as an unhandled error. The default logs server errors (status >= 500).
	ShouldLogUnhandledError func(r *http.Request, err error, details *Details) bool

	// IncludeErrorDetails decides whether the error message and chain are
	// exposed in the response. Off by default.
	IncludeErrorDetails func(r *http.Request, err error) bool

	// GetTraceID returns the value of the traceId member. The default uses
	// the OpenTelemetry trace ID, then the chi request ID, then a random UUID.
	GetTraceID func(r *http.Request) string

	// TypePrefix is joined with the status code when a mapper leaves the
	// type member empty.
	TypePrefix string

	// OnBeforeWriteDetails may adjust details right before they are written.
	OnBeforeWriteDetails func(r *http.Request, details *Details)

	// AllowedHeaderNames survive when the response headers are reset before
	// writing a problem body.
	AllowedHeaderNames []string

	// StatusCodeProblems writes a problem body for responses that set a 4xx
	// or 5xx status without writing a body.
	StatusCodeProblems bool

	mappers []mapper
}

type mapper struct {
	match func(r *http.Request, err error) (details *Details, matched bool)
}

// DefaultOptions returns the baseline configuration.
func DefaultOptions() *Options {
	return &Options{
		ShouldLogUnhandledError: isServerError,
		IncludeErrorDetails:     func(*http.Request, error) bool { return false },
		GetTraceID:              defaultTraceID,
		TypePrefix:              DefaultTypePrefix,
		AllowedHeaderNames: []string{
			"Access-Control-Allow-Credentials",
			"Access-Control-Allow-Headers",
			"Access-Control-Allow-Methods",
			"Access-Control-Allow-Origin",
			"Access-Control-Expose-Headers",
			"Access-Control-Max-Age",
			"Strict-Transport-Security",
			"Vary",
		},
		StatusCodeProblems: true,
	}
}

func isServerError(_ *http.Request, _ error, details *Details) bool {
	return details != nil && details.Status >= http.StatusInternalServerError
}

func defaultTraceID(r *http.Request) string {
	ctx := r.Context()
	if id := slogproblem.TraceID(ctx); id != "" {
		return id
	}
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// MapFunc registers fn as a mapper. fn reports whether it recognizes err;
// when it does, the returned details are written, and nil details mean the
// error is not handled here and is re-raised to the server.
func (o *Options) MapFunc(fn func(r *http.Request, err error) (*Details, bool)) {
	if fn == nil {
		return
	}
	o.mappers = append(o.mappers, mapper{match: fn})
}

// MapStatus maps errors matching target (errors.Is) to status.
func (o *Options) MapStatus(target error, status int) {
	o.MapFunc(func(_ *http.Request, err error) (*Details, bool) {
		if !errors.Is(err, target) {
			return nil, false
		}
		return New(status), true
	})
}

// Map registers fn for errors whose chain contains a T (errors.As). A nil
// result re-raises the error instead of writing a response.
func Map[T error](o *Options, fn func(r *http.Request, err T) *Details) {
	if o == nil || fn == nil {
		return
	}
	o.MapFunc(func(r *http.Request, err error) (*Details, bool) {
		var target T
		if !errors.As(err, &target) {
			return nil, false
		}
		return fn(r, target), true
	})
}

// MapToStatusCode maps errors whose chain contains a T to status.
func MapToStatusCode[T error](o *Options, status int) {
	Map[T](o, func(*http.Request, T) *Details { return New(status) })
}

// Ignore makes errors whose chain contains a T pass through untranslated,
// so they reach the server's own panic handling.
func Ignore[T error](o *Options) {
	Map[T](o, func(*http.Request, T) *Details { return nil })
}

// resolve returns the details for err. handled is false when a mapper
// declined the error.
func (o *Options) resolve(r *http.Request, err error) (details *Details, handled bool) {
	for _, m := range o.mappers {
		if d, ok := m.match(r, err); ok {
			if d == nil {
				return nil, false
			}
			return d.Clone(), true
		}
	}
	return builtinDetails(err), true
}

func builtinDetails(err error) *Details {
	var pe *Error
	if errors.As(err, &pe) && pe.Details != nil {
		return pe.Details.Clone()
	}
	var sc StatusCoder
	if errors.As(err, &sc) && validErrorStatus(sc.StatusCode()) {
		return New(sc.StatusCode())
	}
	var hs httpStatuser
	if errors.As(err, &hs) && validErrorStatus(hs.HTTPStatus()) {
		return New(hs.HTTPStatus())
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return New(http.StatusRequestEntityTooLarge)
	case errors.Is(err, errors.ErrUnsupported):
		return New(http.StatusNotImplemented)
	case errors.Is(err, context.DeadlineExceeded):
		return New(http.StatusGatewayTimeout)
	}
	return New(http.StatusInternalServerError)
}

func validErrorStatus(code int) bool {
	return code >= 400 && code <= 599
}

func (o *Options) logger(r *http.Request) *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slogproblem.Logger(r.Context())
}
