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

package slogproblemhttp

import (
	"net/http"

	"github.com/pjscruggs/slogproblem"
	"github.com/pjscruggs/slogproblem/problem"
	"github.com/pjscruggs/slogproblem/requestlog"
)

// NewHandler assembles the pipeline around next, outermost first:
// request logging, problem translation, the capture relay, next.
//
// A nil problemOpts means ProblemDetails(nil). Options that still log
// unhandled errors are accepted but produce a second record for each
// error translated into a 5xx response.
func NewHandler(next problem.Handler, problemOpts *problem.Options, logOpts ...requestlog.Option) (http.Handler, error) {
	relay, err := NewCaptureHandler(next, slogproblem.Diagnostics)
	if err != nil {
		return nil, err
	}
	if problemOpts == nil {
		problemOpts = ProblemDetails(nil)
	}
	translated := problem.Middleware(problemOpts)(relay)
	return requestlog.Middleware(logOpts...)(translated), nil
}

// NewHandlerWithTemplate is NewHandler with a custom completion message
// template.
func NewHandlerWithTemplate(next problem.Handler, problemOpts *problem.Options, messageTemplate string) (http.Handler, error) {
	return NewHandler(next, problemOpts, requestlog.WithMessageTemplate(messageTemplate))
}

// Middleware adapts NewHandler for routers. Errors returned by
// problem.HandlerFunc routes below it are reported through problem.Adapt.
func Middleware(problemOpts *problem.Options, logOpts ...requestlog.Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h, err := NewHandler(problem.Adapt(next), problemOpts, logOpts...)
		if err != nil {
			panic(err)
		}
		return h
	}
}
