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

// Package slogproblem holds the pieces shared by the slogproblem middleware
// packages: the per-request DiagnosticContext, request-scoped loggers carried
// in a context.Context, panic and stack helpers, and trace correlation.
//
// The packages fit together like this:
//
//   - [github.com/pjscruggs/slogproblem/requestlog] writes exactly one
//     completion record per HTTP request and exposes a DiagnosticContext
//     that code further down the chain can enrich.
//   - [github.com/pjscruggs/slogproblem/problem] turns errors returned (or
//     panics raised) by handlers into RFC 7807 application/problem+json
//     responses.
//   - [github.com/pjscruggs/slogproblem/slogproblemhttp] connects the two, so
//     an error converted into a response is still attached to the completion
//     record and is logged exactly once.
//
// # Basic Usage
//
//	api := problem.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
//	    return ErrOutOfCoffee
//	})
//
//	handler, err := slogproblemhttp.NewHandler(api,
//	    slogproblemhttp.ProblemDetails(func(o *problem.Options) {
//	        problem.MapToStatusCode[*CoffeeError](o, http.StatusTeapot)
//	    }),
//	    requestlog.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", handler)
//
// Code running inside a request can add properties to the completion record:
//
//	slogproblem.Diagnostics(r.Context()).Set("OrderID", id)
package slogproblem
