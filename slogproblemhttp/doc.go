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

// Package slogproblemhttp connects request logging from
// github.com/pjscruggs/slogproblem/requestlog with RFC 7807 problem responses
// from github.com/pjscruggs/slogproblem/problem.
//
// Without it an error translated into a problem response is either invisible
// to the completion record (it never escapes the handler chain) or logged
// twice (once by the translator as unhandled, once by the request logger).
// The connector closes both gaps:
//
//   - CaptureErrors records every error or panic leaving the application
//     handler on the request's diagnostic context, so the completion record
//     carries it.
//   - ProblemDetails builds problem.Options that never log errors as
//     unhandled, so the completion record is the only record of the error.
//   - NewHandler and Middleware assemble the pipeline in the one order that
//     works: request logging, then problem translation, then the capture
//     relay, then the application.
//
// Typical use with a router:
//
//	opts := slogproblemhttp.ProblemDetails(func(o *problem.Options) {
//		problem.MapToStatusCode[*NotFoundError](o, http.StatusNotFound)
//	})
//	r := chi.NewRouter()
//	r.Use(slogproblemhttp.Middleware(opts, requestlog.WithLogger(logger)))
//	r.Method(http.MethodGet, "/widgets/{id}", problem.HandlerFunc(getWidget))
package slogproblemhttp
