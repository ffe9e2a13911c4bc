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

// Package requestlog provides net/http middleware that condenses each request
// into a single structured completion record.
//
// The record's message is rendered from a template (by default
// "HTTP {RequestMethod} {RequestPath} responded {StatusCode} in {Elapsed:0.0000} ms")
// and carries every property handlers added through the request's
// slogproblem.DiagnosticContext. An error recorded with SetError is attached
// under the "error" key without raising the record's level; only a panic that
// escapes the wrapped handler, or a 5xx status, logs at Error by default.
//
// The middleware also derives a request-scoped logger carrying trace
// correlation fields, optionally wraps the handler with otelhttp, and can
// tag, demote or drop records for health-check traffic.
//
//	mux := http.NewServeMux()
//	handler := requestlog.Middleware(
//		requestlog.WithLogger(logger),
//		requestlog.WithEnrichDiagnosticContext(func(dc slogproblem.DiagnosticContext, r *http.Request) {
//			dc.Set("UserAgent", r.UserAgent())
//		}),
//	)(mux)
package requestlog
