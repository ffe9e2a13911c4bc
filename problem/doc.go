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

// Package problem converts errors returned or raised by HTTP handlers into
// RFC 7807 "application/problem+json" responses.
//
// Handlers report failures by returning an error:
//
//	h := problem.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
//	    order, err := store.Find(r.Context(), r.PathValue("id"))
//	    if err != nil {
//	        return err
//	    }
//	    return json.NewEncoder(w).Encode(order)
//	})
//
// [Middleware] translates the error using the mappers registered on
// [Options]. The first mapper that matches wins; unmatched errors fall back
// to errors implementing [StatusCoder], then to 500 Internal Server Error:
//
//	opts := problem.DefaultOptions()
//	problem.MapToStatusCode[*store.NotFoundError](opts, http.StatusNotFound)
//	opts.MapStatus(context.DeadlineExceeded, http.StatusGatewayTimeout)
//	http.Handle("/orders/{id}", problem.Middleware(opts)(h))
//
// A [HandlerFunc] is also an [http.Handler], so it can be registered on any
// router. Wrap the router with [Adapt] to carry the errors out of it:
//
//	mux := chi.NewRouter()
//	mux.Method(http.MethodGet, "/orders/{id}", h)
//	http.ListenAndServe(":8080", problem.Middleware(opts)(problem.Adapt(mux)))
//
// Panics are recovered and translated the same way as returned errors.
package problem
