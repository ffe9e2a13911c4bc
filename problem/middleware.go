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
	"errors"
	"log/slog"
	"net/http"

	"github.com/pjscruggs/slogproblem"
)

// Middleware returns middleware that serves next and translates the error it
// returns, or the panic it raises, into a problem response. A nil opts means
// DefaultOptions.
//
// Errors arriving after the response has started are logged as warnings and
// otherwise left alone. Errors declined by a mapper are re-raised with panic
// so they reach the server's own handling.
func Middleware(opts *Options) func(Handler) http.Handler {
	if opts == nil {
		opts = DefaultOptions()
	}
	return func(next Handler) http.Handler {
		if next == nil {
			next = Adapt(http.NotFoundHandler())
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := newResponseState(w, opts.StatusCodeProblems)
			f := serve(next, rs, r)
			if f.err == nil {
				if status, ok := rs.bodylessErrorStatus(); ok {
					rs.resetHeaders(opts.AllowedHeaderNames)
					writeDetails(rs.take(), r, opts, New(status), nil)
				}
				return
			}
			handleFailure(rs, r, opts, f)
		})
	}
}

// failure is what serve observed: a returned error, or a recovered panic
// value together with the error form of it.
type failure struct {
	err       error
	recovered any
	panicked  bool
	stack     string
}

func serve(next Handler, w http.ResponseWriter, r *http.Request) (f failure) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		stack, _ := slogproblem.CaptureStack(nil)
		f = failure{
			err:       slogproblem.ErrorFromPanic(v, stack),
			recovered: v,
			panicked:  true,
			stack:     stack,
		}
	}()
	return failure{err: next.Serve(w, r)}
}

func handleFailure(rs *responseState, r *http.Request, opts *Options, f failure) {
	details, handled := opts.resolve(r, f.err)
	if !handled {
		rs.commitHeld()
		if f.panicked {
			panic(f.recovered)
		}
		panic(f.err)
	}

	logger := opts.logger(r)
	if rs.started {
		logger.LogAttrs(r.Context(), slog.LevelWarn,
			"The response has already started, the problem details middleware will not be executed.",
			slog.Int("status", details.Status))
		return
	}

	rs.resetHeaders(opts.AllowedHeaderNames)

	if opts.ShouldLogUnhandledError != nil && opts.ShouldLogUnhandledError(r, f.err, details) {
		slogproblem.LogError(r.Context(), logger, slog.LevelError,
			"An unhandled error has occurred while executing the request.", f.err)
	}

	if opts.IncludeErrorDetails != nil && opts.IncludeErrorDetails(r, f.err) {
		if details.Detail == "" {
			details.Detail = f.err.Error()
		}
		details.Set(ErrorDetailsKey, errorChain(f.err, f.stack))
	}
	writeDetails(rs.take(), r, opts, details, f.err)
}

// errorChain describes err and everything it wraps, outermost first.
func errorChain(err error, stack string) []map[string]any {
	var chain []map[string]any
	for e := err; e != nil; e = errors.Unwrap(e) {
		entry := map[string]any{
			"message": e.Error(),
			"type":    typeName(e),
		}
		chain = append(chain, entry)
		if len(chain) == 16 {
			break
		}
	}
	if stack != "" && len(chain) > 0 {
		chain[0]["stack"] = stack
	}
	return chain
}
