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
	"context"
	"errors"
	"net/http"

	"github.com/pjscruggs/slogproblem"
	"github.com/pjscruggs/slogproblem/problem"
)

var (
	// ErrNilHandler is returned when a nil problem.Handler is supplied.
	ErrNilHandler = errors.New("slogproblemhttp: nil handler")
	// ErrNilDiagnosticLookup is returned when a nil diagnostic context lookup
	// is supplied.
	ErrNilDiagnosticLookup = errors.New("slogproblemhttp: nil diagnostic context lookup")
)

// DiagnosticLookup returns the diagnostic context of the request owning ctx.
type DiagnosticLookup func(ctx context.Context) slogproblem.DiagnosticContext

// NewCaptureHandler wraps next so that an error it returns, or a panic it
// raises, is recorded once on the request's diagnostic context before
// continuing outward unchanged: the same error is returned, the same value
// re-panicked. Successful requests are left untouched.
//
// http.ErrAbortHandler is re-panicked without being recorded.
func NewCaptureHandler(next problem.Handler, lookup DiagnosticLookup) (problem.Handler, error) {
	if next == nil {
		return nil, ErrNilHandler
	}
	if lookup == nil {
		return nil, ErrNilDiagnosticLookup
	}
	return &captureHandler{next: next, lookup: lookup}, nil
}

// CaptureErrors is NewCaptureHandler using slogproblem.Diagnostics as the
// lookup. It panics when next is nil.
func CaptureErrors(next problem.Handler) problem.Handler {
	h, err := NewCaptureHandler(next, slogproblem.Diagnostics)
	if err != nil {
		panic(err)
	}
	return h
}

type captureHandler struct {
	next   problem.Handler
	lookup DiagnosticLookup
}

// Serve implements problem.Handler.
func (h *captureHandler) Serve(w http.ResponseWriter, r *http.Request) error {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v != http.ErrAbortHandler {
			// The panicking frames are still on the stack here.
			stack, _ := slogproblem.CaptureStack(nil)
			h.record(r.Context(), slogproblem.ErrorFromPanic(v, stack))
		}
		panic(v)
	}()

	err := h.next.Serve(w, r)
	if err != nil {
		h.record(r.Context(), err)
	}
	return err
}

func (h *captureHandler) record(ctx context.Context, err error) {
	if dc := h.lookup(ctx); dc != nil {
		dc.SetError(err)
	}
}
