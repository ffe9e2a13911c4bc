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

package slogproblem

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type tracedError struct{ pcs []uintptr }

func (e tracedError) Error() string          { return "traced" }
func (e tracedError) StackTrace() []uintptr { return e.pcs }

// TestErrorFromPanicPreservesIdentity keeps error panics as the same value.
func TestErrorFromPanicPreservesIdentity(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	if got := ErrorFromPanic(boom, "stack"); got != boom {
		t.Fatalf("ErrorFromPanic(error) = %v, want identical error", got)
	}
	if got := ErrorFromPanic(nil, ""); got != nil {
		t.Fatalf("ErrorFromPanic(nil) = %v", got)
	}

	err := ErrorFromPanic(42, "goroutine 1 [running]:\nmain.f")
	var pe *PanicError
	if !errors.As(err, &pe) || pe.Value != 42 {
		t.Fatalf("ErrorFromPanic(42) = %#v", err)
	}
	if err.Error() != "panic: 42" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !IsPanic(err) || IsPanic(boom) {
		t.Fatalf("IsPanic misclassified")
	}
}

// TestErrorAttrs covers the error value and optional stack attribute.
func TestErrorAttrs(t *testing.T) {
	t.Parallel()

	if attrs := ErrorAttrs(nil); attrs != nil {
		t.Fatalf("ErrorAttrs(nil) = %v", attrs)
	}

	plain := errors.New("plain")
	attrs := ErrorAttrs(plain)
	if len(attrs) != 1 || attrs[0].Key != ErrorKey || attrs[0].Value.Any() != plain {
		t.Fatalf("ErrorAttrs(plain) = %v", attrs)
	}

	panicked := &PanicError{Value: "x", Stack: "goroutine 7 [running]:\nmain.g"}
	attrs = ErrorAttrs(panicked)
	if len(attrs) != 2 || attrs[1].Key != StackTraceKey || !strings.Contains(attrs[1].Value.String(), "main.g") {
		t.Fatalf("ErrorAttrs(panic) = %v", attrs)
	}

	var pcs [8]uintptr
	traced := tracedError{pcs: pcs[:callers(pcs[:])]}
	attrs = ErrorAttrs(traced)
	if len(attrs) != 2 || !strings.Contains(attrs[1].Value.String(), "TestErrorAttrs") {
		t.Fatalf("ErrorAttrs(traced) = %v", attrs)
	}
}

// TestLogError writes one record with the error attached.
func TestLogError(t *testing.T) {
	t.Parallel()

	var records []slog.Record
	logger := slog.New(handlerFunc(func(r slog.Record) { records = append(records, r) }))
	boom := errors.New("boom")

	LogError(context.Background(), logger, slog.LevelError, "failed", boom, slog.String("op", "save"))
	LogError(context.Background(), logger, slog.LevelError, "no error", nil)

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	var gotErr any
	var gotOp string
	records[0].Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case ErrorKey:
			gotErr = a.Value.Any()
		case "op":
			gotOp = a.Value.String()
		}
		return true
	})
	if gotErr != boom || gotOp != "save" {
		t.Fatalf("attrs error=%v op=%q", gotErr, gotOp)
	}
}

type handlerFunc func(slog.Record)

func (h handlerFunc) Enabled(context.Context, slog.Level) bool  { return true }
func (h handlerFunc) Handle(_ context.Context, r slog.Record) error { h(r); return nil }
func (h handlerFunc) WithAttrs([]slog.Attr) slog.Handler          { return h }
func (h handlerFunc) WithGroup(string) slog.Handler               { return h }
