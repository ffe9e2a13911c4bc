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
	"fmt"
	"log/slog"
)

// ErrorKey is the attribute key under which the request's error is logged.
// The attribute value is the error itself, so sinks can compare identity.
const ErrorKey = "error"

// StackTraceKey is the attribute key holding a formatted Go stack trace.
const StackTraceKey = "stack_trace"

// PanicError wraps a recovered panic value that was not itself an error.
type PanicError struct {
	Value any
	Stack string
}

// Error implements error.
func (e *PanicError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if e == nil {
		return nil
	}
	err, _ := e.Value.(error)
	return err
}

// ErrorFromPanic converts a recovered value into an error. A value that is
// already an error is returned as is, so identity survives; anything else is
// wrapped in a *PanicError carrying stack.
func ErrorFromPanic(v any, stack string) error {
	if v == nil {
		return nil
	}
	if err, ok := v.(error); ok {
		return err
	}
	return &PanicError{Value: v, Stack: stack}
}

// IsPanic reports whether err originated from a recovered non-error panic.
func IsPanic(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// ErrorAttrs returns the attributes describing err on a log record: the
// error value under ErrorKey and, when the error remembers one, its stack
// under StackTraceKey.
func ErrorAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	attrs := []slog.Attr{slog.Any(ErrorKey, err)}
	if stack := stackOf(err); stack != "" {
		attrs = append(attrs, slog.String(StackTraceKey, stack))
	}
	return attrs
}

// LogError writes a single record for err at level using logger.
func LogError(ctx context.Context, logger *slog.Logger, level slog.Level, msg string, err error, attrs ...slog.Attr) {
	if logger == nil || err == nil {
		return
	}
	if !logger.Enabled(ctx, level) {
		return
	}
	logger.LogAttrs(ctx, level, msg, append(ErrorAttrs(err), attrs...)...)
}
