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
	"log/slog"
)

type contextKey int

const (
	loggerContextKey contextKey = iota
	diagnosticContextKey
)

// ContextWithLogger returns a child context that stores logger so handlers can
// retrieve a request-scoped logger later in the call chain.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves a logger stored in ctx via ContextWithLogger. If no logger
// is found, slog.Default() is returned to ensure callers always receive a
// usable logger.
func Logger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// ContextWithDiagnosticContext returns a child context carrying dc. The
// request logging middleware installs one per request.
func ContextWithDiagnosticContext(ctx context.Context, dc DiagnosticContext) context.Context {
	if ctx == nil || dc == nil {
		return ctx
	}
	return context.WithValue(ctx, diagnosticContextKey, dc)
}

// DiagnosticContextFromContext returns the diagnostic context stored in ctx.
func DiagnosticContextFromContext(ctx context.Context) (DiagnosticContext, bool) {
	if ctx == nil {
		return nil, false
	}
	dc, ok := ctx.Value(diagnosticContextKey).(DiagnosticContext)
	return dc, ok && dc != nil
}

// Diagnostics returns the diagnostic context stored in ctx, or a context that
// discards every write when the request is not being logged.
func Diagnostics(ctx context.Context) DiagnosticContext {
	if dc, ok := DiagnosticContextFromContext(ctx); ok {
		return dc
	}
	return discardDiagnostics{}
}
