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

package requestlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// RequestScope captures request metadata surfaced to handlers via context.
type RequestScope struct {
	start     time.Time
	method    string
	route     string
	target    string
	query     string
	host      string
	clientIP  string
	userAgent string

	status    atomic.Int64
	respBytes atomic.Int64
	latencyNS atomic.Int64
}

const unsetLatencySentinel = int64(-1)

// newRequestScope builds a RequestScope capturing request metadata and defaults.
func newRequestScope(r *http.Request, start time.Time, cfg *config) *RequestScope {
	scope := &RequestScope{start: start}
	if r != nil {
		scope.method = r.Method
		scope.host = r.Host
		scope.userAgent = r.UserAgent()
		if r.URL != nil {
			scope.target = r.URL.Path
			scope.query = r.URL.RawQuery
		}
		if cfg.includeClientIP {
			scope.clientIP = extractIP(r.RemoteAddr)
		}
		if cfg.routeGetter != nil {
			scope.route = strings.TrimSpace(cfg.routeGetter(r))
		}
	}
	scope.status.Store(http.StatusOK)
	scope.latencyNS.Store(unsetLatencySentinel)
	return scope
}

// loggerAttrs assembles the attributes carried by the request-scoped logger.
func (rs *RequestScope) loggerAttrs(cfg *config, traceAttrs []slog.Attr) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(traceAttrs)+6)
	attrs = append(attrs, traceAttrs...)
	if rs.method != "" {
		attrs = append(attrs, slog.String("http.method", rs.method))
	}
	if rs.target != "" {
		attrs = append(attrs, slog.String("http.target", rs.target))
	}
	if rs.route != "" {
		attrs = append(attrs, slog.String("http.route", rs.route))
	}
	if cfg.includeClientIP && rs.clientIP != "" {
		attrs = append(attrs, slog.String("network.peer.ip", rs.clientIP))
	}
	if cfg.includeUserAgent && rs.userAgent != "" {
		attrs = append(attrs, slog.String("http.user_agent", rs.userAgent))
	}
	return attrs
}

// Method returns the HTTP method.
func (rs *RequestScope) Method() string { return rs.method }

// Target returns the request path component.
func (rs *RequestScope) Target() string { return rs.target }

// Query returns the raw query string without the '?' prefix.
func (rs *RequestScope) Query() string { return rs.query }

// Route returns the resolved route template, if provided.
func (rs *RequestScope) Route() string { return rs.route }

// Host returns the request host.
func (rs *RequestScope) Host() string { return rs.host }

// ClientIP returns the parsed remote address.
func (rs *RequestScope) ClientIP() string { return rs.clientIP }

// UserAgent returns the request's User-Agent header.
func (rs *RequestScope) UserAgent() string { return rs.userAgent }

// Start returns the time the request began processing.
func (rs *RequestScope) Start() time.Time { return rs.start }

// Status returns the response status code with a default of 200.
func (rs *RequestScope) Status() int {
	code := rs.status.Load()
	if code == 0 {
		return http.StatusOK
	}
	return int(code)
}

// Latency returns the latency and whether it is finalized.
func (rs *RequestScope) Latency() (time.Duration, bool) {
	ns := rs.latencyNS.Load()
	if ns != unsetLatencySentinel {
		return time.Duration(ns), true
	}
	return time.Since(rs.start), false
}

// ResponseSize returns the number of bytes written to the client.
func (rs *RequestScope) ResponseSize() int64 {
	return rs.respBytes.Load()
}

func (rs *RequestScope) setStatus(code int) {
	if code <= 0 {
		code = http.StatusOK
	}
	rs.status.Store(int64(code))
}

// finalize stores the terminal status, byte count, and latency for the request.
func (rs *RequestScope) finalize(status int, bytes int64, d time.Duration) {
	rs.setStatus(status)
	if bytes >= 0 {
		rs.respBytes.Store(bytes)
	}
	if d < 0 {
		d = 0
	}
	rs.latencyNS.Store(d.Nanoseconds())
}

type requestScopeKey struct{}

// ScopeFromContext retrieves the RequestScope placed in the request context by
// Middleware.
func ScopeFromContext(ctx context.Context) (*RequestScope, bool) {
	if ctx == nil {
		return nil, false
	}
	scope, ok := ctx.Value(requestScopeKey{}).(*RequestScope)
	return scope, ok && scope != nil
}

type responseRecorder struct {
	http.ResponseWriter
	scope        *RequestScope
	status       int
	wroteHeader  bool
	bytesWritten int64
}

// wrapResponseWriter decorates w to capture the status and body size.
func wrapResponseWriter(w http.ResponseWriter, scope *RequestScope) *responseRecorder {
	return &responseRecorder{
		ResponseWriter: w,
		scope:          scope,
		status:         http.StatusOK,
	}
}

// WriteHeader records the final status code before delegating. Informational
// statuses pass through without being recorded.
func (rr *responseRecorder) WriteHeader(status int) {
	if rr.wroteHeader || (status >= 100 && status < 200) {
		rr.ResponseWriter.WriteHeader(status)
		return
	}
	rr.status = status
	rr.scope.setStatus(status)
	rr.wroteHeader = true
	rr.ResponseWriter.WriteHeader(status)
}

// Write records bytes written and forwards the call to the underlying writer.
func (rr *responseRecorder) Write(p []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(p)
	rr.bytesWritten += int64(n)
	if err != nil {
		return n, fmt.Errorf("write response body: %w", err)
	}
	return n, nil
}

// ReadFrom streams data from src while tracking bytes for logging.
func (rr *responseRecorder) ReadFrom(src io.Reader) (int64, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	var (
		n   int64
		err error
	)
	if rf, ok := rr.ResponseWriter.(io.ReaderFrom); ok {
		n, err = rf.ReadFrom(src)
	} else {
		n, err = io.Copy(rr.ResponseWriter, src)
	}
	rr.bytesWritten += n
	if err != nil {
		return n, fmt.Errorf("copy response body: %w", err)
	}
	return n, nil
}

// Status returns the HTTP status code that was written to the client.
func (rr *responseRecorder) Status() int { return rr.status }

// BytesWritten reports the cumulative number of bytes sent to the client.
func (rr *responseRecorder) BytesWritten() int64 { return rr.bytesWritten }

// Unwrap exposes the underlying ResponseWriter for http.ResponseController.
func (rr *responseRecorder) Unwrap() http.ResponseWriter { return rr.ResponseWriter }

// Flush forwards the flush request to the underlying ResponseWriter when supported.
func (rr *responseRecorder) Flush() {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	if flusher, ok := rr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack delegates to the wrapped Hijacker when supported.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rr.ResponseWriter.(http.Hijacker); ok {
		conn, rw, err := hijacker.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, rw, nil
	}
	return nil, nil, http.ErrNotSupported
}

// extractIP strips the port from a host:port string.
func extractIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// loggerWithAttrs returns a logger enriched with the supplied attributes.
func loggerWithAttrs(base *slog.Logger, attrs []slog.Attr) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	if len(attrs) == 0 {
		return base
	}
	return slog.New(base.Handler().WithAttrs(attrs))
}
