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
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// Write sends details as an application/problem+json response, filling in
// the type, title and traceId members that are missing. A nil opts means
// DefaultOptions.
func Write(w http.ResponseWriter, r *http.Request, opts *Options, details *Details) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if details == nil {
		details = New(http.StatusInternalServerError)
	}
	writeDetails(w, r, opts, details.Clone(), nil)
}

func writeDetails(w http.ResponseWriter, r *http.Request, opts *Options, details *Details, cause error) {
	if details.Status == 0 {
		details.Status = http.StatusInternalServerError
	}
	if details.Title == "" {
		details.Title = http.StatusText(details.Status)
	}
	if details.Type == "" {
		prefix := opts.TypePrefix
		if prefix == "" {
			prefix = DefaultTypePrefix
		}
		details.Type = prefix + strconv.Itoa(details.Status)
	}
	if _, ok := details.Extensions[TraceIDKey]; !ok && opts.GetTraceID != nil {
		if id := opts.GetTraceID(r); id != "" {
			details.Set(TraceIDKey, id)
		}
	}
	if opts.OnBeforeWriteDetails != nil {
		opts.OnBeforeWriteDetails(r, details)
	}

	h := w.Header()
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Del("Content-Length")
	w.WriteHeader(details.Status)
	if r.Method == http.MethodHead {
		return
	}
	if err := encodeJSON(w, details); err != nil {
		attrs := []slog.Attr{slog.Any("error", err), slog.Int("status", details.Status)}
		if cause != nil {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}
		opts.logger(r).LogAttrs(r.Context(), slog.LevelWarn, "write problem details", attrs...)
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
