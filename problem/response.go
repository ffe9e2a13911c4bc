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
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
)

// responseState tracks whether the response has been committed. Error
// statuses set without a body are held back so a problem body can still be
// written for them.
type responseState struct {
	http.ResponseWriter
	holdErrorStatus bool
	heldStatus      int
	started         bool
}

func newResponseState(w http.ResponseWriter, holdErrorStatus bool) *responseState {
	return &responseState{ResponseWriter: w, holdErrorStatus: holdErrorStatus}
}

// WriteHeader implements http.ResponseWriter.
func (rs *responseState) WriteHeader(status int) {
	if rs.started {
		rs.ResponseWriter.WriteHeader(status)
		return
	}
	if status >= 100 && status < 200 {
		rs.ResponseWriter.WriteHeader(status)
		return
	}
	if rs.holdErrorStatus && status >= http.StatusBadRequest {
		rs.heldStatus = status
		return
	}
	rs.commit(status)
}

// Write implements http.ResponseWriter.
func (rs *responseState) Write(p []byte) (int, error) {
	rs.commitHeld()
	return rs.ResponseWriter.Write(p)
}

// ReadFrom keeps io.Copy on the fast path of the wrapped writer.
func (rs *responseState) ReadFrom(src io.Reader) (int64, error) {
	rs.commitHeld()
	if rf, ok := rs.ResponseWriter.(io.ReaderFrom); ok {
		n, err := rf.ReadFrom(src)
		if err != nil {
			return n, fmt.Errorf("read from body: %w", err)
		}
		return n, nil
	}
	n, err := io.Copy(rs.ResponseWriter, src)
	if err != nil {
		return n, fmt.Errorf("copy response body: %w", err)
	}
	return n, nil
}

// Flush commits any held status before flushing.
func (rs *responseState) Flush() {
	rs.commitHeld()
	if f, ok := rs.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection over; the response counts as started.
func (rs *responseState) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rs.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	rs.started = true
	conn, rw, err := h.Hijack()
	if err != nil {
		return nil, nil, fmt.Errorf("hijack connection: %w", err)
	}
	return conn, rw, nil
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rs *responseState) Unwrap() http.ResponseWriter {
	return rs.ResponseWriter
}

func (rs *responseState) commit(status int) {
	rs.started = true
	rs.heldStatus = 0
	rs.ResponseWriter.WriteHeader(status)
}

func (rs *responseState) commitHeld() {
	if rs.started {
		return
	}
	if rs.heldStatus != 0 {
		rs.commit(rs.heldStatus)
		return
	}
	rs.started = true
}

// take marks the response as started and returns the wrapped writer, for
// writing a problem response directly.
func (rs *responseState) take() http.ResponseWriter {
	rs.started = true
	rs.heldStatus = 0
	return rs.ResponseWriter
}

// bodylessErrorStatus reports an error status that was set but never
// followed by a body.
func (rs *responseState) bodylessErrorStatus() (int, bool) {
	if rs.started || rs.heldStatus == 0 {
		return 0, false
	}
	return rs.heldStatus, true
}

// resetHeaders drops every header except the allowed ones.
func (rs *responseState) resetHeaders(allowed []string) {
	h := rs.Header()
	keep := make(map[string][]string, len(allowed))
	for _, name := range allowed {
		canonical := http.CanonicalHeaderKey(name)
		if v, ok := h[canonical]; ok {
			keep[canonical] = v
		}
	}
	for name := range h {
		delete(h, name)
	}
	for name, v := range keep {
		h[name] = v
	}
	rs.heldStatus = 0
}
