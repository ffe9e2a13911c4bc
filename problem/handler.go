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
	"context"
	"net/http"
	"sync"
)

// Handler serves an HTTP request and reports failure by returning an error.
// An error returned before anything was written to w is translated into a
// problem response by Middleware.
type Handler interface {
	Serve(w http.ResponseWriter, r *http.Request) error
}

// HandlerFunc adapts a function to Handler. It also implements http.Handler
// so it can be registered on ordinary routers; served that way, the returned
// error is handed to the nearest enclosing Adapt.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Serve implements Handler.
func (f HandlerFunc) Serve(w http.ResponseWriter, r *http.Request) error {
	return f(w, r)
}

// ServeHTTP implements http.Handler. Outside of Adapt there is nobody to
// hand the error to, so a bare 500 is written instead.
func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}
	if Report(r.Context(), err) {
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type errorSlotKey struct{}

type errorSlot struct {
	mu  sync.Mutex
	err error
}

// Report hands err to the enclosing Adapt. The first reported error wins.
// It returns false when ctx does not belong to a request served by Adapt.
func Report(ctx context.Context, err error) bool {
	if ctx == nil || err == nil {
		return false
	}
	slot, ok := ctx.Value(errorSlotKey{}).(*errorSlot)
	if !ok {
		return false
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.err == nil {
		slot.err = err
	}
	return true
}

// Adapt turns h into a Handler that returns the first error reported by a
// HandlerFunc (or Report) while h served the request.
func Adapt(h http.Handler) Handler {
	if hf, ok := h.(HandlerFunc); ok {
		return hf
	}
	return adapted{h: h}
}

type adapted struct {
	h http.Handler
}

// Serve implements Handler.
func (a adapted) Serve(w http.ResponseWriter, r *http.Request) error {
	if a.h == nil {
		http.NotFound(w, r)
		return nil
	}
	slot := &errorSlot{}
	a.h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), errorSlotKey{}, slot)))
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.err
}
