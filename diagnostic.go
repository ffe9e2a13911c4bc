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
	"log/slog"
	"sync"
)

// DiagnosticContext collects properties for the single completion record
// written when a request finishes. Implementations must be safe for
// concurrent use.
type DiagnosticContext interface {
	// Set records a property on the completion record. Setting the same key
	// again replaces the earlier value.
	Set(key string, value any)
	// SetError records the error associated with the request. Only one error
	// is kept; a later call replaces an earlier one.
	SetError(err error)
}

// Collector is the per-request DiagnosticContext created by the request
// logging middleware. The zero value is ready to use.
type Collector struct {
	mu        sync.Mutex
	keys      []string
	values    map[string]any
	err       error
	completed bool
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Set implements DiagnosticContext.
func (c *Collector) Set(key string, value any) {
	if c == nil || key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, exists := c.values[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// SetError implements DiagnosticContext. A nil err is ignored.
func (c *Collector) SetError(err error) {
	if c == nil || err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return
	}
	c.err = err
}

// Err returns the error recorded so far, if any.
func (c *Collector) Err() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Complete closes the collector and returns the collected properties in the
// order they were first set, along with the recorded error. Writes made after
// Complete are discarded.
func (c *Collector) Complete() ([]slog.Attr, error) {
	if c == nil {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
	if len(c.keys) == 0 {
		return nil, c.err
	}
	attrs := make([]slog.Attr, 0, len(c.keys))
	for _, key := range c.keys {
		attrs = append(attrs, slog.Any(key, c.values[key]))
	}
	return attrs, c.err
}

type discardDiagnostics struct{}

func (discardDiagnostics) Set(string, any) {}
func (discardDiagnostics) SetError(error)  {}
