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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ContentType is the media type of a problem details body.
const ContentType = "application/problem+json"

// DefaultTypePrefix is joined with the status code to form the default
// "type" member.
const DefaultTypePrefix = "https://httpstatuses.io/"

// Details is an RFC 7807 problem details object. Extensions are serialized
// as top-level members next to the standard ones.
type Details struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Instance   string
	Extensions map[string]any
}

// New returns Details for status with the standard reason phrase as title.
func New(status int) *Details {
	return &Details{
		Type:   DefaultTypePrefix + strconv.Itoa(status),
		Title:  http.StatusText(status),
		Status: status,
	}
}

// Set stores an extension member and returns d for chaining.
func (d *Details) Set(key string, value any) *Details {
	if d == nil {
		return nil
	}
	if d.Extensions == nil {
		d.Extensions = make(map[string]any)
	}
	d.Extensions[key] = value
	return d
}

// Clone returns a copy of d with its own Extensions map.
func (d *Details) Clone() *Details {
	if d == nil {
		return nil
	}
	out := *d
	if d.Extensions != nil {
		out.Extensions = make(map[string]any, len(d.Extensions))
		for k, v := range d.Extensions {
			out.Extensions[k] = v
		}
	}
	return &out
}

var reservedMembers = map[string]struct{}{
	"type": {}, "title": {}, "status": {}, "detail": {}, "instance": {},
}

// MarshalJSON implements json.Marshaler. Extensions whose name collides with
// a standard member are dropped.
func (d Details) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, len(d.Extensions)+5)
	for k, v := range d.Extensions {
		if _, reserved := reservedMembers[k]; reserved {
			continue
		}
		body[k] = v
	}
	if d.Type != "" {
		body["type"] = d.Type
	}
	if d.Title != "" {
		body["title"] = d.Title
	}
	if d.Status != 0 {
		body["status"] = d.Status
	}
	if d.Detail != "" {
		body["detail"] = d.Detail
	}
	if d.Instance != "" {
		body["instance"] = d.Instance
	}
	var buf bytes.Buffer
	if err := encodeJSON(&buf, body); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON implements json.Unmarshaler so clients can decode problem
// responses, including unknown members into Extensions.
func (d *Details) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode problem details: %w", err)
	}
	*d = Details{}
	for key, value := range raw {
		var err error
		switch key {
		case "type":
			err = json.Unmarshal(value, &d.Type)
		case "title":
			err = json.Unmarshal(value, &d.Title)
		case "status":
			err = json.Unmarshal(value, &d.Status)
		case "detail":
			err = json.Unmarshal(value, &d.Detail)
		case "instance":
			err = json.Unmarshal(value, &d.Instance)
		default:
			var ext any
			err = json.Unmarshal(value, &ext)
			d.Set(key, ext)
		}
		if err != nil {
			return fmt.Errorf("decode problem member %q: %w", key, err)
		}
	}
	return nil
}

// Error is an error that carries the problem details to respond with.
type Error struct {
	Details *Details
	Err     error
}

// NewError returns an *Error with status and detail.
func NewError(status int, detail string) *Error {
	d := New(status)
	d.Detail = detail
	return &Error{Details: d}
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil || e.Details == nil {
		return "problem"
	}
	msg := fmt.Sprintf("%d %s", e.Details.Status, e.Details.Title)
	if e.Details.Detail != "" {
		msg += ": " + e.Details.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCoder is implemented by errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// httpStatuser matches error types that expose HTTPStatus() instead, such as
// transport-agnostic application error types.
type httpStatuser interface {
	HTTPStatus() int
}
