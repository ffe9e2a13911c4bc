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
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pjscruggs/slogproblem/problem"
)

func TestProblemDetailsNeverLogsUnhandled(t *testing.T) {
	opts := ProblemDetails(nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.False(t, opts.ShouldLogUnhandledError(req, errors.New("x"), problem.New(http.StatusInternalServerError)))
	assert.Equal(t, problem.DefaultTypePrefix, opts.TypePrefix)
	assert.True(t, opts.StatusCodeProblems)
}

func TestProblemDetailsCallbackRunsLast(t *testing.T) {
	called := false
	opts := ProblemDetails(func(o *problem.Options) {
		called = true
		assert.False(t, o.ShouldLogUnhandledError(nil, nil, problem.New(http.StatusBadGateway)),
			"callback should observe the suppressed setting")
		o.ShouldLogUnhandledError = func(*http.Request, error, *problem.Details) bool { return true }
	})

	assert.True(t, called)
	assert.True(t, opts.ShouldLogUnhandledError(nil, nil, problem.New(http.StatusBadGateway)),
		"a deliberate override wins")
}
