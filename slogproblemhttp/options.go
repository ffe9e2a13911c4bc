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
	"net/http"

	"github.com/pjscruggs/slogproblem/problem"
)

// ProblemDetails returns problem.Options for use behind the capture relay:
// the defaults, with ShouldLogUnhandledError switched off so the completion
// record is the only record of an error, and then configure applied.
//
// configure runs last, so a caller that deliberately sets
// ShouldLogUnhandledError again gets its own setting.
func ProblemDetails(configure func(*problem.Options)) *problem.Options {
	opts := problem.DefaultOptions()
	opts.ShouldLogUnhandledError = neverUnhandled
	if configure != nil {
		configure(opts)
	}
	return opts
}

func neverUnhandled(*http.Request, error, *problem.Details) bool {
	return false
}
