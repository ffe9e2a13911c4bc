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
	"testing"
)

// TestPropagationDisabled parses the opt-out variable.
func TestPropagationDisabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"", false},
		{"true", true},
		{" 1 ", true},
		{"false", false},
		{"nonsense", false},
	}
	for _, tt := range tests {
		t.Setenv(DisablePropagatorEnv, tt.value)
		if got := propagationDisabled(); got != tt.want {
			t.Errorf("propagationDisabled(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
