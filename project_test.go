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
	"errors"
	"sync"
	"testing"
)

// TestNormalizeProjectID covers prefixes, casing and invalid input.
func TestNormalizeProjectID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" my-project-1 ", "my-project-1", true},
		{"projects/My-Project", "my-project", true},
		{"example.com:scoped-proj", "example.com:scoped-proj", true},
		{"", "", false},
		{"a", "", false},
		{"projects/x/traces", "", false},
		{"1starts-with-digit", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeProjectID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeProjectID(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func resetDetection(t *testing.T, gce bool, id string, err error) {
	t.Helper()
	for _, name := range projectEnvVars {
		t.Setenv(name, "")
	}
	resetEnvProject(t)

	prevOnGCE, prevLookup := onGCE, metadataProjectID
	detectedProjectOnce = sync.Once{}
	detectedProjectID = ""
	onGCE = func() bool { return gce }
	metadataProjectID = func(context.Context) (string, error) { return id, err }
	t.Cleanup(func() {
		onGCE, metadataProjectID = prevOnGCE, prevLookup
		detectedProjectOnce = sync.Once{}
		detectedProjectID = ""
	})
}

// TestDetectProjectIDPrefersEnvironment avoids the metadata server when configured.
func TestDetectProjectIDPrefersEnvironment(t *testing.T) {
	resetDetection(t, true, "metadata-project", nil)
	t.Setenv("SLOGPROBLEM_PROJECT_ID", "env-project")

	if got := DetectProjectID(context.Background()); got != "env-project" {
		t.Fatalf("DetectProjectID = %q", got)
	}
}

// TestDetectProjectIDFromMetadata asks the metadata server on GCE.
func TestDetectProjectIDFromMetadata(t *testing.T) {
	resetDetection(t, true, "metadata-project", nil)

	if got := DetectProjectID(context.Background()); got != "metadata-project" {
		t.Fatalf("DetectProjectID = %q", got)
	}
}

// TestDetectProjectIDOffGCE returns empty without touching metadata.
func TestDetectProjectIDOffGCE(t *testing.T) {
	resetDetection(t, false, "", nil)
	metadataProjectID = func(context.Context) (string, error) {
		t.Fatalf("metadata server queried off GCE")
		return "", nil
	}

	if got := DetectProjectID(context.Background()); got != "" {
		t.Fatalf("DetectProjectID = %q", got)
	}
}

// TestDetectProjectIDMetadataError yields an empty project.
func TestDetectProjectIDMetadataError(t *testing.T) {
	resetDetection(t, true, "", errors.New("metadata unavailable"))

	if got := DetectProjectID(context.Background()); got != "" {
		t.Fatalf("DetectProjectID = %q", got)
	}
}
