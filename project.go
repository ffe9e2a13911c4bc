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
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/compute/metadata"
)

var projectIDPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{4,28}[a-z0-9]$|^[a-z0-9.-]+:[a-z][a-z0-9-]{4,28}[a-z0-9]$`)

var projectEnvVars = []string{
	"SLOGPROBLEM_PROJECT_ID",
	"GOOGLE_CLOUD_PROJECT",
	"GCLOUD_PROJECT",
	"GCP_PROJECT",
}

var (
	envProjectOnce sync.Once
	envProjectID   string

	detectedProjectOnce sync.Once
	detectedProjectID   string
)

// metadataTimeout bounds the metadata server lookup in DetectProjectID.
const metadataTimeout = 500 * time.Millisecond

// onGCE and metadataProjectID are swapped in tests.
var (
	onGCE             = metadata.OnGCE
	metadataProjectID = metadata.ProjectIDWithContext
)

// DetectProjectID returns the Google Cloud project that owns this process.
// Environment variables are consulted first (SLOGPROBLEM_PROJECT_ID,
// GOOGLE_CLOUD_PROJECT, GCLOUD_PROJECT, GCP_PROJECT); when none is set and the
// process runs on Google Cloud, the metadata server is asked. The result is
// computed once per process. An empty string means no project was found.
func DetectProjectID(ctx context.Context) string {
	detectedProjectOnce.Do(func() {
		if id := projectIDFromEnv(); id != "" {
			detectedProjectID = id
			return
		}
		if !onGCE() {
			return
		}
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
		defer cancel()
		id, err := metadataProjectID(ctx)
		if err != nil {
			return
		}
		detectedProjectID, _ = NormalizeProjectID(id)
	})
	return detectedProjectID
}

// projectIDFromEnv returns the first valid project ID found in the
// environment, computed once per process.
func projectIDFromEnv() string {
	envProjectOnce.Do(func() {
		for _, name := range projectEnvVars {
			if id, ok := NormalizeProjectID(os.Getenv(name)); ok {
				envProjectID = id
				return
			}
		}
	})
	return envProjectID
}

// NormalizeProjectID trims whitespace and an optional "projects/" prefix and
// lowercases raw. It reports false when the result is not a valid project ID.
func NormalizeProjectID(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if len(s) >= len("projects/") && strings.EqualFold(s[:len("projects/")], "projects/") {
		s = strings.TrimSpace(s[len("projects/"):])
	}
	s = strings.ToLower(s)
	if s == "" || strings.Contains(s, "/") || !projectIDPattern.MatchString(s) {
		return "", false
	}
	return s, true
}
