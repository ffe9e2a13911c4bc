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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envAddr, envLogLevel, envEnv, envRateLimitRPM, envCORSOrigins, envProjectID} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 120, cfg.RateLimitRPM)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(envEnv, "prod")
	t.Setenv(envAddr, ":9090")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envRateLimitRPM, "0")
	t.Setenv(envCORSOrigins, "https://a.example.com, ,https://b.example.com")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 0, cfg.RateLimitRPM)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		envEnv:          "staging",
		envLogLevel:     "loud",
		envRateLimitRPM: "many",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.ErrorContains(t, err, key)
		})
	}

	clearEnv(t)
	t.Setenv(envRateLimitRPM, "-1")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestDotEnvFileIsReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(envAddr+"=:7070\n"), 0o600))

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", values[envAddr])
}
