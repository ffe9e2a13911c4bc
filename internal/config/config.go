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

// Package config loads the demo server's settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by Load.
const (
	envAddr         = "SLOGPROBLEM_ADDR"
	envLogLevel     = "SLOGPROBLEM_LOG_LEVEL"
	envEnv          = "SLOGPROBLEM_ENV"
	envRateLimitRPM = "SLOGPROBLEM_RATE_LIMIT_RPM"
	envCORSOrigins  = "SLOGPROBLEM_CORS_ORIGINS"
	envProjectID    = "SLOGPROBLEM_PROJECT_ID"
)

// Config holds the demo server configuration.
type Config struct {
	Env          string
	Addr         string
	LogLevel     slog.Level
	RateLimitRPM int
	CORSOrigins  []string
	ProjectID    string
}

// IsDev reports whether the server runs in the dev environment.
func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads a .env file from the working directory when present, then
// builds a Config from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the environment without touching .env files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:       getEnvOrDefault(envEnv, "dev"),
		Addr:      getEnvOrDefault(envAddr, ":8080"),
		ProjectID: strings.TrimSpace(os.Getenv(envProjectID)),
	}
	if cfg.Env != "dev" && cfg.Env != "prod" {
		return nil, fmt.Errorf("%s must be one of: dev, prod (got: %s)", envEnv, cfg.Env)
	}

	level, err := parseLevel(getEnvOrDefault(envLogLevel, "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	cfg.RateLimitRPM, err = getEnvIntOrDefault(envRateLimitRPM, 120)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimitRPM < 0 {
		return nil, fmt.Errorf("%s must not be negative (got: %d)", envRateLimitRPM, cfg.RateLimitRPM)
	}

	cfg.CORSOrigins = splitList(os.Getenv(envCORSOrigins))
	if len(cfg.CORSOrigins) == 0 && cfg.IsDev() {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}
	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("%s: %w", envLogLevel, err)
	}
	return level, nil
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer (got: %s)", key, v)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
