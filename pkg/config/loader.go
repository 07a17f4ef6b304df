/*
 * Copyright 2026 the WaveSentry Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads service configuration from a JSON file or from the
// environment and validates it before the daemon starts serving.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/wavesentry/wavesentry/pkg/logger"
)

// Validator is implemented by configuration structs that can check
// themselves after loading.
type Validator interface {
	Validate() error
}

// ConfigLoader loads configuration into dst from some source.
type ConfigLoader interface {
	Load(ctx context.Context, path string, dst interface{}) error
}

// FileConfigLoader loads configuration from a local JSON file.
type FileConfigLoader struct{}

// Load implements ConfigLoader by reading and unmarshaling a JSON file.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	err = json.Unmarshal(data, dst)
	if err != nil {
		return fmt.Errorf("failed to unmarshal JSON from '%s': %w", path, err)
	}

	return nil
}

var errMissingEnvConfig = errors.New("environment variable not set")

// EnvConfigLoader loads a complete JSON configuration document from a single
// environment variable, for containerized deployments without a config file.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates an environment config loader. All variables it
// reads carry the given prefix.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	return &EnvConfigLoader{logger: log, prefix: prefix}
}

// Load implements ConfigLoader by reading the <prefix>CONFIG_JSON variable.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	key := e.prefix + "CONFIG_JSON"

	raw := os.Getenv(key)
	if raw == "" {
		return fmt.Errorf("%w: %s", errMissingEnvConfig, key)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	if e.logger != nil {
		e.logger.Info().Str("variable", key).Msg("Loaded configuration from environment")
	}

	return nil
}
