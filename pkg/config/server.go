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

package config

import (
	"errors"

	srhttp "github.com/wavesentry/wavesentry/pkg/http"
	"github.com/wavesentry/wavesentry/pkg/logger"
)

var errMissingListenAddr = errors.New("listen_addr is required")

// ServerConfig is the daemon's configuration document.
type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`

	// APIKey gates the whole API surface when set.
	APIKey string `json:"api_key,omitempty"`

	// JWTSecret validates session tokens on write endpoints. Unset means
	// no session is ever valid and renames are silently inert.
	JWTSecret string `json:"jwt_secret,omitempty"`

	CORS srhttp.CORSConfig `json:"cors,omitempty"`

	Logging *logger.Config `json:"logging,omitempty"`
}

// Validate implements Validator.
func (c *ServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errMissingListenAddr
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return nil
}
