// Copyright 2025 ModelMesh
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

// Package secrets provides read-only credential lookup for the gateway.
//
// The gateway never writes secrets; provider API keys and workspace tokens
// are provisioned by operators (or the configuration UI) into one of the
// supported backends: AWS Secrets Manager, environment variables, or an
// in-memory store for development and tests.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when a secret does not exist in the backend.
// Callers treat absence as "no credential", not as a failure.
var ErrNotFound = errors.New("secret not found")

// Store is a read-only secret lookup keyed by a logical secret name
// (e.g. "openai_api_key", "databricks_token").
type Store interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// StaticStore is an in-memory Store for development and tests.
type StaticStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewStaticStore creates a StaticStore seeded with the given secrets.
func NewStaticStore(seed map[string]string) *StaticStore {
	secrets := make(map[string]string, len(seed))
	for k, v := range seed {
		secrets[k] = v
	}
	return &StaticStore{secrets: secrets}
}

// GetSecret retrieves a secret from the in-memory map.
func (s *StaticStore) GetSecret(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.secrets[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, maskKey(key))
}

// SetSecret stores a secret (for tests and local development).
func (s *StaticStore) SetSecret(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
}

// EnvStore resolves secrets from environment variables. The logical key is
// uppercased: "openai_api_key" resolves to the OPENAI_API_KEY variable.
// Useful for single-tenant deployments without a secrets service.
type EnvStore struct {
	logger *log.Logger
}

// NewEnvStore creates a secrets store that reads from environment variables.
func NewEnvStore(logger *log.Logger) *EnvStore {
	if logger == nil {
		logger = log.New(os.Stdout, "[ENV_SECRETS] ", log.LstdFlags)
	}
	return &EnvStore{logger: logger}
}

// GetSecret retrieves a secret from the environment.
func (s *EnvStore) GetSecret(ctx context.Context, key string) (string, error) {
	envVar := strings.ToUpper(key)
	if value := os.Getenv(envVar); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, envVar)
}

// maskKey masks a secret key for logging (shows only the last 4 characters).
func maskKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return "..." + key[len(key)-4:]
}
