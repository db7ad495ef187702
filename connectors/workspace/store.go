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

// Package workspace provides read-only access to the cloud workspace
// configuration (host and enablement flag) for the workspace-hosted LLM
// provider. The configuration is written by the admin UI; the gateway
// only ever reads it.
package workspace

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConfigured is returned when no workspace configuration exists or
// the workspace integration is disabled.
var ErrNotConfigured = errors.New("workspace not configured")

// Config holds the workspace connection settings the gateway consumes.
type Config struct {
	// Host is the workspace base URL. May be stored as a bare hostname;
	// callers are responsible for scheme normalization.
	Host string `json:"host"`

	// Enabled indicates whether the workspace integration is active.
	Enabled bool `json:"enabled"`
}

// Store is a read-only lookup of the workspace configuration.
type Store interface {
	Get(ctx context.Context) (*Config, error)
}

// StaticStore is an in-memory Store for development and tests.
type StaticStore struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStaticStore creates a StaticStore holding the given configuration.
// A nil config means "not configured".
func NewStaticStore(cfg *Config) *StaticStore {
	return &StaticStore{cfg: cfg}
}

// Get returns the stored configuration.
func (s *StaticStore) Get(ctx context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil || !s.cfg.Enabled {
		return nil, ErrNotConfigured
	}
	cfg := *s.cfg
	return &cfg, nil
}

// Set replaces the stored configuration (for tests).
func (s *StaticStore) Set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}
