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

package llm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// PostgresModelStore implements ModelStore against the model_configs
// table owned by the configuration UI. The gateway reads it freshly on
// every call by design; operators expect alias edits to take effect on
// the next invocation without a restart.
type PostgresModelStore struct {
	db *sql.DB
}

// NewPostgresModelStore creates a PostgreSQL-backed model store.
func NewPostgresModelStore(db *sql.DB) *PostgresModelStore {
	return &PostgresModelStore{db: db}
}

// GetModelConfig resolves an alias to its stored provider and model name.
func (s *PostgresModelStore) GetModelConfig(ctx context.Context, alias string) (*ModelConfig, error) {
	query := `
		SELECT provider, model_name
		FROM model_configs
		WHERE alias = $1
	`

	var cfg ModelConfig
	err := s.db.QueryRowContext(ctx, query, alias).Scan(&cfg.Provider, &cfg.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &ConfigNotFoundError{Alias: alias}
		}
		return nil, fmt.Errorf("failed to load model config for alias %q: %w", alias, err)
	}

	return &cfg, nil
}

// MemoryModelStore is an in-memory ModelStore for tests and single-node
// development.
type MemoryModelStore struct {
	mu      sync.RWMutex
	configs map[string]ModelConfig
}

// NewMemoryModelStore creates a MemoryModelStore seeded with the given
// alias mappings.
func NewMemoryModelStore(seed map[string]ModelConfig) *MemoryModelStore {
	configs := make(map[string]ModelConfig, len(seed))
	for alias, cfg := range seed {
		configs[alias] = cfg
	}
	return &MemoryModelStore{configs: configs}
}

// GetModelConfig resolves an alias from the in-memory map.
func (s *MemoryModelStore) GetModelConfig(ctx context.Context, alias string) (*ModelConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cfg, ok := s.configs[alias]; ok {
		out := cfg
		return &out, nil
	}
	return nil, &ConfigNotFoundError{Alias: alias}
}

// Set stores or replaces an alias mapping.
func (s *MemoryModelStore) Set(alias string, cfg ModelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[alias] = cfg
}

// Ensure both stores implement ModelStore.
var (
	_ ModelStore = (*PostgresModelStore)(nil)
	_ ModelStore = (*MemoryModelStore)(nil)
)
