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

package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultConfigKey is the Redis key the admin UI writes the workspace
// configuration to as a JSON object.
const DefaultConfigKey = "workspace:config"

// RedisStore reads the workspace configuration from Redis. The admin UI
// owns the write side; the gateway only reads, so a missing key is an
// expected condition, not an outage.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisStoreOptions holds connection options for a RedisStore.
type RedisStoreOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string // defaults to DefaultConfigKey
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisStoreOptions) (*RedisStore, error) {
	key := opts.Key
	if key == "" {
		key = DefaultConfigKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{client: client, key: key}, nil
}

// Get reads and decodes the workspace configuration.
func (s *RedisStore) Get(ctx context.Context) (*Config, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if err == redis.Nil {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("malformed workspace config: %w", err)
	}
	if !cfg.Enabled {
		return nil, ErrNotConfigured
	}

	return &cfg, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
