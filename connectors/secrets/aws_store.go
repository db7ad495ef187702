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

package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// secretsAPI is the subset of the Secrets Manager client used by AWSStore
// (enables testing without AWS).
type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSStore implements Store using AWS Secrets Manager.
//
// Secrets are looked up as "<prefix><key>". The secret value may be either
// a raw string or a JSON object with a "value" field; both forms are accepted
// so operators can store keys the way their tooling prefers.
type AWSStore struct {
	client secretsAPI
	prefix string
	cache  map[string]*cacheEntry
	mu     sync.RWMutex
	ttl    time.Duration
	logger *log.Logger
	now    func() time.Time
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// AWSStoreOptions holds options for creating an AWSStore.
type AWSStoreOptions struct {
	Region   string
	Prefix   string // secret name prefix, e.g. "modelmesh/gateway/"
	CacheTTL time.Duration
	Logger   *log.Logger
}

// NewAWSStore creates a Secrets Manager backed store.
func NewAWSStore(ctx context.Context, opts AWSStoreOptions) (*AWSStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[SECRETS] ", log.LstdFlags)
	}

	cfgOpts := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(opts.Region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &AWSStore{
		client: secretsmanager.NewFromConfig(cfg),
		prefix: opts.Prefix,
		cache:  make(map[string]*cacheEntry),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// GetSecret retrieves a secret from AWS Secrets Manager, caching hits for
// the configured TTL.
func (s *AWSStore) GetSecret(ctx context.Context, key string) (string, error) {
	name := s.prefix + key

	s.mu.RLock()
	entry, exists := s.cache[name]
	s.mu.RUnlock()

	if exists && s.now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, maskKey(key))
		}
		return "", fmt.Errorf("failed to get secret %s: %w", maskKey(key), err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", maskKey(key))
	}
	value := *result.SecretString

	// Accept both raw strings and {"value": "..."} JSON objects.
	var wrapped map[string]string
	if err := json.Unmarshal([]byte(value), &wrapped); err == nil {
		if v, ok := wrapped["value"]; ok {
			value = v
		}
	}

	s.mu.Lock()
	s.cache[name] = &cacheEntry{
		value:     value,
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()

	s.logger.Printf("Retrieved and cached secret %s", maskKey(key))
	return value, nil
}

// Invalidate removes a secret from the cache.
func (s *AWSStore) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, s.prefix+key)
	s.mu.Unlock()
}

// InvalidateAll clears the entire secret cache.
func (s *AWSStore) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]*cacheEntry)
	s.mu.Unlock()
}
