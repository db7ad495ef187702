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

package gateway

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway service configuration. Values come from an
// optional YAML file named by GATEWAY_CONFIG_FILE, with environment
// variables taking precedence over the file.
type Config struct {
	Port string `yaml:"port"`

	// DatabaseURL enables the Postgres model store. Empty runs the
	// service with an in-memory store.
	DatabaseURL string `yaml:"database_url"`

	// RedisAddr enables the Redis workspace config store. Empty means
	// no workspace provider.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	// SecretsBackend selects the credential source: "aws" for Secrets
	// Manager, anything else for environment variables.
	SecretsBackend string `yaml:"secrets_backend"`
	SecretsPrefix  string `yaml:"secrets_prefix"`
	AWSRegion      string `yaml:"aws_region"`

	// BedrockRegion enables the Bedrock embedding backend.
	BedrockRegion string `yaml:"bedrock_region"`

	// Default embedding model used when callers name none.
	EmbeddingProvider string `yaml:"embedding_provider"`
	EmbeddingModel    string `yaml:"embedding_model"`

	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoadConfig builds the service configuration from the optional config
// file plus the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		SecretsBackend: "env",
		AllowedOrigins: []string{"*"},
	}

	if path := os.Getenv("GATEWAY_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Port, "PORT")
	applyEnv(&cfg.DatabaseURL, "DATABASE_URL")
	applyEnv(&cfg.RedisAddr, "REDIS_ADDR")
	applyEnv(&cfg.RedisPassword, "REDIS_PASSWORD")
	applyEnv(&cfg.SecretsBackend, "SECRETS_BACKEND")
	applyEnv(&cfg.SecretsPrefix, "SECRETS_PREFIX")
	applyEnv(&cfg.AWSRegion, "AWS_REGION")
	applyEnv(&cfg.BedrockRegion, "BEDROCK_REGION")
	applyEnv(&cfg.EmbeddingProvider, "EMBEDDING_PROVIDER")
	applyEnv(&cfg.EmbeddingModel, "EMBEDDING_MODEL")

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}

	return cfg, nil
}

func applyEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
