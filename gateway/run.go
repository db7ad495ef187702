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

// Package gateway runs the ModelMesh gateway service: an HTTP facade
// over model configuration resolution, credentialed chat completions,
// and multi-provider embeddings.
package gateway

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"modelmesh/gateway/connectors/secrets"
	"modelmesh/gateway/connectors/workspace"
	"modelmesh/gateway/gateway/audit"
	"modelmesh/gateway/gateway/llm"
	"modelmesh/gateway/shared/logger"
)

// Run is the service entry point. It wires the stores, the credential
// resolver, the embedder, and the facade from configuration, then
// serves the HTTP API until the process is stopped.
func Run() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()
	appLog := logger.New("gateway")

	secretStore := buildSecretStore(ctx, cfg)
	workspaceStore := buildWorkspaceStore(ctx, cfg, appLog)
	modelStore := buildModelStore(cfg, appLog)
	embedder := buildEmbedder(ctx, cfg, appLog)

	creds := llm.NewCredentialResolver(llm.CredentialResolverOptions{
		Secrets:   secretStore,
		Workspace: workspaceStore,
		Runtime:   llm.NewManagedRuntimeFromEnv(),
		Logger:    appLog,
	})

	var defaultEmbedding *llm.ModelConfig
	if cfg.EmbeddingProvider != "" && cfg.EmbeddingModel != "" {
		defaultEmbedding = &llm.ModelConfig{
			Provider: llm.ProviderType(cfg.EmbeddingProvider),
			Name:     cfg.EmbeddingModel,
		}
	}

	gw := llm.NewGateway(llm.GatewayOptions{
		Store:            modelStore,
		Credentials:      creds,
		Embedder:         embedder,
		Audit:            audit.NewCallLogger(nil),
		Logger:           appLog,
		DefaultEmbedding: defaultEmbedding,
	})

	server := NewServer(gw, appLog)

	router := mux.NewRouter()
	router.HandleFunc("/health", server.healthHandler).Methods("GET")
	router.Handle("/prometheus", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/api/llm/configure", server.configureHandler).Methods("POST")
	router.HandleFunc("/api/llm/complete", server.completeHandler).Methods("POST")
	router.HandleFunc("/api/llm/embed", server.embedHandler).Methods("POST")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	appLog.Info("", "gateway listening", map[string]interface{}{"port": cfg.Port})
	if err := http.ListenAndServe(":"+cfg.Port, corsMiddleware.Handler(router)); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// buildSecretStore selects the credential backend. AWS Secrets Manager
// when configured, environment variables otherwise.
func buildSecretStore(ctx context.Context, cfg *Config) secrets.Store {
	if cfg.SecretsBackend == "aws" {
		store, err := secrets.NewAWSStore(ctx, secrets.AWSStoreOptions{
			Region: cfg.AWSRegion,
			Prefix: cfg.SecretsPrefix,
		})
		if err != nil {
			log.Fatalf("Failed to initialize AWS secret store: %v", err)
		}
		return store
	}
	return secrets.NewEnvStore(nil)
}

// buildWorkspaceStore connects the Redis-backed workspace config when
// an address is configured. Workspace resolution is optional; without
// Redis the databricks provider simply has no host.
func buildWorkspaceStore(ctx context.Context, cfg *Config, appLog *logger.Logger) workspace.Store {
	if cfg.RedisAddr == "" {
		return workspace.NewStaticStore(nil)
	}

	store, err := workspace.NewRedisStore(ctx, workspace.RedisStoreOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		appLog.WarnErr("", "workspace store unavailable, continuing without it", err, nil)
		return workspace.NewStaticStore(nil)
	}
	return store
}

// buildModelStore opens the Postgres model store, or an empty in-memory
// store when no database is configured.
func buildModelStore(cfg *Config, appLog *logger.Logger) llm.ModelStore {
	if cfg.DatabaseURL == "" {
		appLog.Warn("", "no database configured, using in-memory model store", nil)
		return llm.NewMemoryModelStore(nil)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return llm.NewPostgresModelStore(db)
}

// buildEmbedder assembles the multi-provider embedder, attaching the
// Bedrock backend when a region is configured.
func buildEmbedder(ctx context.Context, cfg *Config, appLog *logger.Logger) llm.Embedder {
	opts := llm.MultiEmbedderOptions{}

	if cfg.BedrockRegion != "" {
		client, err := llm.NewBedrockClient(ctx, cfg.BedrockRegion)
		if err != nil {
			appLog.WarnErr("", "bedrock unavailable, continuing without it", err, nil)
		} else {
			opts.BedrockClient = client
		}
	}
	return llm.NewMultiEmbedder(opts)
}
