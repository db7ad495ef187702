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

// Package main is the entry point for the ModelMesh gateway service.
//
// The gateway resolves model aliases into credentialed provider
// invocations, places chat completions, and computes embeddings across
// OpenAI-compatible providers, Databricks workspaces, and AWS Bedrock.
//
// Usage:
//
//	./gateway
//
// Environment Variables:
//
//	PORT - HTTP server port (default: 8080)
//	DATABASE_URL - PostgreSQL connection string (optional)
//	REDIS_ADDR - Redis address for workspace config (optional)
//	SECRETS_BACKEND - "aws" or "env" (default: env)
//	SECRETS_PREFIX - Secrets Manager name prefix (optional)
//	AWS_REGION - AWS region for Secrets Manager (optional)
//	BEDROCK_REGION - AWS Bedrock region for embeddings (optional)
//	EMBEDDING_PROVIDER - Default embedding provider (optional)
//	EMBEDDING_MODEL - Default embedding model (optional)
//	GATEWAY_CONFIG_FILE - YAML config file path (optional)
package main

import (
	"modelmesh/gateway/gateway"
)

func main() {
	gateway.Run()
}
