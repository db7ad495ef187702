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
	"errors"
	"fmt"
)

// ProviderType identifies the backing LLM or embedding provider.
// Standard types are defined as constants; values outside this set are
// passed through in degraded mode rather than rejected.
type ProviderType string

// Standard provider types supported out of the box.
const (
	// ProviderTypeOpenAI represents any OpenAI-compatible hosted API.
	ProviderTypeOpenAI ProviderType = "openai"

	// ProviderTypeDeepSeek represents DeepSeek's hosted models, which
	// require a namespaced model identifier ("deepseek/...").
	ProviderTypeDeepSeek ProviderType = "deepseek"

	// ProviderTypeOllama represents self-hosted Ollama models. No
	// credential is ever attached for this provider.
	ProviderTypeOllama ProviderType = "ollama"

	// ProviderTypeGemini represents Google's Gemini models, reached
	// through a fixed OpenAI-compatible endpoint.
	ProviderTypeGemini ProviderType = "gemini"

	// ProviderTypeDatabricks represents models served from a Databricks
	// workspace. Credentials come from the dual OAuth/token flow.
	ProviderTypeDatabricks ProviderType = "databricks"

	// ProviderTypeBedrock represents AWS Bedrock managed models,
	// authenticated through IAM rather than an API key.
	ProviderTypeBedrock ProviderType = "bedrock"
)

// ModelConfig maps a stored alias to a concrete provider and model name.
// It is owned and mutated by the external configuration UI; the gateway
// only ever reads it, freshly on every call.
type ModelConfig struct {
	Provider ProviderType `json:"provider"`
	Name     string       `json:"name"`
}

// CredentialKind distinguishes how a resolved credential is presented to
// the provider.
type CredentialKind string

const (
	// CredentialKindAPIKey is a plain API key sent as a bearer token.
	CredentialKindAPIKey CredentialKind = "api_key"

	// CredentialKindOAuthHeader is a full Authorization header value
	// obtained from the managed runtime.
	CredentialKindOAuthHeader CredentialKind = "oauth_header"

	// CredentialKindToken is an operator-supplied personal access token.
	CredentialKindToken CredentialKind = "token"
)

// Credential is a per-invocation secret resolved for a provider. It is
// never persisted; its lifetime is a single call.
type Credential struct {
	Kind  CredentialKind `json:"kind"`
	Value string         `json:"-"`
	Host  string         `json:"host,omitempty"`
}

// AuthorizationValue returns the value to place in an Authorization
// header for this credential.
func (c *Credential) AuthorizationValue() string {
	if c.Kind == CredentialKindOAuthHeader {
		return c.Value
	}
	return "Bearer " + c.Value
}

// InvocationSpec is the resolved bundle needed to invoke a provider:
// the provider-correct model string, an optional credential, and an
// optional base URL override. A nil Credential means the provider either
// needs none (local models) or none could be resolved (degraded mode).
type InvocationSpec struct {
	Provider   ProviderType      `json:"provider"`
	Model      string            `json:"model"`
	Credential *Credential       `json:"credential,omitempty"`
	BaseURL    string            `json:"base_url,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// ModelStore is the read-only model configuration repository consumed by
// the gateway. Lookups happen on every call; the store owns freshness.
type ModelStore interface {
	// GetModelConfig resolves an alias. A missing alias returns a
	// *ConfigNotFoundError.
	GetModelConfig(ctx context.Context, alias string) (*ModelConfig, error)
}

// ConfigNotFoundError indicates an alias has no stored model configuration.
type ConfigNotFoundError struct {
	Alias string
}

// Error implements the error interface.
func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no model configuration found for alias %q", e.Alias)
}

// IsConfigNotFound reports whether err (or anything it wraps) is a
// ConfigNotFoundError.
func IsConfigNotFound(err error) bool {
	var notFound *ConfigNotFoundError
	return errors.As(err, &notFound)
}
