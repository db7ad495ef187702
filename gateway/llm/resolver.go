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
	"strings"
)

// Fixed endpoints for providers that are always reached through a known
// base URL.
const (
	// GeminiBaseURL is the OpenAI-compatible Gemini endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	// OllamaBaseURL is the default local Ollama endpoint.
	OllamaBaseURL = "http://localhost:11434/v1"

	// workspaceServingPath is appended to the workspace host to reach
	// the model serving API.
	workspaceServingPath = "/serving-endpoints"
)

// ResolveSpec maps a stored model configuration and an already-resolved
// credential into a provider-correct invocation descriptor.
//
// The mapping is deterministic and pure: all I/O (config lookup,
// credential resolution) happens before this function. Prefixing rules
// are idempotent, so resolving an already-resolved model name yields the
// identical string.
//
// An unregistered provider value degrades to a pass-through descriptor
// with no credential instead of failing: a caller holding a valid model
// name should not be blocked by an unrecognized provider label.
func ResolveSpec(cfg ModelConfig, cred *Credential) InvocationSpec {
	switch cfg.Provider {
	case ProviderTypeOpenAI:
		return InvocationSpec{
			Provider:   cfg.Provider,
			Model:      cfg.Name,
			Credential: cred,
		}

	case ProviderTypeDeepSeek:
		return InvocationSpec{
			Provider:   cfg.Provider,
			Model:      ensureProviderPrefix(cfg.Name, cfg.Provider),
			Credential: cred,
		}

	case ProviderTypeOllama:
		// Local models never carry a credential, even if one happens
		// to exist in the store.
		return InvocationSpec{
			Provider: cfg.Provider,
			Model:    ensureProviderPrefix(cfg.Name, cfg.Provider),
			BaseURL:  OllamaBaseURL,
		}

	case ProviderTypeGemini:
		return InvocationSpec{
			Provider:   cfg.Provider,
			Model:      cfg.Name,
			Credential: cred,
			BaseURL:    GeminiBaseURL,
		}

	case ProviderTypeDatabricks:
		spec := InvocationSpec{
			Provider:   cfg.Provider,
			Model:      cfg.Name,
			Credential: cred,
		}
		if cred != nil && cred.Host != "" {
			spec.BaseURL = strings.TrimSuffix(cred.Host, "/") + workspaceServingPath
		}
		return spec

	case ProviderTypeBedrock:
		// Bedrock authenticates via IAM; no API key is attached.
		return InvocationSpec{
			Provider: cfg.Provider,
			Model:    cfg.Name,
		}

	default:
		return InvocationSpec{
			Provider: cfg.Provider,
			Model:    cfg.Name,
		}
	}
}

// ensureProviderPrefix namespaces a model name with "<provider>/" unless
// it already carries the prefix.
func ensureProviderPrefix(name string, provider ProviderType) string {
	prefix := string(provider) + "/"
	if strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}
