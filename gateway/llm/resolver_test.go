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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSpec_OpenAIPassThrough(t *testing.T) {
	cred := &Credential{Kind: CredentialKindAPIKey, Value: "sk-test"}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeOpenAI, Name: "gpt-4"}, cred)

	assert.Equal(t, "gpt-4", spec.Model)
	assert.Empty(t, spec.BaseURL)
	require.NotNil(t, spec.Credential)
	assert.Equal(t, "sk-test", spec.Credential.Value)
}

func TestResolveSpec_DeepSeekPrefixing(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  string
	}{
		{"bare name gains prefix", "deepseek-chat", "deepseek/deepseek-chat"},
		{"prefixed name unchanged", "deepseek/deepseek-chat", "deepseek/deepseek-chat"},
		{"reasoner variant", "deepseek-reasoner", "deepseek/deepseek-reasoner"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ResolveSpec(ModelConfig{Provider: ProviderTypeDeepSeek, Name: tt.model}, nil)
			assert.Equal(t, tt.want, spec.Model)
		})
	}
}

func TestResolveSpec_PrefixingIsIdempotent(t *testing.T) {
	for _, provider := range []ProviderType{ProviderTypeDeepSeek, ProviderTypeOllama} {
		cfg := ModelConfig{Provider: provider, Name: "some-model"}

		first := ResolveSpec(cfg, nil)
		second := ResolveSpec(ModelConfig{Provider: provider, Name: first.Model}, nil)

		assert.Equal(t, first.Model, second.Model, "provider %s", provider)
	}
}

func TestResolveSpec_OllamaOmitsCredential(t *testing.T) {
	// Even when a credential exists in the store, local models must not
	// carry one.
	cred := &Credential{Kind: CredentialKindAPIKey, Value: "should-not-appear"}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeOllama, Name: "llama3"}, cred)

	assert.Equal(t, "ollama/llama3", spec.Model)
	assert.Nil(t, spec.Credential)
	assert.Equal(t, OllamaBaseURL, spec.BaseURL)
}

func TestResolveSpec_GeminiFixedEndpoint(t *testing.T) {
	cred := &Credential{Kind: CredentialKindAPIKey, Value: "AIza-test"}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeGemini, Name: "gemini-2.0-flash"}, cred)

	assert.Equal(t, "gemini-2.0-flash", spec.Model)
	assert.Equal(t, GeminiBaseURL, spec.BaseURL)
	require.NotNil(t, spec.Credential)
}

func TestResolveSpec_DatabricksAttachesHost(t *testing.T) {
	cred := &Credential{
		Kind:  CredentialKindToken,
		Value: "dapi-123",
		Host:  "https://dbc-123.cloud.example.com",
	}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeDatabricks, Name: "bge-large-en"}, cred)

	assert.Equal(t, "bge-large-en", spec.Model)
	assert.Equal(t, "https://dbc-123.cloud.example.com/serving-endpoints", spec.BaseURL)
}

func TestResolveSpec_DatabricksWithoutHost(t *testing.T) {
	cred := &Credential{Kind: CredentialKindToken, Value: "dapi-123"}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeDatabricks, Name: "bge-large-en"}, cred)

	assert.Empty(t, spec.BaseURL)
	require.NotNil(t, spec.Credential)
}

func TestResolveSpec_BedrockUsesIAM(t *testing.T) {
	cred := &Credential{Kind: CredentialKindAPIKey, Value: "ignored"}

	spec := ResolveSpec(ModelConfig{Provider: ProviderTypeBedrock, Name: "amazon.titan-embed-text-v2:0"}, cred)

	assert.Nil(t, spec.Credential)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", spec.Model)
}

func TestResolveSpec_UnknownProviderDegrades(t *testing.T) {
	spec := ResolveSpec(ModelConfig{Provider: "mystery", Name: "mystery-9000"}, nil)

	assert.Equal(t, ProviderType("mystery"), spec.Provider)
	assert.Equal(t, "mystery-9000", spec.Model)
	assert.Nil(t, spec.Credential)
}

func TestCredential_AuthorizationValue(t *testing.T) {
	apiKey := &Credential{Kind: CredentialKindAPIKey, Value: "sk-1"}
	assert.Equal(t, "Bearer sk-1", apiKey.AuthorizationValue())

	token := &Credential{Kind: CredentialKindToken, Value: "dapi-1"}
	assert.Equal(t, "Bearer dapi-1", token.AuthorizationValue())

	oauth := &Credential{Kind: CredentialKindOAuthHeader, Value: "Bearer eyJ..."}
	assert.Equal(t, "Bearer eyJ...", oauth.AuthorizationValue())
}
