// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmesh/gateway/connectors/secrets"
	"modelmesh/gateway/gateway/audit"
	"modelmesh/gateway/shared/logger"
)

// fakeEmbedder is a scripted Embedder recording the specs it was
// called with.
type fakeEmbedder struct {
	vector []float64
	err    error
	calls  []InvocationSpec
}

func (f *fakeEmbedder) Embed(ctx context.Context, spec InvocationSpec, input string) ([]float64, error) {
	f.calls = append(f.calls, spec)
	return f.vector, f.err
}

func newTestGateway(t *testing.T, embedder Embedder, defaultEmbedding *ModelConfig) (*Gateway, *MemoryModelStore, *secrets.StaticStore) {
	t.Helper()

	store := NewMemoryModelStore(nil)
	secretStore := secrets.NewStaticStore(nil)

	log := logger.New("gateway")
	log.SetOutput(&bytes.Buffer{})

	creds := NewCredentialResolver(CredentialResolverOptions{
		Secrets: secretStore,
		Logger:  log,
	})

	gw := NewGateway(GatewayOptions{
		Store:            store,
		Credentials:      creds,
		Embedder:         embedder,
		Audit:            audit.NewCallLogger(&bytes.Buffer{}),
		Logger:           log,
		DefaultEmbedding: defaultEmbedding,
	})
	return gw, store, secretStore
}

func TestConfigureCompletion(t *testing.T) {
	gw, store, secretStore := newTestGateway(t, &fakeEmbedder{}, nil)
	store.Set("chat-default", ModelConfig{Provider: ProviderTypeOpenAI, Name: "gpt-4o"})
	secretStore.SetSecret("openai_api_key", "sk-live")

	spec, err := gw.ConfigureCompletion(context.Background(), "chat-default")
	require.NoError(t, err)

	assert.Equal(t, ProviderTypeOpenAI, spec.Provider)
	assert.Equal(t, "gpt-4o", spec.Model)
	require.NotNil(t, spec.Credential)
	assert.Equal(t, "Bearer sk-live", spec.Credential.AuthorizationValue())
}

func TestConfigureCompletionUnknownAlias(t *testing.T) {
	gw, _, _ := newTestGateway(t, &fakeEmbedder{}, nil)

	_, err := gw.ConfigureCompletion(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, IsConfigNotFound(err))
}

func TestConfigureCompletionWithoutCredential(t *testing.T) {
	gw, store, _ := newTestGateway(t, &fakeEmbedder{}, nil)
	store.Set("chat-default", ModelConfig{Provider: ProviderTypeOpenAI, Name: "gpt-4o"})

	// No API key in the secret store: resolution still succeeds, the
	// spec just carries no credential.
	spec, err := gw.ConfigureCompletion(context.Background(), "chat-default")
	require.NoError(t, err)
	assert.Nil(t, spec.Credential)
}

func TestAgentModel(t *testing.T) {
	gw, store, secretStore := newTestGateway(t, &fakeEmbedder{}, nil)
	store.Set("summarizer", ModelConfig{Provider: ProviderTypeDeepSeek, Name: "deepseek-chat"})
	secretStore.SetSecret("deepseek_api_key", "dk-live")

	model, err := gw.AgentModel(context.Background(), "summarizer")
	require.NoError(t, err)

	assert.Equal(t, "deepseek", model.Name())
	assert.Equal(t, "deepseek/deepseek-chat", model.Model())
	require.NotNil(t, model.Spec().Credential)
}

func TestEmbedTextWithExplicitConfig(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{0.1, 0.2}}
	gw, store, _ := newTestGateway(t, embedder, nil)
	store.Set("other", ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-large"})

	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{
		Alias:  "other",
		Config: &ModelConfig{Provider: ProviderTypeOllama, Name: "nomic-embed-text"},
	})

	assert.Equal(t, []float64{0.1, 0.2}, vec)
	require.Len(t, embedder.calls, 1)
	// The explicit config wins over the alias.
	assert.Equal(t, ProviderTypeOllama, embedder.calls[0].Provider)
	assert.Equal(t, "ollama/nomic-embed-text", embedder.calls[0].Model)
}

func TestEmbedTextWithAlias(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1}}
	gw, store, _ := newTestGateway(t, embedder, &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"})
	store.Set("fast-embed", ModelConfig{Provider: ProviderTypeGemini, Name: "text-embedding-004"})

	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{Alias: "fast-embed"})

	require.NotNil(t, vec)
	require.Len(t, embedder.calls, 1)
	assert.Equal(t, ProviderTypeGemini, embedder.calls[0].Provider)
}

func TestEmbedTextAliasFallsBackToDefault(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1}}
	gw, _, _ := newTestGateway(t, embedder, &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"})

	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{Alias: "missing"})

	require.NotNil(t, vec)
	require.Len(t, embedder.calls, 1)
	assert.Equal(t, ProviderTypeOpenAI, embedder.calls[0].Provider)
}

func TestEmbedTextNoModelConfigured(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1}}
	gw, _, _ := newTestGateway(t, embedder, nil)

	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{})

	assert.Nil(t, vec)
	assert.Empty(t, embedder.calls)
}

func TestEmbedTextUnrecognizedProvider(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float64{1}}

	logBuf := &bytes.Buffer{}
	log := logger.New("gateway")
	log.SetOutput(logBuf)

	gw := NewGateway(GatewayOptions{
		Store:       NewMemoryModelStore(nil),
		Credentials: NewCredentialResolver(CredentialResolverOptions{Secrets: secrets.NewStaticStore(nil), Logger: log}),
		Embedder:    embedder,
		Audit:       audit.NewCallLogger(&bytes.Buffer{}),
		Logger:      log,
	})

	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{
		Config: &ModelConfig{Provider: ProviderType("acme"), Name: "embed-9000"},
	})

	assert.Nil(t, vec)
	assert.Empty(t, embedder.calls)
	// An unrecognized provider never touches the breaker.
	assert.Zero(t, gw.Breaker().Failures("acme"))

	// Exactly one error line, nothing else.
	errorLines := 0
	for _, line := range strings.Split(strings.TrimSpace(logBuf.String()), "\n") {
		if strings.Contains(line, `"level":"ERROR"`) {
			errorLines++
		}
	}
	assert.Equal(t, 1, errorLines)
}

func TestEmbedTextFailureFeedsBreaker(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("upstream down")}
	gw, _, _ := newTestGateway(t, embedder, nil)

	cfg := &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"}

	for i := 0; i < DefaultBreakerThreshold; i++ {
		vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{Config: cfg})
		assert.Nil(t, vec)
	}
	assert.True(t, gw.Breaker().Open("openai"))

	// The circuit is open: the embedder is no longer reached.
	before := len(embedder.calls)
	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{Config: cfg})
	assert.Nil(t, vec)
	assert.Len(t, embedder.calls, before)
}

func TestEmbedTextSuccessResetsBreaker(t *testing.T) {
	embedder := &fakeEmbedder{err: errors.New("flaky")}
	gw, _, _ := newTestGateway(t, embedder, nil)

	cfg := &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"}

	gw.EmbedText(context.Background(), "hello", EmbedOptions{Config: cfg})
	gw.EmbedText(context.Background(), "hello", EmbedOptions{Config: cfg})
	assert.Equal(t, 2, gw.Breaker().Failures("openai"))

	embedder.err = nil
	embedder.vector = []float64{1}
	vec := gw.EmbedText(context.Background(), "hello", EmbedOptions{Config: cfg})
	require.NotNil(t, vec)
	assert.Zero(t, gw.Breaker().Failures("openai"))
}

func TestEmbedTextAuditTrail(t *testing.T) {
	sink := &syncSink{}
	embedder := &fakeEmbedder{vector: []float64{1}}

	store := NewMemoryModelStore(nil)
	log := logger.New("gateway")
	log.SetOutput(&bytes.Buffer{})
	auditLog := audit.NewCallLogger(sink)

	gw := NewGateway(GatewayOptions{
		Store:       store,
		Credentials: NewCredentialResolver(CredentialResolverOptions{Secrets: secrets.NewStaticStore(nil), Logger: log}),
		Embedder:    embedder,
		Audit:       auditLog,
		Logger:      log,
	})

	gw.EmbedText(context.Background(), "audit me", EmbedOptions{
		Config: &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"},
	})
	auditLog.Drain()

	phases := sink.phases(t)
	assert.Contains(t, phases, string(audit.PhasePreCall))
	assert.Contains(t, phases, string(audit.PhasePostCall))
	assert.Contains(t, phases, string(audit.PhaseSuccess))
}

func TestEmbedTextAuditTrailOnFailure(t *testing.T) {
	sink := &syncSink{}
	embedder := &fakeEmbedder{err: errors.New("upstream down")}

	store := NewMemoryModelStore(nil)
	log := logger.New("gateway")
	log.SetOutput(&bytes.Buffer{})
	auditLog := audit.NewCallLogger(sink)

	gw := NewGateway(GatewayOptions{
		Store:       store,
		Credentials: NewCredentialResolver(CredentialResolverOptions{Secrets: secrets.NewStaticStore(nil), Logger: log}),
		Embedder:    embedder,
		Audit:       auditLog,
		Logger:      log,
	})

	vector := gw.EmbedText(context.Background(), "audit me", EmbedOptions{
		Config: &ModelConfig{Provider: ProviderTypeOpenAI, Name: "text-embedding-3-small"},
	})
	auditLog.Drain()

	assert.Nil(t, vector)
	phases := sink.phases(t)
	assert.Contains(t, phases, string(audit.PhasePreCall))
	assert.Contains(t, phases, string(audit.PhasePostCall))
	assert.Contains(t, phases, string(audit.PhaseFailure))
}

// syncSink collects audit lines for inspection.
type syncSink struct {
	buf bytes.Buffer
}

func (s *syncSink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

func (s *syncSink) phases(t *testing.T) []string {
	t.Helper()
	var phases []string
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev struct {
			Phase string `json:"phase"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		phases = append(phases, ev.Phase)
	}
	return phases
}
