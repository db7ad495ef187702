// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"modelmesh/gateway/gateway/audit"
	"modelmesh/gateway/shared/logger"
)

// errCircuitOpen marks embedding calls rejected without reaching the
// provider. It is audited, never returned.
var errCircuitOpen = errors.New("circuit breaker open")

// Gateway is the single entry point for resolving model configurations
// into credentialed invocations and for computing embeddings. It
// degrades rather than fails: missing credentials produce anonymous
// specs, and embedding problems produce an empty result plus logs, not
// errors.
type Gateway struct {
	store    ModelStore
	creds    *CredentialResolver
	breaker  *BreakerRegistry
	embedder Embedder
	audit    *audit.CallLogger
	log      *logger.Logger

	// defaultEmbedding is used by EmbedText when the caller names no
	// model. Nil means embeddings require an explicit model.
	defaultEmbedding *ModelConfig
}

// GatewayOptions configures a Gateway. Store, Credentials, and
// Embedder are required; the rest default to working instances.
type GatewayOptions struct {
	Store            ModelStore
	Credentials      *CredentialResolver
	Embedder         Embedder
	Breaker          *BreakerRegistry
	Audit            *audit.CallLogger
	Logger           *logger.Logger
	DefaultEmbedding *ModelConfig
}

// NewGateway creates a gateway facade.
func NewGateway(opts GatewayOptions) *Gateway {
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreakerRegistry()
	}
	auditLog := opts.Audit
	if auditLog == nil {
		auditLog = audit.NewCallLogger(nil)
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("gateway")
	}
	return &Gateway{
		store:            opts.Store,
		creds:            opts.Credentials,
		breaker:          breaker,
		embedder:         opts.Embedder,
		audit:            auditLog,
		log:              log,
		defaultEmbedding: opts.DefaultEmbedding,
	}
}

// Breaker exposes the circuit breaker registry for inspection.
func (g *Gateway) Breaker() *BreakerRegistry {
	return g.breaker
}

// ConfigureCompletion resolves a model alias into a fully credentialed
// invocation spec. Unknown aliases fail with a ConfigNotFoundError;
// credential problems never fail the resolution, they yield an
// anonymous spec.
func (g *Gateway) ConfigureCompletion(ctx context.Context, alias string) (*InvocationSpec, error) {
	cfg, err := g.store.GetModelConfig(ctx, alias)
	if err != nil {
		promConfigResolves.WithLabelValues("unknown", "error").Inc()
		return nil, err
	}

	cred := g.creds.Resolve(ctx, cfg.Provider)
	spec := ResolveSpec(*cfg, cred)

	promConfigResolves.WithLabelValues(string(cfg.Provider), "ok").Inc()
	return &spec, nil
}

// AgentModel resolves a model alias into a ready-to-call chat handle.
func (g *Gateway) AgentModel(ctx context.Context, alias string) (*ChatModel, error) {
	spec, err := g.ConfigureCompletion(ctx, alias)
	if err != nil {
		return nil, err
	}
	return NewChatModel(*spec), nil
}

// EmbedOptions selects the embedding model for EmbedText. An explicit
// Config wins over an Alias, which wins over the gateway default.
type EmbedOptions struct {
	Alias  string
	Config *ModelConfig
}

// EmbedText computes an embedding vector for the given text. It never
// returns an error: any failure along the way — no model configured, an
// open circuit, an upstream error — is logged and audited, and the
// caller receives nil. Upstream failures and successes feed the
// per-provider circuit breaker; rejected calls do not.
func (g *Gateway) EmbedText(ctx context.Context, text string, opts EmbedOptions) []float64 {
	requestID := uuid.NewString()

	cfg := g.embeddingConfig(ctx, requestID, opts)
	if cfg == nil {
		return nil
	}

	if !knownProvider(cfg.Provider) {
		g.log.Error(requestID, "unrecognized embedding provider", map[string]interface{}{
			"provider": string(cfg.Provider),
			"model":    cfg.Name,
		})
		return nil
	}

	provider := string(cfg.Provider)
	g.audit.PreCall(cfg.Name, text)

	if !g.breaker.Allow(provider) {
		promBreakerShortCircuits.WithLabelValues(provider).Inc()
		g.log.Warn(requestID, "embedding call rejected by open circuit", map[string]interface{}{
			"provider": provider,
			"model":    cfg.Name,
		})
		g.audit.FailureAsync(cfg.Name, text, errCircuitOpen)
		return nil
	}

	cred := g.creds.Resolve(ctx, cfg.Provider)
	spec := ResolveSpec(*cfg, cred)

	started := time.Now()
	vector, err := g.embedder.Embed(ctx, spec, text)
	elapsed := time.Since(started)
	promEmbeddingDuration.WithLabelValues(provider).Observe(float64(elapsed.Milliseconds()))
	g.audit.PostCallAsync(cfg.Name, text, started)

	if err != nil {
		g.breaker.RecordFailure(provider)
		promEmbeddingCalls.WithLabelValues(provider, "error").Inc()
		g.log.ErrorErr(requestID, "embedding call failed", err, map[string]interface{}{
			"provider": provider,
			"model":    cfg.Name,
		})
		g.audit.FailureAsync(cfg.Name, text, err)
		return nil
	}

	g.breaker.RecordSuccess(provider)
	promEmbeddingCalls.WithLabelValues(provider, "ok").Inc()
	g.audit.SuccessAsync(cfg.Name, text, started)
	return vector
}

// embeddingConfig applies the model selection precedence for
// EmbedText: explicit config, then alias lookup, then the gateway
// default. A failed alias lookup falls through to the default.
func (g *Gateway) embeddingConfig(ctx context.Context, requestID string, opts EmbedOptions) *ModelConfig {
	if opts.Config != nil {
		return opts.Config
	}

	if opts.Alias != "" {
		cfg, err := g.store.GetModelConfig(ctx, opts.Alias)
		if err == nil {
			return cfg
		}
		g.log.WarnErr(requestID, "embedding alias lookup failed", err, map[string]interface{}{
			"alias": opts.Alias,
		})
	}

	if g.defaultEmbedding != nil {
		return g.defaultEmbedding
	}

	g.log.Error(requestID, "no embedding model configured", nil)
	return nil
}

// knownProvider reports whether the gateway has an embedding backend
// for the provider.
func knownProvider(provider ProviderType) bool {
	switch provider {
	case ProviderTypeOpenAI, ProviderTypeDeepSeek, ProviderTypeOllama,
		ProviderTypeGemini, ProviderTypeDatabricks, ProviderTypeBedrock:
		return true
	default:
		return false
	}
}
