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
	"strings"

	"modelmesh/gateway/connectors/secrets"
	"modelmesh/gateway/connectors/workspace"
	"modelmesh/gateway/shared/logger"
)

// databricksTokenKey is the secret key for the operator-supplied
// workspace personal access token.
const databricksTokenKey = "databricks_token"

// CredentialResolver obtains per-provider credentials for a single
// invocation. Resolution never fails hard: every lookup error degrades
// to "no credential" with a logged warning, deferring enforcement to the
// downstream provider call.
type CredentialResolver struct {
	secrets   secrets.Store
	workspace workspace.Store
	runtime   RuntimeAuth
	log       *logger.Logger
}

// CredentialResolverOptions configures a CredentialResolver.
type CredentialResolverOptions struct {
	Secrets   secrets.Store
	Workspace workspace.Store

	// Runtime is the managed-runtime capability. Nil binds the no-op
	// default, i.e. "not inside the managed runtime".
	Runtime RuntimeAuth

	Logger *logger.Logger
}

// NewCredentialResolver creates a resolver. The managed-runtime binding
// happens here, once, rather than being probed on every call.
func NewCredentialResolver(opts CredentialResolverOptions) *CredentialResolver {
	runtime := opts.Runtime
	if runtime == nil {
		runtime = NoopRuntime{}
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("credential-resolver")
	}
	return &CredentialResolver{
		secrets:   opts.Secrets,
		workspace: opts.Workspace,
		runtime:   runtime,
		log:       log,
	}
}

// Resolve returns the credential for a provider, or nil when none is
// available. It never returns an error.
func (r *CredentialResolver) Resolve(ctx context.Context, provider ProviderType) *Credential {
	if provider == ProviderTypeDatabricks {
		return r.resolveWorkspace(ctx)
	}
	return r.resolveAPIKey(ctx, provider)
}

// resolveAPIKey performs the single API-key lookup used by every
// non-workspace provider. Absence is not an error.
func (r *CredentialResolver) resolveAPIKey(ctx context.Context, provider ProviderType) *Credential {
	if r.secrets == nil {
		return nil
	}

	value, err := r.secrets.GetSecret(ctx, apiKeyName(provider))
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			r.log.WarnErr("", "credential lookup failed, proceeding without credential", err,
				map[string]interface{}{"provider": string(provider)})
		}
		return nil
	}

	return &Credential{Kind: CredentialKindAPIKey, Value: value}
}

// resolveWorkspace implements the dual OAuth/personal-token flow for the
// cloud workspace provider.
func (r *CredentialResolver) resolveWorkspace(ctx context.Context) *Credential {
	// Inside the managed runtime the OAuth header IS the credential;
	// no token lookup occurs.
	if r.runtime.Active() {
		header, err := r.runtime.AuthHeader(ctx)
		if err != nil {
			r.log.WarnErr("", "managed runtime OAuth header unavailable", err, nil)
			return nil
		}
		return &Credential{
			Kind:  CredentialKindOAuthHeader,
			Value: header,
			Host:  r.resolveWorkspaceHost(ctx),
		}
	}

	if r.secrets == nil {
		return nil
	}

	token, err := r.secrets.GetSecret(ctx, databricksTokenKey)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			r.log.WarnErr("", "workspace token lookup failed, proceeding without credential", err, nil)
		}
		return nil
	}

	return &Credential{
		Kind:  CredentialKindToken,
		Value: token,
		Host:  r.resolveWorkspaceHost(ctx),
	}
}

// resolveWorkspaceHost discovers the workspace host. Any failure is
// degraded to "host unknown" with a warning; it never aborts credential
// resolution.
func (r *CredentialResolver) resolveWorkspaceHost(ctx context.Context) string {
	if r.workspace == nil {
		return ""
	}

	cfg, err := r.workspace.Get(ctx)
	if err != nil {
		if !errors.Is(err, workspace.ErrNotConfigured) {
			r.log.WarnErr("", "workspace host lookup failed, host unknown", err, nil)
		}
		return ""
	}

	return NormalizeHost(cfg.Host)
}

// apiKeyName maps a provider to its secret key name.
func apiKeyName(provider ProviderType) string {
	return string(provider) + "_api_key"
}

// NormalizeHost prepares a stored workspace host for use as a URL base:
// bare hostnames gain an https:// scheme and trailing slashes are
// dropped.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimSuffix(host, "/")
}
