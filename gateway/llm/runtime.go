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
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RuntimeAuth is the managed-runtime credential capability. When the
// gateway runs inside the cloud workspace's managed runtime, the runtime
// can mint OAuth bearer headers on demand and no operator-supplied token
// is needed. The capability may be entirely unavailable; Active reports
// whether it is usable.
//
// The binding decision is made once at construction time, not probed per
// call.
type RuntimeAuth interface {
	// Active reports whether the process runs inside the managed runtime.
	Active() bool

	// AuthHeader returns a complete Authorization header value
	// (e.g. "Bearer eyJ...").
	AuthHeader(ctx context.Context) (string, error)
}

// NoopRuntime is the default RuntimeAuth outside the managed runtime.
type NoopRuntime struct{}

// Active always reports false.
func (NoopRuntime) Active() bool { return false }

// AuthHeader always fails; callers must check Active first.
func (NoopRuntime) AuthHeader(ctx context.Context) (string, error) {
	return "", fmt.Errorf("managed runtime is not available")
}

// workspaceOAuthEndpointEnv names the environment variable the managed
// runtime sets to expose its local token endpoint.
const workspaceOAuthEndpointEnv = "WORKSPACE_OAUTH_ENDPOINT"

// defaultTokenLifetime is assumed when a minted token carries no usable
// expiry claim.
const defaultTokenLifetime = 5 * time.Minute

// ManagedRuntime implements RuntimeAuth against the workspace runtime's
// local token endpoint. Tokens are cached until shortly before their JWT
// expiry to avoid a metadata round-trip per call.
type ManagedRuntime struct {
	endpoint string
	client   HTTPClient

	mu      sync.Mutex
	header  string
	expires time.Time
	now     func() time.Time
}

// NewManagedRuntimeFromEnv detects the managed runtime from the
// environment. When the token endpoint is not configured the returned
// runtime is inactive, which is a legitimate state, not an error.
func NewManagedRuntimeFromEnv() *ManagedRuntime {
	return NewManagedRuntime(os.Getenv(workspaceOAuthEndpointEnv))
}

// NewManagedRuntime creates a ManagedRuntime against an explicit token
// endpoint. An empty endpoint yields an inactive runtime.
func NewManagedRuntime(endpoint string) *ManagedRuntime {
	return &ManagedRuntime{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Active reports whether the runtime token endpoint is configured.
func (r *ManagedRuntime) Active() bool {
	return r != nil && r.endpoint != ""
}

// AuthHeader returns a cached or freshly minted OAuth bearer header.
func (r *ManagedRuntime) AuthHeader(ctx context.Context) (string, error) {
	if !r.Active() {
		return "", fmt.Errorf("managed runtime is not available")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.header != "" && r.now().Before(r.expires) {
		return r.header, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("runtime token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("runtime token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("malformed runtime token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("runtime token response carried no access token")
	}

	tokenType := body.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	r.header = tokenType + " " + body.AccessToken
	r.expires = r.now().Add(tokenExpiry(body.AccessToken, r.now))
	return r.header, nil
}

// SetHTTPClient sets a custom HTTP client for testing.
func (r *ManagedRuntime) SetHTTPClient(client HTTPClient) {
	r.client = client
}

// tokenExpiry derives a cache lifetime from the token's JWT exp claim.
// The signature is NOT verified here; the token is consumed, not trusted
// as an identity assertion. A missing or unparsable claim falls back to
// a short fixed lifetime.
func tokenExpiry(token string, now func() time.Time) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return defaultTokenLifetime
	}
	if claims.ExpiresAt == nil {
		return defaultTokenLifetime
	}

	// Refresh one minute early so in-flight calls never carry a token
	// that expires mid-request. A token already inside that margin is
	// not cached at all: caching it for longer would outlive the token.
	remaining := claims.ExpiresAt.Time.Sub(now()) - time.Minute
	if remaining <= 0 {
		return 0
	}
	return remaining
}
