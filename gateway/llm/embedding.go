// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

const (
	// DefaultEmbedTimeout is the default HTTP timeout for embedding calls.
	DefaultEmbedTimeout = 30 * time.Second

	// workspaceEmbeddingsPath is the serving path for workspace-hosted
	// embedding endpoints, appended to the spec's base URL.
	workspaceEmbeddingsPath = "/embeddings/invocations"
)

// Embedder turns text into an embedding vector using the provider
// addressed by an invocation spec.
type Embedder interface {
	Embed(ctx context.Context, spec InvocationSpec, input string) ([]float64, error)
}

// bedrockAPI is the subset of the Bedrock runtime client used for
// embeddings (enables testing).
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// MultiEmbedder dispatches embedding requests to the right backend for
// each provider: Bedrock goes through the AWS SDK with Signature V4
// auth, workspace providers hit their serving endpoint, and everything
// else speaks the OpenAI-compatible embeddings protocol.
type MultiEmbedder struct {
	client  HTTPClient
	bedrock bedrockAPI
	timeout time.Duration
}

// MultiEmbedderOptions configures a MultiEmbedder. Zero-value fields
// get working defaults; Bedrock support stays off until a client or
// region is supplied.
type MultiEmbedderOptions struct {
	HTTPClient    HTTPClient
	BedrockClient bedrockAPI
	Timeout       time.Duration
}

// NewMultiEmbedder creates an embedder with the given options.
func NewMultiEmbedder(opts MultiEmbedderOptions) *MultiEmbedder {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultEmbedTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &MultiEmbedder{
		client:  client,
		bedrock: opts.BedrockClient,
		timeout: timeout,
	}
}

// NewBedrockClient builds a Bedrock runtime client for the given
// region using the ambient AWS credential chain.
func NewBedrockClient(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for Bedrock (region: %s): %w", region, err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

var _ Embedder = (*MultiEmbedder)(nil)

// Embed generates an embedding vector for the input text.
func (e *MultiEmbedder) Embed(ctx context.Context, spec InvocationSpec, input string) ([]float64, error) {
	switch spec.Provider {
	case ProviderTypeBedrock:
		return e.embedBedrock(ctx, spec, input)
	case ProviderTypeDatabricks:
		return e.embedWorkspace(ctx, spec, input)
	default:
		return e.embedOpenAICompatible(ctx, spec, input)
	}
}

// embedOpenAICompatible calls POST {base}/embeddings with the standard
// OpenAI embeddings body.
func (e *MultiEmbedder) embedOpenAICompatible(ctx context.Context, spec InvocationSpec, input string) ([]float64, error) {
	base := spec.BaseURL
	if base == "" {
		base = defaultBaseURL(spec.Provider)
	}
	url := strings.TrimSuffix(base, "/") + "/embeddings"

	body := map[string]any{
		"model": wireModelName(spec),
		"input": input,
	}
	return e.postEmbedding(ctx, spec, url, body)
}

// embedWorkspace calls a workspace serving endpoint. The spec's base
// URL carries the serving root; without one the workspace host was
// never resolved and the call cannot be placed.
func (e *MultiEmbedder) embedWorkspace(ctx context.Context, spec InvocationSpec, input string) ([]float64, error) {
	if spec.BaseURL == "" {
		return nil, fmt.Errorf("workspace host is not configured for model %s", spec.Model)
	}
	url := strings.TrimSuffix(spec.BaseURL, "/") + workspaceEmbeddingsPath

	body := map[string]any{
		"model": spec.Model,
		"input": input,
	}
	return e.postEmbedding(ctx, spec, url, body)
}

// postEmbedding issues the HTTP request shared by both HTTP-backed
// paths and parses the OpenAI-style embeddings response.
func (e *MultiEmbedder) postEmbedding(ctx context.Context, spec InvocationSpec, url string, body map[string]any) ([]float64, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if spec.Credential != nil {
		httpReq.Header.Set("Authorization", spec.Credential.AuthorizationValue())
	}
	for k, v := range spec.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", spec.Provider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			Provider:   string(spec.Provider),
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Data) == 0 || len(apiResp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%s returned no embedding for model %s", spec.Provider, spec.Model)
	}
	return apiResp.Data[0].Embedding, nil
}

// embedBedrock invokes a Titan embedding model through the Bedrock
// runtime with AWS Signature V4 authentication.
func (e *MultiEmbedder) embedBedrock(ctx context.Context, spec InvocationSpec, input string) ([]float64, error) {
	if e.bedrock == nil {
		return nil, fmt.Errorf("bedrock client is not configured")
	}

	requestJSON, err := json.Marshal(map[string]any{"inputText": input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	output, err := e.bedrock.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(spec.Model),
		Body:        requestJSON,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock API error: %w", err)
	}

	var parsed struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(output.Body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse bedrock response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("bedrock returned no embedding for model %s", spec.Model)
	}
	return parsed.Embedding, nil
}

// Internal API types

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model,omitempty"`
}
