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
)

const (
	// OpenAIBaseURL is the default OpenAI-compatible API endpoint.
	OpenAIBaseURL = "https://api.openai.com/v1"

	// DeepSeekBaseURL is the default DeepSeek API endpoint.
	DeepSeekBaseURL = "https://api.deepseek.com/v1"

	// DefaultTimeout is the default HTTP timeout for chat completions.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxTokens is the default max output tokens for completions.
	DefaultMaxTokens = 4096

	// DefaultTemperature is the default temperature for completions.
	DefaultTemperature = 0.7
)

// HTTPClient is an interface for HTTP client operations (enables testing).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ChatModel is a ready-to-call chat completion handle bound to a
// resolved invocation spec. All configured providers speak the
// OpenAI-compatible chat completions protocol.
type ChatModel struct {
	spec    InvocationSpec
	timeout time.Duration
	client  HTTPClient
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Prompt        string   // The prompt/user message
	SystemPrompt  string   // Optional system instruction
	MaxTokens     int      // Maximum tokens to generate
	Temperature   float64  // Temperature (0.0-2.0)
	StopSequences []string // Stop sequences
}

// CompletionResponse represents a chat completion response.
type CompletionResponse struct {
	Content    string
	Provider   string
	Model      string
	StopReason string
	Usage      UsageStats
	Latency    time.Duration
}

// UsageStats contains token usage statistics.
type UsageStats struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// NewChatModel creates a chat handle for the given invocation spec.
func NewChatModel(spec InvocationSpec) *ChatModel {
	return &ChatModel{
		spec:    spec,
		timeout: DefaultTimeout,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Name returns the provider name behind this handle.
func (m *ChatModel) Name() string {
	return string(m.spec.Provider)
}

// Model returns the fully qualified model identifier.
func (m *ChatModel) Model() string {
	return m.spec.Model
}

// Spec returns a copy of the invocation spec backing this handle.
func (m *ChatModel) Spec() InvocationSpec {
	return m.spec
}

// Complete generates a completion for the given request.
func (m *ChatModel) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// Temperature: 0.0 is valid (deterministic), negative is invalid
	temperature := req.Temperature
	if temperature < 0 {
		temperature = DefaultTemperature
	}

	apiReq := m.buildAPIRequest(req.Prompt, req.SystemPrompt, maxTokens, temperature, req.StopSequences)

	reqBody, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := m.baseURL() + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if m.spec.Credential != nil {
		httpReq.Header.Set("Authorization", m.spec.Credential.AuthorizationValue())
	}
	for k, v := range m.spec.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", m.spec.Provider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, m.parseAPIError(resp.StatusCode, body)
	}

	var apiResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	content := ""
	stopReason := "unknown"
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
		if apiResp.Choices[0].FinishReason != "" {
			stopReason = apiResp.Choices[0].FinishReason
		}
	}

	return &CompletionResponse{
		Content:    content,
		Provider:   string(m.spec.Provider),
		Model:      m.spec.Model,
		StopReason: stopReason,
		Usage: UsageStats{
			InputTokens:  apiResp.Usage.PromptTokens,
			OutputTokens: apiResp.Usage.CompletionTokens,
			TotalTokens:  apiResp.Usage.TotalTokens,
		},
		Latency: time.Since(start),
	}, nil
}

// buildAPIRequest builds the OpenAI-compatible chat completion body.
func (m *ChatModel) buildAPIRequest(prompt, systemPrompt string, maxTokens int, temperature float64, stopSequences []string) map[string]any {
	messages := []map[string]any{}
	if systemPrompt != "" {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": systemPrompt,
		})
	}
	messages = append(messages, map[string]any{
		"role":    "user",
		"content": prompt,
	})

	apiReq := map[string]any{
		"model":       wireModelName(m.spec),
		"messages":    messages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	if len(stopSequences) > 0 {
		apiReq["stop"] = stopSequences
	}

	return apiReq
}

// baseURL resolves the endpoint for this handle, falling back to the
// provider's public endpoint when the spec carries none.
func (m *ChatModel) baseURL() string {
	if m.spec.BaseURL != "" {
		return strings.TrimSuffix(m.spec.BaseURL, "/")
	}
	return defaultBaseURL(m.spec.Provider)
}

// defaultBaseURL returns the public OpenAI-compatible endpoint for a
// provider.
func defaultBaseURL(provider ProviderType) string {
	switch provider {
	case ProviderTypeDeepSeek:
		return DeepSeekBaseURL
	case ProviderTypeOllama:
		return OllamaBaseURL
	case ProviderTypeGemini:
		return GeminiBaseURL
	default:
		return OpenAIBaseURL
	}
}

// wireModelName strips the routing prefix from a qualified model name.
// The prefix addresses the provider inside the gateway; the provider's
// own API expects the bare model identifier.
func wireModelName(spec InvocationSpec) string {
	return strings.TrimPrefix(spec.Model, string(spec.Provider)+"/")
}

// parseAPIError parses an OpenAI-style API error response.
func (m *ChatModel) parseAPIError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		return &APIError{
			Provider:   string(m.spec.Provider),
			StatusCode: statusCode,
			Message:    string(body),
		}
	}

	return &APIError{
		Provider:   string(m.spec.Provider),
		StatusCode: statusCode,
		Type:       errResp.Error.Type,
		Message:    errResp.Error.Message,
	}
}

// SetHTTPClient sets a custom HTTP client for testing.
func (m *ChatModel) SetHTTPClient(client HTTPClient) {
	m.client = client
}

// APIError represents an upstream provider API error.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimitError returns true if this is a rate limit error.
func (e *APIError) IsRateLimitError() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsAuthError returns true if this is an authentication error.
func (e *APIError) IsAuthError() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Internal API types

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
