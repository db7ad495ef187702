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

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"modelmesh/gateway/common/pricing"
	"modelmesh/gateway/gateway/llm"
	"modelmesh/gateway/shared/logger"
)

// invoker is the slice of the llm.Gateway the HTTP handlers need.
type invoker interface {
	ConfigureCompletion(ctx context.Context, alias string) (*llm.InvocationSpec, error)
	Complete(ctx context.Context, alias string, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	EmbedText(ctx context.Context, text string, opts llm.EmbedOptions) []float64
}

// gatewayInvoker adapts llm.Gateway to the invoker interface. Complete
// resolves the alias into a chat handle and places the call.
type gatewayInvoker struct {
	gw *llm.Gateway
}

func (g *gatewayInvoker) ConfigureCompletion(ctx context.Context, alias string) (*llm.InvocationSpec, error) {
	return g.gw.ConfigureCompletion(ctx, alias)
}

func (g *gatewayInvoker) Complete(ctx context.Context, alias string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model, err := g.gw.AgentModel(ctx, alias)
	if err != nil {
		return nil, err
	}
	return model.Complete(ctx, req)
}

func (g *gatewayInvoker) EmbedText(ctx context.Context, text string, opts llm.EmbedOptions) []float64 {
	return g.gw.EmbedText(ctx, text, opts)
}

// Server carries the HTTP handler dependencies.
type Server struct {
	invoker invoker
	log     *logger.Logger
	started time.Time
}

// NewServer creates the HTTP layer over a gateway facade.
func NewServer(gw *llm.Gateway, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("gateway-http")
	}
	return &Server{
		invoker: &gatewayInvoker{gw: gw},
		log:     log,
		started: time.Now(),
	}
}

// Request/response types

type configureRequest struct {
	Alias string `json:"alias"`
}

type completeRequest struct {
	Alias        string  `json:"alias"`
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type completeResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	CostCents int    `json:"cost_cents"`
	Cost      string `json:"cost"`
	LatencyMS int64  `json:"latency_ms"`
}

type embedRequest struct {
	Text     string `json:"text"`
	Alias    string `json:"alias,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
	Dimension int       `json:"dimension"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// healthHandler reports service liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "modelmesh-gateway",
		"uptime":    time.Since(s.started).String(),
		"timestamp": time.Now().UTC(),
	})
}

// configureHandler resolves a model alias into an invocation spec. The
// credential value itself never appears in the response body.
func (s *Server) configureHandler(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Alias == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "alias is required"})
		return
	}

	spec, err := s.invoker.ConfigureCompletion(r.Context(), req.Alias)
	if err != nil {
		if llm.IsConfigNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "model_not_found"})
			return
		}
		s.log.ErrorErr("", "configure failed", err, map[string]interface{}{"alias": req.Alias})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to resolve model configuration"})
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// completeHandler places a chat completion through the gateway.
func (s *Server) completeHandler(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Alias == "" || req.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "alias and prompt are required"})
		return
	}

	resp, err := s.invoker.Complete(r.Context(), req.Alias, llm.CompletionRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	if err != nil {
		if llm.IsConfigNotFound(err) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "model_not_found"})
			return
		}
		var apiErr *llm.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: apiErr.Error(), Code: "upstream_error"})
			return
		}
		s.log.ErrorErr("", "completion failed", err, map[string]interface{}{"alias": req.Alias})
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "completion failed"})
		return
	}

	out := completeResponse{
		Content:    resp.Content,
		Model:      resp.Model,
		StopReason: resp.StopReason,
		LatencyMS:  resp.Latency.Milliseconds(),
	}
	out.Usage.InputTokens = resp.Usage.InputTokens
	out.Usage.OutputTokens = resp.Usage.OutputTokens
	out.Usage.TotalTokens = resp.Usage.TotalTokens

	// Cost estimation keys off the bare model name; the routing prefix
	// only matters inside the gateway.
	model := strings.TrimPrefix(resp.Model, resp.Provider+"/")
	out.CostCents = pricing.CalculateCost(resp.Provider, model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	out.Cost = pricing.FormatCostToDollars(out.CostCents)

	writeJSON(w, http.StatusOK, out)
}

// embedHandler computes an embedding. The facade never errors; an
// empty vector surfaces as 502 because from the caller's side the
// embedding simply was not produced.
func (s *Server) embedHandler(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "text is required"})
		return
	}

	opts := llm.EmbedOptions{Alias: req.Alias}
	if req.Provider != "" && req.Model != "" {
		opts.Config = &llm.ModelConfig{
			Provider: llm.ProviderType(req.Provider),
			Name:     req.Model,
		}
	}

	vector := s.invoker.EmbedText(r.Context(), req.Text, opts)
	if vector == nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "embedding unavailable", Code: "embedding_failed"})
		return
	}

	writeJSON(w, http.StatusOK, embedResponse{Embedding: vector, Dimension: len(vector)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
