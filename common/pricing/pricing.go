// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

// Package pricing estimates the cost of LLM calls routed through the
// gateway. Prices are stored in cents per 1K tokens to avoid floating
// point issues. All prices are USD.
package pricing

import "fmt"

// ModelPricing contains pricing for a specific model.
type ModelPricing struct {
	PromptCostPer1K     int // cents per 1K prompt tokens
	CompletionCostPer1K int // cents per 1K completion tokens
}

// modelPricing maps provider-model combinations to pricing.
// Prices as of mid 2025; unknown models fall back to "default".
var modelPricing = map[string]ModelPricing{
	// OpenAI
	"openai-gpt-4o":      {250, 1000}, // $0.0025/$0.01 per 1K tokens
	"openai-gpt-4o-mini": {15, 60},    // $0.00015/$0.0006 per 1K tokens
	"openai-gpt-4-turbo": {1000, 3000},

	// DeepSeek
	"deepseek-deepseek-chat":     {27, 110},
	"deepseek-deepseek-reasoner": {55, 219},

	// Gemini
	"gemini-gemini-2.0-flash": {10, 40},
	"gemini-gemini-1.5-pro":   {125, 500},

	// Databricks serving endpoints bill per DBU; this approximates the
	// pay-per-token tier for foundation models.
	"databricks-databricks-dbrx-instruct": {75, 225},

	// Bedrock (Anthropic models)
	"bedrock-anthropic.claude-3-5-sonnet-20240620-v1:0": {300, 1500},
	"bedrock-anthropic.claude-3-haiku-20240307-v1:0":    {25, 125},

	// Local models cost nothing per token.
	"ollama-default": {0, 0},

	// Conservative fallback for unknown models.
	"default": {1000, 3000},
}

// CalculateCost calculates the cost in cents for an LLM call. Returns
// an integer cent amount to avoid floating point precision issues.
func CalculateCost(provider, model string, promptTokens, completionTokens int) int {
	pricing := lookup(provider, model)

	promptCost := (promptTokens * pricing.PromptCostPer1K) / 1000
	completionCost := (completionTokens * pricing.CompletionCostPer1K) / 1000

	return promptCost + completionCost
}

// Lookup returns the pricing for a provider-model combination and
// whether it was an exact match.
func Lookup(provider, model string) (ModelPricing, bool) {
	pricing, ok := modelPricing[provider+"-"+model]
	return pricing, ok
}

func lookup(provider, model string) ModelPricing {
	if pricing, ok := modelPricing[provider+"-"+model]; ok {
		return pricing
	}
	// Everything served locally is free regardless of model.
	if pricing, ok := modelPricing[provider+"-default"]; ok {
		return pricing
	}
	return modelPricing["default"]
}

// FormatCostToDollars converts cents to a dollar string
// (e.g., 135 cents -> "$1.35").
func FormatCostToDollars(cents int) string {
	dollars := float64(cents) / 100.0
	return fmt.Sprintf("$%.2f", dollars)
}
