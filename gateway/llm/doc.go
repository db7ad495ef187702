// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

// Package llm resolves model aliases into credentialed, ready-to-call
// provider invocations and computes embeddings across providers.
//
// The Gateway facade is the entry point. It combines a ModelStore
// (alias to provider/model mapping), a CredentialResolver (per-provider
// secrets, including workspace OAuth and personal tokens), a resolver
// that normalizes model names and endpoints per provider, a
// per-provider circuit breaker guarding the embedding path, and a
// MultiEmbedder that speaks the OpenAI-compatible protocol, workspace
// serving endpoints, and the Bedrock runtime.
package llm
