// Copyright 2025 ModelMesh
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	promConfigResolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmesh_gateway_config_resolves_total",
			Help: "Total number of model configuration resolutions",
		},
		[]string{"provider", "status"},
	)
	promEmbeddingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmesh_gateway_embedding_calls_total",
			Help: "Total number of embedding calls",
		},
		[]string{"provider", "status"},
	)
	promEmbeddingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modelmesh_gateway_embedding_duration_milliseconds",
			Help:    "Embedding call duration in milliseconds",
			Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
		},
		[]string{"provider"},
	)
	promBreakerShortCircuits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelmesh_gateway_breaker_short_circuits_total",
			Help: "Total number of embedding calls rejected by an open circuit breaker",
		},
		[]string{"provider"},
	)
)

func init() {
	// Register Prometheus metrics
	prometheus.MustRegister(promConfigResolves)
	prometheus.MustRegister(promEmbeddingCalls)
	prometheus.MustRegister(promEmbeddingDuration)
	prometheus.MustRegister(promBreakerShortCircuits)
}
