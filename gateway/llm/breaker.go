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
	"sync"
	"time"
)

// Circuit breaker defaults. Keyed by provider, not model: provider-level
// outages (auth, rate limiting, endpoint downtime) are the dominant
// failure mode, so all models under one provider share one breaker.
const (
	// DefaultBreakerThreshold is the failure count at which the breaker
	// opens.
	DefaultBreakerThreshold = 3

	// DefaultBreakerWindow is the cooldown window measured from the
	// first failure.
	DefaultBreakerWindow = 5 * time.Minute
)

// breakerEntry tracks consecutive failures for one provider. An entry
// exists only while the provider is unhealthy; a healthy provider has no
// entry at all.
type breakerEntry struct {
	failures     int
	firstFailure time.Time
}

// BreakerRegistry is a per-provider failure tracker guarding the
// embedding call path. It is an injected dependency of the facade rather
// than process-global state, so tests get a fresh registry each.
//
// All updates are applied under one lock, making increment/reset/delete
// atomic per key; concurrent failures never lose increments, and the last
// terminal write (success delete vs. failure increment) wins in
// completion order.
type BreakerRegistry struct {
	mu        sync.Mutex
	entries   map[string]*breakerEntry
	threshold int
	window    time.Duration
	now       func() time.Time
}

// NewBreakerRegistry creates a registry with the default threshold and
// cooldown window.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{
		entries:   make(map[string]*breakerEntry),
		threshold: DefaultBreakerThreshold,
		window:    DefaultBreakerWindow,
		now:       time.Now,
	}
}

// Allow reports whether a call for the provider may proceed. When the
// breaker is open and the cooldown window has not elapsed, the call is
// short-circuited and no state changes: a call that never happened does
// not count as a failure. Once the window has elapsed the entry is
// cleared and a single half-open attempt proceeds; its own outcome
// restarts the count from scratch.
func (r *BreakerRegistry) Allow(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[provider]
	if !ok || entry.failures < r.threshold {
		return true
	}

	if r.now().Sub(entry.firstFailure) < r.window {
		return false
	}

	delete(r.entries, provider)
	return true
}

// RecordFailure registers a failed attempt. The first failure timestamp
// is kept across subsequent failures so the cooldown window is measured
// from the start of the outage.
func (r *BreakerRegistry) RecordFailure(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[provider]; ok {
		entry.failures++
		return
	}
	r.entries[provider] = &breakerEntry{
		failures:     1,
		firstFailure: r.now(),
	}
}

// RecordSuccess removes the provider's entry entirely, returning it to
// the closed state with zero history.
func (r *BreakerRegistry) RecordSuccess(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, provider)
}

// Failures returns the current failure count for a provider (0 when no
// entry exists).
func (r *BreakerRegistry) Failures(provider string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[provider]; ok {
		return entry.failures
	}
	return 0
}

// Open reports whether the provider's breaker is currently open.
func (r *BreakerRegistry) Open(provider string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[provider]
	return ok && entry.failures >= r.threshold && r.now().Sub(entry.firstFailure) < r.window
}
