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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// newTestBreaker returns a registry with a controllable clock.
func newTestBreaker() (*BreakerRegistry, *time.Time) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewBreakerRegistry()
	r.now = func() time.Time { return current }
	return r, &current
}

func TestBreaker_ClosedByDefault(t *testing.T) {
	r, _ := newTestBreaker()

	assert.True(t, r.Allow("openai"))
	assert.False(t, r.Open("openai"))
	assert.Zero(t, r.Failures("openai"))
}

func TestBreaker_BelowThresholdNeverBlocks(t *testing.T) {
	r, _ := newTestBreaker()

	r.RecordFailure("openai")
	r.RecordFailure("openai")

	assert.True(t, r.Allow("openai"))
	assert.Equal(t, 2, r.Failures("openai"))
	assert.False(t, r.Open("openai"))
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	r, _ := newTestBreaker()

	for i := 0; i < DefaultBreakerThreshold; i++ {
		r.RecordFailure("openai")
	}

	assert.False(t, r.Allow("openai"))
	assert.True(t, r.Open("openai"))
}

func TestBreaker_ShortCircuitDoesNotCount(t *testing.T) {
	r, _ := newTestBreaker()

	for i := 0; i < 3; i++ {
		r.RecordFailure("openai")
	}
	for i := 0; i < 5; i++ {
		r.Allow("openai")
	}

	// Blocked calls never happened; the count must not move.
	assert.Equal(t, 3, r.Failures("openai"))
}

func TestBreaker_HalfOpenAfterWindow(t *testing.T) {
	r, clock := newTestBreaker()

	for i := 0; i < 3; i++ {
		r.RecordFailure("openai")
	}
	assert.False(t, r.Allow("openai"))

	*clock = clock.Add(DefaultBreakerWindow + time.Minute)

	// The window has elapsed: one attempt proceeds and history is gone.
	assert.True(t, r.Allow("openai"))
	assert.Zero(t, r.Failures("openai"))

	// A failure on the half-open attempt starts a fresh count.
	r.RecordFailure("openai")
	assert.Equal(t, 1, r.Failures("openai"))
	assert.True(t, r.Allow("openai"))
}

func TestBreaker_FirstFailureTimestampIsKept(t *testing.T) {
	r, clock := newTestBreaker()

	r.RecordFailure("openai")
	*clock = clock.Add(4 * time.Minute)
	r.RecordFailure("openai")
	r.RecordFailure("openai")

	// Window is measured from the FIRST failure: two more minutes and
	// it has elapsed even though the last failure was recent.
	assert.False(t, r.Allow("openai"))
	*clock = clock.Add(2 * time.Minute)
	assert.True(t, r.Allow("openai"))
}

func TestBreaker_SuccessDeletesEntry(t *testing.T) {
	r, _ := newTestBreaker()

	for i := 0; i < 3; i++ {
		r.RecordFailure("openai")
	}
	r.RecordSuccess("openai")

	assert.True(t, r.Allow("openai"))
	assert.Zero(t, r.Failures("openai"))

	// The next failure starts at 1, not 4.
	r.RecordFailure("openai")
	assert.Equal(t, 1, r.Failures("openai"))
}

func TestBreaker_ProvidersAreIndependent(t *testing.T) {
	r, _ := newTestBreaker()

	for i := 0; i < 3; i++ {
		r.RecordFailure("openai")
	}

	assert.False(t, r.Allow("openai"))
	assert.True(t, r.Allow("databricks"))
	assert.Zero(t, r.Failures("databricks"))
}

func TestBreaker_ConcurrentFailuresDoNotLoseIncrements(t *testing.T) {
	r, _ := newTestBreaker()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordFailure("openai")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, r.Failures("openai"))
}
