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

// Package audit records the lifecycle of model invocations to an
// append-only sink.
//
// The logger is strictly fail-soft: an audit record is worth less than
// the call it describes, so any failure while formatting, serializing,
// or writing an event — including panics raised by malformed caller
// payloads — is absorbed and the event is dropped. No entry point ever
// returns an error or panics.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase identifies where in a call's lifecycle an event was emitted.
type Phase string

const (
	PhasePreCall  Phase = "pre_call"
	PhasePostCall Phase = "post_call"
	PhaseSuccess  Phase = "success"
	PhaseFailure  Phase = "failure"
)

// maxPayloadLen bounds how much of a prompt/response body is written to
// the log. Full bodies stay out of audit records.
const maxPayloadLen = 200

// Event is a single audit record. Write-only: the gateway never reads
// events back.
type Event struct {
	ID         string    `json:"id"`
	Phase      Phase     `json:"phase"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    string    `json:"payload,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms,omitempty"`
}

// CallLogger writes call lifecycle events to a sink. Every event exists
// in a synchronous and an asynchronous variant producing equivalent log
// content; both are safe for concurrent use and a single call may emit
// through both in close succession.
type CallLogger struct {
	mu   sync.Mutex
	sink io.Writer
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewCallLogger creates a logger writing to sink. A nil sink defaults
// to stdout.
func NewCallLogger(sink io.Writer) *CallLogger {
	if sink == nil {
		sink = os.Stdout
	}
	return &CallLogger{sink: sink, now: time.Now}
}

// PreCall records that an invocation is about to start.
func (l *CallLogger) PreCall(model string, payload interface{}) {
	l.write(PhasePreCall, model, payload, nil, time.Time{})
}

// PostCall records that an invocation returned, with its start time for
// duration accounting.
func (l *CallLogger) PostCall(model string, payload interface{}, started time.Time) {
	l.write(PhasePostCall, model, payload, nil, started)
}

// Success records a completed invocation.
func (l *CallLogger) Success(model string, payload interface{}, started time.Time) {
	l.write(PhaseSuccess, model, payload, nil, started)
}

// Failure records a failed invocation.
func (l *CallLogger) Failure(model string, payload interface{}, callErr error) {
	l.write(PhaseFailure, model, payload, callErr, time.Time{})
}

// PreCallAsync is the non-blocking variant of PreCall.
func (l *CallLogger) PreCallAsync(model string, payload interface{}) {
	l.dispatch(PhasePreCall, model, payload, nil, time.Time{})
}

// PostCallAsync is the non-blocking variant of PostCall.
func (l *CallLogger) PostCallAsync(model string, payload interface{}, started time.Time) {
	l.dispatch(PhasePostCall, model, payload, nil, started)
}

// SuccessAsync is the non-blocking variant of Success.
func (l *CallLogger) SuccessAsync(model string, payload interface{}, started time.Time) {
	l.dispatch(PhaseSuccess, model, payload, nil, started)
}

// FailureAsync is the non-blocking variant of Failure.
func (l *CallLogger) FailureAsync(model string, payload interface{}, callErr error) {
	l.dispatch(PhaseFailure, model, payload, callErr, time.Time{})
}

// Drain blocks until all in-flight asynchronous events have been
// written or dropped. Intended for shutdown and tests.
func (l *CallLogger) Drain() {
	l.wg.Wait()
}

// dispatch hands an event to a goroutine so the caller never blocks on
// sink I/O.
func (l *CallLogger) dispatch(phase Phase, model string, payload interface{}, callErr error, started time.Time) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.write(phase, model, payload, callErr, started)
	}()
}

// write is the single canonical implementation behind every entry
// point. The deferred recover is the fail-soft boundary: anything that
// goes wrong inside — payload formatting, duration math on a malformed
// timestamp pair, marshaling, the sink write — drops the event instead
// of propagating.
func (l *CallLogger) write(phase Phase, model string, payload interface{}, callErr error, started time.Time) {
	defer func() { _ = recover() }()

	event := Event{
		ID:        uuid.NewString(),
		Phase:     phase,
		Model:     model,
		Timestamp: l.now().UTC(),
		Payload:   truncate(safeString(payload)),
	}
	if callErr != nil {
		event.Error = truncate(safeErrorString(callErr))
	}
	if !started.IsZero() {
		if elapsed := l.now().Sub(started); elapsed > 0 {
			event.DurationMS = float64(elapsed.Microseconds()) / 1000.0
		}
	}

	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.sink.Write(append(line, '\n'))
}

// safeString renders an arbitrary caller-supplied payload, absorbing
// panics from misbehaving String/Format implementations.
func safeString(v interface{}) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unprintable>"
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", v)
	}
}

// safeErrorString renders an error whose Error method may itself panic.
func safeErrorString(err error) (s string) {
	defer func() {
		if recover() != nil {
			s = "<unprintable error>"
		}
	}()
	return err.Error()
}

// truncate bounds a payload string for the log.
func truncate(s string) string {
	if len(s) > maxPayloadLen {
		return s[:maxPayloadLen] + "..."
	}
	return s
}
