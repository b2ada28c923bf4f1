// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package timerservice contains the per-key timer machinery for batch
// execution. Batch input arrives pre-partitioned and sorted by key, so at
// most one key has timers being actively fired at any instant; a key's
// remaining timers are flushed when the key cursor moves past it. Timers are
// ordered by firing time with insertion order breaking ties, which keeps
// firing deterministic and reproducible for a key.
package timerservice

import (
	"fmt"

	"github.com/flowstate-io/flowstate/pkg/flowstate/core/mtime"
)

// Timer is an immutable (key, namespace, firing time) triple. Re-registering
// an identical triple is a no-op, as is removing an absent one.
type Timer[K, N comparable] struct {
	Key       K
	Namespace N
	Timestamp mtime.Time
}

func (t Timer[K, N]) String() string {
	return fmt.Sprintf("timer{key: %v, namespace: %v, timestamp: %v}", t.Key, t.Namespace, t.Timestamp)
}

// Triggerable is the operator-supplied callback invoked when a timer fires.
// An error from either method aborts the firing pass it was raised in; the
// core performs no retry of a fired timer.
type Triggerable[K, N comparable] interface {
	// OnEventTime is invoked when the watermark passes the timer's timestamp.
	OnEventTime(timer Timer[K, N]) error
	// OnProcessingTime is invoked when wall-clock time passes the timer's
	// timestamp, or when the timer's key is flushed at a key change.
	OnProcessingTime(timer Timer[K, N]) error
}

// TimerService is the registration surface operators see. Timers always
// target the currently selected key; registering or deleting a timer never
// suspends.
type TimerService[N comparable] interface {
	// CurrentProcessingTime returns the current wall-clock time.
	CurrentProcessingTime() mtime.Time

	// CurrentWatermark returns the current event-time watermark.
	CurrentWatermark() mtime.Time

	// RegisterEventTimeTimer registers a timer to fire when the watermark
	// passes the given time.
	RegisterEventTimeTimer(namespace N, t mtime.Time)

	// DeleteEventTimeTimer deletes the timer for the given namespace and
	// time, if it exists.
	DeleteEventTimeTimer(namespace N, t mtime.Time)

	// RegisterProcessingTimeTimer registers a timer to fire when wall-clock
	// time passes the given time.
	RegisterProcessingTimeTimer(namespace N, t mtime.Time)

	// DeleteProcessingTimeTimer deletes the timer for the given namespace
	// and time, if it exists.
	DeleteProcessingTimeTimer(namespace N, t mtime.Time)
}

// ProcessingTimeService supplies the current wall-clock time. Injectable so
// tests can run on synthetic time.
type ProcessingTimeService interface {
	CurrentProcessingTime() mtime.Time
}

// SystemClock is the wall-clock ProcessingTimeService.
type SystemClock struct{}

// CurrentProcessingTime returns the current wall-clock time.
func (SystemClock) CurrentProcessingTime() mtime.Time {
	return mtime.Now()
}

// CallbackError wraps a failure raised by an operator's Triggerable callback
// so the task can tell user-callback faults from infrastructure faults
// without string inspection.
type CallbackError struct {
	Timer string // description of the timer that was firing
	Err   error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback failed firing %v: %v", e.Timer, e.Err)
}

// Unwrap returns the original callback error.
func (e *CallbackError) Unwrap() error {
	return e.Err
}
