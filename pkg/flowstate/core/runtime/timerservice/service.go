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

package timerservice

import (
	"context"

	"github.com/flowstate-io/flowstate/pkg/flowstate/core/mtime"
	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
)

// batchTimerService is the synchronous timer service for batch execution.
// All methods run on the task's processing thread; no locking is required.
type batchTimerService[K, N comparable] struct {
	clock            ProcessingTimeService
	trigger          Triggerable[K, N]
	eventTimers      *timerStore[K, N]
	processingTimers *timerStore[K, N]

	// currentKey is the single active key; nil means no key is selected.
	// Mutated only through switchKey.
	currentKey *K
	watermark  mtime.Time
}

func newBatchTimerService[K, N comparable](clock ProcessingTimeService, trigger Triggerable[K, N]) *batchTimerService[K, N] {
	return &batchTimerService[K, N]{
		clock:            clock,
		trigger:          trigger,
		eventTimers:      newTimerStore[K, N](),
		processingTimers: newTimerStore[K, N](),
		watermark:        mtime.MinTimestamp,
	}
}

// CurrentProcessingTime returns the current wall-clock time.
func (s *batchTimerService[K, N]) CurrentProcessingTime() mtime.Time {
	return s.clock.CurrentProcessingTime()
}

// CurrentWatermark returns the current event-time watermark.
func (s *batchTimerService[K, N]) CurrentWatermark() mtime.Time {
	return s.watermark
}

// RegisterEventTimeTimer registers an event-time timer for the active key.
func (s *batchTimerService[K, N]) RegisterEventTimeTimer(namespace N, t mtime.Time) {
	s.eventTimers.Add(Timer[K, N]{Key: s.activeKey(), Namespace: namespace, Timestamp: t})
}

// DeleteEventTimeTimer deletes the matching event-time timer, if any.
func (s *batchTimerService[K, N]) DeleteEventTimeTimer(namespace N, t mtime.Time) {
	s.eventTimers.Remove(Timer[K, N]{Key: s.activeKey(), Namespace: namespace, Timestamp: t})
}

// RegisterProcessingTimeTimer registers a processing-time timer for the
// active key.
func (s *batchTimerService[K, N]) RegisterProcessingTimeTimer(namespace N, t mtime.Time) {
	s.processingTimers.Add(Timer[K, N]{Key: s.activeKey(), Namespace: namespace, Timestamp: t})
}

// DeleteProcessingTimeTimer deletes the matching processing-time timer, if any.
func (s *batchTimerService[K, N]) DeleteProcessingTimeTimer(namespace N, t mtime.Time) {
	s.processingTimers.Remove(Timer[K, N]{Key: s.activeKey(), Namespace: namespace, Timestamp: t})
}

func (s *batchTimerService[K, N]) activeKey() K {
	if s.currentKey == nil {
		panic("timerservice: timer registration with no key selected")
	}
	return *s.currentKey
}

// AdvanceWatermark moves the watermark to ts and fires every due event-time
// timer for the active key in ascending firing order, including timers the
// callbacks register that are due themselves. Timers past ts stay registered.
func (s *batchTimerService[K, N]) AdvanceWatermark(ctx context.Context, ts mtime.Time) error {
	s.watermark = ts
	return s.fireDue(ctx, s.eventTimers, ts, s.trigger.OnEventTime)
}

// switchKey finishes all timer work for the outgoing key, then installs key
// as the active key. Batch input for a key is fully consumed before the next
// key begins, so both event-time and processing-time timers drain as if time
// advanced to the end. The watermark resets afterwards: the incoming key has
// seen no input yet.
func (s *batchTimerService[K, N]) switchKey(ctx context.Context, key *K) error {
	s.watermark = mtime.MaxTimestamp
	if err := s.fireDue(ctx, s.eventTimers, mtime.MaxTimestamp, s.trigger.OnEventTime); err != nil {
		return err
	}
	if err := s.fireDue(ctx, s.processingTimers, mtime.MaxTimestamp, s.trigger.OnProcessingTime); err != nil {
		return err
	}
	s.watermark = mtime.MinTimestamp
	s.currentKey = key
	return nil
}

func (s *batchTimerService[K, N]) fireDue(ctx context.Context, store *timerStore[K, N], limit mtime.Time, fire func(Timer[K, N]) error) error {
	return store.ForEachDueUpTo(limit, func(t Timer[K, N]) error {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "timer firing pass aborted")
		}
		if err := fire(t); err != nil {
			return &CallbackError{Timer: t.String(), Err: err}
		}
		return nil
	})
}
