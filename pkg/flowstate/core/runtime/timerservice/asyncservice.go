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
	"github.com/flowstate-io/flowstate/pkg/flowstate/core/runtime/statebackend"
	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
)

// asyncTimerService is the timer service for operators whose callbacks issue
// asynchronous state operations. It has the same external contract as the
// synchronous service, but timer firing is sequenced through the backend's
// per-key executor so a key's callbacks never reorder relative to that key's
// own state mutations. Registration and deletion never suspend.
type asyncTimerService[K, N comparable] struct {
	batchTimerService[K, N]
	exec *statebackend.KeyedExecutor[K]
}

func newAsyncTimerService[K, N comparable](clock ProcessingTimeService, trigger Triggerable[K, N], exec *statebackend.KeyedExecutor[K]) *asyncTimerService[K, N] {
	return &asyncTimerService[K, N]{
		batchTimerService: *newBatchTimerService[K, N](clock, trigger),
		exec:              exec,
	}
}

// AdvanceWatermark moves the watermark to ts and fires every due event-time
// timer for the active key through the per-key executor, waiting for the
// enqueued callbacks to settle before returning.
func (s *asyncTimerService[K, N]) AdvanceWatermark(ctx context.Context, ts mtime.Time) error {
	s.watermark = ts
	return s.fireDueSequenced(ctx, s.eventTimers, ts, s.trigger.OnEventTime)
}

// switchKey finishes all timer work for the outgoing key, including the
// asynchronous effects of the fired callbacks, before the key cursor
// advances. Otherwise a later key's timer could observe a state mutation
// meant to happen strictly after the earlier key's timers.
func (s *asyncTimerService[K, N]) switchKey(ctx context.Context, key *K) error {
	s.watermark = mtime.MaxTimestamp
	if err := s.fireDueSequenced(ctx, s.eventTimers, mtime.MaxTimestamp, s.trigger.OnEventTime); err != nil {
		return err
	}
	if err := s.fireDueSequenced(ctx, s.processingTimers, mtime.MaxTimestamp, s.trigger.OnProcessingTime); err != nil {
		return err
	}
	if s.currentKey != nil {
		// Residual state work submitted outside a firing pass settles too.
		if err := s.exec.Flush(ctx, *s.currentKey); err != nil {
			return err
		}
	}
	s.watermark = mtime.MinTimestamp
	s.currentKey = key
	return nil
}

// fireDueSequenced drains due timers in rounds: collect the due timers while
// the key's mailbox is idle, submit their callbacks in firing order, then
// wait for the mailbox to settle. Callbacks may register further timers;
// rounds repeat until nothing due remains.
func (s *asyncTimerService[K, N]) fireDueSequenced(ctx context.Context, store *timerStore[K, N], limit mtime.Time, fire func(Timer[K, N]) error) error {
	for {
		var due []Timer[K, N]
		err := store.ForEachDueUpTo(limit, func(t Timer[K, N]) error {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "timer firing pass aborted")
			}
			due = append(due, t)
			return nil
		})
		if err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}
		for _, t := range due {
			t := t
			s.exec.Submit(t.Key, func() error {
				if err := fire(t); err != nil {
					return &CallbackError{Timer: t.String(), Err: err}
				}
				return nil
			})
		}
		// All due timers in one pass belong to the single active key.
		if err := s.exec.Flush(ctx, due[0].Key); err != nil {
			return err
		}
	}
}
