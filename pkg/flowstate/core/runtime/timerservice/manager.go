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
	"io"

	"github.com/flowstate-io/flowstate/pkg/flowstate/core/mtime"
	"github.com/flowstate-io/flowstate/pkg/flowstate/core/runtime/statebackend"
	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
	"github.com/flowstate-io/flowstate/pkg/flowstate/log"
)

// ErrCheckpointsUnsupported is returned for any snapshot attempt against the
// batch time service manager. Batch jobs restart from scratch, never from
// checkpoints, and the caller must see a clear failure rather than infer
// "nothing to save" from silently empty state.
var ErrCheckpointsUnsupported = errors.New("checkpoints are not supported in batch execution")

// managedService is the manager's view of one named timer service.
type managedService[K comparable] interface {
	switchKey(ctx context.Context, key *K) error
}

// Manager is the per-task registry of named timer services. It manages
// timers with a single active key at a time, for batch execution.
//
// A manager is wired to exactly one service variant (synchronous or
// async-state) for its whole lifetime, decided by the capabilities of the
// keyed-state backend it was created against. It registers itself as the
// backend's key selection listener at construction and stays registered for
// the task's lifetime.
//
// The registry is mutated only from the task's processing thread; no locking
// is required.
type Manager[K comparable] struct {
	ctx   context.Context // task cancellation context
	clock ProcessingTimeService

	names    []string // registration order, for deterministic notification
	services map[string]managedService[K]

	exec *statebackend.KeyedExecutor[K] // nil in the synchronous variant
}

// NewManager creates a manager attached to a batch-capable keyed-state
// backend and registers it for key selection. ctx is the surrounding task's
// cancellation context; a flush in progress observes it and aborts promptly.
// Construction fails for a backend without batch execution, since the
// manager's single-active-key model is meaningless otherwise.
func NewManager[K comparable](ctx context.Context, backend statebackend.KeyedStateBackend[K], clock ProcessingTimeService) (*Manager[K], error) {
	caps := backend.Capabilities()
	if !caps.BatchExecution {
		return nil, errors.New("batch execution time service requires a batch-capable keyed-state backend")
	}
	m := &Manager[K]{
		ctx:      ctx,
		clock:    clock,
		services: map[string]managedService[K]{},
	}
	if caps.AsyncState {
		async, ok := backend.(statebackend.AsyncStateAccess[K])
		if !ok {
			return nil, errors.New("backend reports async state access but exposes no per-key executor")
		}
		m.exec = async.Executor()
	}
	backend.RegisterKeySelectionListener(m)
	return m, nil
}

// GetTimerService returns the timer service registered under name, creating
// it on first use. Creation is idempotent per name; later calls return the
// cached service and fail if they request a different namespace type, since
// a name is bound to one namespace type for the task's lifetime.
func GetTimerService[K, N comparable](m *Manager[K], name string, trigger Triggerable[K, N]) (TimerService[N], error) {
	if svc, ok := m.services[name]; ok {
		ts, ok := svc.(TimerService[N])
		if !ok {
			return nil, errors.Errorf("timer service %q was created with a different namespace type", name)
		}
		return ts, nil
	}

	var svc managedService[K]
	if m.exec != nil {
		svc = newAsyncTimerService[K, N](m.clock, trigger, m.exec)
	} else {
		svc = newBatchTimerService[K, N](m.clock, trigger)
	}
	m.services[name] = svc
	m.names = append(m.names, name)
	log.Debugf(m.ctx, "created timer service %q", name)
	return svc.(TimerService[N]), nil
}

// AdvanceWatermark is a no-op for any legitimate data watermark: in batch
// execution timers fire on key changes, not watermark progress. The reserved
// end-of-input watermark flushes the last active key's remaining timers via
// the same "select no key" transition.
func (m *Manager[K]) AdvanceWatermark(watermark mtime.Time) error {
	if watermark.IsEndOfInput() {
		return m.KeySelected(nil)
	}
	return nil
}

// TryAdvanceWatermark delegates to AdvanceWatermark and always reports
// completion; batch mode never needs to pause mid-advance.
func (m *Manager[K]) TryAdvanceWatermark(watermark mtime.Time, shouldStop func() bool) (bool, error) {
	err := m.AdvanceWatermark(watermark)
	return true, err
}

// KeySelected notifies every registered service of the new active key, in
// registration order; each service drains the outgoing key's timers before
// the cursor moves. A nil key means end of input. The first failure aborts
// the notification and surfaces to the caller, who is expected to fail the
// task.
func (m *Manager[K]) KeySelected(key *K) error {
	for _, name := range m.names {
		if err := m.services[name].switchKey(m.ctx, key); err != nil {
			return errors.Wrapf(err, "switching key in timer service %q", name)
		}
	}
	return nil
}

// SnapshotToRawKeyedState always fails with ErrCheckpointsUnsupported, for
// any input.
func (m *Manager[K]) SnapshotToRawKeyedState(out io.Writer, operatorName string) error {
	return ErrCheckpointsUnsupported
}
