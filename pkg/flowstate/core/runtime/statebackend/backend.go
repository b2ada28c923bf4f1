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

// Package statebackend contains the narrow keyed-state contract the task
// runtime consumes, and the batch-execution backend that drives key
// selection. Batch input arrives pre-partitioned and sorted by key, so the
// backend keeps state for exactly one key at a time and discards it when the
// cursor moves on.
package statebackend

import (
	"context"

	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
)

// Capabilities describes the execution modes a keyed-state backend supports.
// The flags are fixed at construction time; consumers branch on them once
// instead of inspecting concrete backend types.
type Capabilities struct {
	// BatchExecution is set when the backend processes one logical key at a
	// time over pre-sorted input.
	BatchExecution bool
	// AsyncState is set when state reads and writes issued by callbacks may
	// complete out of line, sequenced by a per-key executor.
	AsyncState bool
}

// KeySelectionListener is notified whenever the backend's current key
// changes. A nil key means "no key selected" and is the terminal transition
// at end of input. An error from the listener aborts the key change and is
// surfaced to the caller, who is expected to fail the task.
type KeySelectionListener[K comparable] interface {
	KeySelected(key *K) error
}

// KeyedStateBackend is the contract between the task runtime and the keyed
// state storage engine. The full storage engine is an external collaborator;
// this interface covers only what the timer and checkpoint machinery needs.
type KeyedStateBackend[K comparable] interface {
	// Capabilities reports the execution modes this backend was built for.
	Capabilities() Capabilities

	// RegisterKeySelectionListener registers l for the backend's lifetime.
	// Registration is explicit and happens at construction time of the
	// consumer; there is no implicit registration side channel.
	RegisterKeySelectionListener(l KeySelectionListener[K])

	// CurrentKey returns the active key, if any.
	CurrentKey() (K, bool)

	// SetCurrentKey moves the key cursor. Listeners are notified before the
	// cursor advances so they can finish all work for the outgoing key.
	SetCurrentKey(ctx context.Context, key K) error

	// EndInput signals that no further keys will be selected. Listeners
	// receive a nil key and must flush everything that is still pending.
	EndInput(ctx context.Context) error
}

// BatchBackend is a keyed-state backend for batch execution. At most one key
// is live; its state lives in memory and is dropped as soon as the next key
// is selected, since a key's input is fully consumed before the next key
// begins.
type BatchBackend[K comparable] struct {
	key       *K
	listeners []KeySelectionListener[K]
	state     map[string][]byte
}

// NewBatchBackend returns an empty batch-execution backend.
func NewBatchBackend[K comparable]() *BatchBackend[K] {
	return &BatchBackend[K]{state: map[string][]byte{}}
}

// Capabilities reports batch execution with synchronous state access.
func (b *BatchBackend[K]) Capabilities() Capabilities {
	return Capabilities{BatchExecution: true}
}

// RegisterKeySelectionListener registers l for key-change notifications.
func (b *BatchBackend[K]) RegisterKeySelectionListener(l KeySelectionListener[K]) {
	b.listeners = append(b.listeners, l)
}

// CurrentKey returns the active key, if any.
func (b *BatchBackend[K]) CurrentKey() (K, bool) {
	if b.key == nil {
		var zero K
		return zero, false
	}
	return *b.key, true
}

// SetCurrentKey selects key as the active key. Listeners run first, against
// the outgoing key's state; once they return the outgoing state is dropped.
func (b *BatchBackend[K]) SetCurrentKey(ctx context.Context, key K) error {
	return b.selectKey(ctx, &key)
}

// EndInput selects "no key", flushing everything still pending in listeners.
func (b *BatchBackend[K]) EndInput(ctx context.Context) error {
	return b.selectKey(ctx, nil)
}

func (b *BatchBackend[K]) selectKey(ctx context.Context, key *K) error {
	for _, l := range b.listeners {
		if err := l.KeySelected(key); err != nil {
			return errors.Wrap(err, "notifying key selection listener")
		}
	}
	// All work for the outgoing key is finished; its state is dead.
	b.state = map[string][]byte{}
	b.key = key
	return nil
}

// GetState returns the named state value for the current key.
func (b *BatchBackend[K]) GetState(name string) ([]byte, bool) {
	v, ok := b.state[name]
	return v, ok
}

// PutState sets the named state value for the current key.
func (b *BatchBackend[K]) PutState(name string, value []byte) {
	b.state[name] = value
}

// ClearState removes the named state value for the current key.
func (b *BatchBackend[K]) ClearState(name string) {
	delete(b.state, name)
}
