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

package statebackend

import (
	"context"
)

// AsyncStateAccess extends the backend contract with the per-key ordering
// primitive callbacks use to sequence asynchronous state operations.
type AsyncStateAccess[K comparable] interface {
	KeyedStateBackend[K]

	// Executor returns the per-key FIFO executor. Callback chains for a
	// single key are strictly ordered through it; distinct keys interleave
	// freely.
	Executor() *KeyedExecutor[K]
}

// AsyncAdaptor wraps a BatchBackend for operators that access state
// asynchronously. Key selection and state storage delegate to the wrapped
// backend; the adaptor contributes the per-key executor and flags the async
// capability so consumers pick the async-aware timer machinery.
type AsyncAdaptor[K comparable] struct {
	inner *BatchBackend[K]
	exec  *KeyedExecutor[K]
}

// NewAsyncAdaptor wraps backend for asynchronous state access.
func NewAsyncAdaptor[K comparable](backend *BatchBackend[K]) *AsyncAdaptor[K] {
	return &AsyncAdaptor[K]{
		inner: backend,
		exec:  NewKeyedExecutor[K](),
	}
}

// Capabilities reports the wrapped backend's capabilities plus async state.
func (a *AsyncAdaptor[K]) Capabilities() Capabilities {
	caps := a.inner.Capabilities()
	caps.AsyncState = true
	return caps
}

// RegisterKeySelectionListener registers l with the wrapped backend.
func (a *AsyncAdaptor[K]) RegisterKeySelectionListener(l KeySelectionListener[K]) {
	a.inner.RegisterKeySelectionListener(l)
}

// CurrentKey returns the wrapped backend's active key, if any.
func (a *AsyncAdaptor[K]) CurrentKey() (K, bool) {
	return a.inner.CurrentKey()
}

// SetCurrentKey moves the key cursor after the outgoing key's asynchronous
// work has settled. Listeners run inside the wrapped backend's transition and
// may themselves submit and await keyed work.
func (a *AsyncAdaptor[K]) SetCurrentKey(ctx context.Context, key K) error {
	if err := a.flushCurrent(ctx); err != nil {
		return err
	}
	return a.inner.SetCurrentKey(ctx, key)
}

// EndInput flushes the last key's asynchronous work and signals end of input.
func (a *AsyncAdaptor[K]) EndInput(ctx context.Context) error {
	if err := a.flushCurrent(ctx); err != nil {
		return err
	}
	return a.inner.EndInput(ctx)
}

func (a *AsyncAdaptor[K]) flushCurrent(ctx context.Context) error {
	key, ok := a.inner.CurrentKey()
	if !ok {
		return nil
	}
	return a.exec.Flush(ctx, key)
}

// Executor returns the per-key FIFO executor.
func (a *AsyncAdaptor[K]) Executor() *KeyedExecutor[K] {
	return a.exec
}

// Unwrap returns the wrapped batch backend.
func (a *AsyncAdaptor[K]) Unwrap() *BatchBackend[K] {
	return a.inner
}
