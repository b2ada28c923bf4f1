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
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
)

// KeyedExecutor is the per-key ordering primitive for asynchronous state
// access. Work submitted for the same key runs strictly in submission order
// (FIFO); work for distinct keys may run concurrently. A failed callback
// poisons its key's mailbox: the remaining queue for that key is dropped and
// the error is surfaced on the next Flush.
type KeyedExecutor[K comparable] struct {
	mu    sync.Mutex
	boxes map[K]*mailbox
}

type mailbox struct {
	queue   []func() error
	running bool
	err     error         // first callback error, sticky until consumed by Flush
	idle    chan struct{} // closed when the mailbox drains; replaced on reuse
}

// NewKeyedExecutor returns an executor with no pending work.
func NewKeyedExecutor[K comparable]() *KeyedExecutor[K] {
	return &KeyedExecutor[K]{boxes: map[K]*mailbox{}}
}

// Submit enqueues fn on key's mailbox. It never blocks on the work itself.
func (e *KeyedExecutor[K]) Submit(key K, fn func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.boxes[key]
	if b == nil {
		b = &mailbox{idle: make(chan struct{})}
		e.boxes[key] = b
	}
	b.queue = append(b.queue, fn)
	if !b.running {
		b.running = true
		go e.run(b)
	}
}

func (e *KeyedExecutor[K]) run(b *mailbox) {
	for {
		e.mu.Lock()
		if len(b.queue) == 0 {
			b.running = false
			close(b.idle)
			b.idle = make(chan struct{})
			e.mu.Unlock()
			return
		}
		fn := b.queue[0]
		b.queue = b.queue[1:]
		e.mu.Unlock()

		if err := fn(); err != nil {
			e.mu.Lock()
			if b.err == nil {
				b.err = err
			}
			// Later work for this key must not observe effects of the failed
			// callback; drop it.
			b.queue = nil
			e.mu.Unlock()
		}
	}
}

// Flush blocks until key's mailbox is empty or ctx is done. It returns the
// first error raised by a callback for the key since the previous Flush, and
// clears it.
func (e *KeyedExecutor[K]) Flush(ctx context.Context, key K) error {
	for {
		e.mu.Lock()
		b := e.boxes[key]
		if b == nil {
			e.mu.Unlock()
			return nil
		}
		if !b.running && len(b.queue) == 0 {
			err := b.err
			b.err = nil
			e.mu.Unlock()
			return err
		}
		idle := b.idle
		e.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for keyed work to settle")
		}
	}
}

// FlushAll blocks until every key's mailbox is empty or ctx is done,
// returning the first error encountered.
func (e *KeyedExecutor[K]) FlushAll(ctx context.Context) error {
	e.mu.Lock()
	keys := make([]K, 0, len(e.boxes))
	for k := range e.boxes {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			return e.Flush(ctx, k)
		})
	}
	return g.Wait()
}
