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
	"container/heap"

	"github.com/flowstate-io/flowstate/pkg/flowstate/core/mtime"
)

// timerEntry pairs a timer with its insertion sequence number. The sequence
// number breaks firing-time ties, so timers with equal timestamps fire in
// registration order on every run.
type timerEntry[K, N comparable] struct {
	timer Timer[K, N]
	seq   uint64
}

// timerHeap is a min-heap ordered by firing time, then insertion order.
type timerHeap[K, N comparable] []timerEntry[K, N]

func (h timerHeap[K, N]) Len() int { return len(h) }
func (h timerHeap[K, N]) Less(i, j int) bool {
	if h[i].timer.Timestamp != h[j].timer.Timestamp {
		return h[i].timer.Timestamp < h[j].timer.Timestamp
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap[K, N]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap[K, N]) Push(x any) {
	// Push and Pop use pointer receivers because they modify the slice's length,
	// not just its contents.
	*h = append(*h, x.(timerEntry[K, N]))
}

func (h *timerHeap[K, N]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

func (h *timerHeap[K, N]) remove(t Timer[K, N]) {
	for i, e := range *h {
		if e.timer == t {
			heap.Remove(h, i)
			return
		}
	}
}

// timerStore is an ordered index of the timers for one (service name,
// namespace type) pair. In batch execution it only ever holds timers for the
// single currently-active key, so it needs no cross-key ordering.
//
// timerStore is not goroutine safe and relies on external synchronization.
type timerStore[K, N comparable] struct {
	h          timerHeap[K, N]
	registered map[Timer[K, N]]struct{}
	seq        uint64
}

func newTimerStore[K, N comparable]() *timerStore[K, N] {
	return &timerStore[K, N]{registered: map[Timer[K, N]]struct{}{}}
}

// Add registers t. Registering an identical triple twice is a no-op.
func (s *timerStore[K, N]) Add(t Timer[K, N]) {
	if _, ok := s.registered[t]; ok {
		return
	}
	s.registered[t] = struct{}{}
	heap.Push(&s.h, timerEntry[K, N]{timer: t, seq: s.seq})
	s.seq++
}

// Remove deletes t if registered. Removing an absent timer is a no-op.
func (s *timerStore[K, N]) Remove(t Timer[K, N]) {
	if _, ok := s.registered[t]; !ok {
		return
	}
	delete(s.registered, t)
	s.h.remove(t)
}

// ForEachDueUpTo pops every timer with firing time at or before limit, in
// firing order, removing each before handing it to fn. Timers fn registers
// that are themselves due are produced in the same pass. An error from fn
// aborts the pass; timers not yet produced stay registered.
func (s *timerStore[K, N]) ForEachDueUpTo(limit mtime.Time, fn func(Timer[K, N]) error) error {
	for len(s.h) > 0 && s.h[0].timer.Timestamp <= limit {
		t := heap.Pop(&s.h).(timerEntry[K, N]).timer
		delete(s.registered, t)
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of registered timers.
func (s *timerStore[K, N]) Len() int {
	return len(s.h)
}
