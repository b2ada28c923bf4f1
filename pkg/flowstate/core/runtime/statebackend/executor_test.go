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
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestKeyedExecutor_FIFOPerKey(t *testing.T) {
	e := NewKeyedExecutor[string]()
	var mu sync.Mutex
	var got []int

	for i := 0; i < 100; i++ {
		i := i
		e.Submit("k", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		})
	}
	if err := e.Flush(context.Background(), "k"); err != nil {
		t.Fatalf("Flush = %v, want nil", err)
	}

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("submission order not preserved (-want, +got):\n%v", d)
	}
}

func TestKeyedExecutor_DistinctKeysInterleave(t *testing.T) {
	e := NewKeyedExecutor[string]()

	// Block key "a" until key "b" has run, which only works if distinct
	// keys run concurrently.
	bRan := make(chan struct{})
	e.Submit("a", func() error {
		select {
		case <-bRan:
			return nil
		case <-time.After(5 * time.Second):
			return stderrors.New("key b never ran while key a was blocked")
		}
	})
	e.Submit("b", func() error {
		close(bRan)
		return nil
	})

	if err := e.FlushAll(context.Background()); err != nil {
		t.Fatalf("FlushAll = %v, want nil", err)
	}
}

func TestKeyedExecutor_ErrorPoisonsKey(t *testing.T) {
	e := NewKeyedExecutor[string]()
	boom := stderrors.New("boom")
	var after bool

	e.Submit("k", func() error { return boom })
	e.Submit("k", func() error { after = true; return nil })

	err := e.Flush(context.Background(), "k")
	if !stderrors.Is(err, boom) {
		t.Fatalf("Flush = %v, want %v", err, boom)
	}
	if after {
		t.Errorf("work queued behind a failed callback still ran")
	}

	// The error is consumed; the key is usable again.
	if err := e.Flush(context.Background(), "k"); err != nil {
		t.Errorf("second Flush = %v, want nil", err)
	}
	e.Submit("k", func() error { return nil })
	if err := e.Flush(context.Background(), "k"); err != nil {
		t.Errorf("Flush after recovery = %v, want nil", err)
	}
}

func TestKeyedExecutor_FlushUnknownKey(t *testing.T) {
	e := NewKeyedExecutor[string]()
	if err := e.Flush(context.Background(), "nothing"); err != nil {
		t.Errorf("Flush of unknown key = %v, want nil", err)
	}
}

func TestKeyedExecutor_FlushObservesCancellation(t *testing.T) {
	e := NewKeyedExecutor[string]()
	release := make(chan struct{})
	defer close(release)
	e.Submit("k", func() error {
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Flush(ctx, "k")
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Flush on canceled context = %v, want context.Canceled in chain", err)
	}
}
