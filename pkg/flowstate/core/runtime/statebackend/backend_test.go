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
	"testing"
)

// recordingListener captures key selections. A nil key records as "<none>".
type recordingListener struct {
	keys []string
	err  error
}

func (l *recordingListener) KeySelected(key *string) error {
	if l.err != nil {
		return l.err
	}
	if key == nil {
		l.keys = append(l.keys, "<none>")
	} else {
		l.keys = append(l.keys, *key)
	}
	return nil
}

func TestBatchBackend_KeySelectionNotifiesListeners(t *testing.T) {
	b := NewBatchBackend[string]()
	l := &recordingListener{}
	b.RegisterKeySelectionListener(l)

	ctx := context.Background()
	if err := b.SetCurrentKey(ctx, "A"); err != nil {
		t.Fatalf("SetCurrentKey(A) = %v, want nil", err)
	}
	if err := b.SetCurrentKey(ctx, "B"); err != nil {
		t.Fatalf("SetCurrentKey(B) = %v, want nil", err)
	}
	if err := b.EndInput(ctx); err != nil {
		t.Fatalf("EndInput = %v, want nil", err)
	}

	want := []string{"A", "B", "<none>"}
	if len(l.keys) != len(want) {
		t.Fatalf("listener saw %v selections, want %v", len(l.keys), len(want))
	}
	for i := range want {
		if l.keys[i] != want[i] {
			t.Errorf("selection[%d] = %q, want %q", i, l.keys[i], want[i])
		}
	}

	if _, ok := b.CurrentKey(); ok {
		t.Errorf("CurrentKey() reports a key after EndInput, want none")
	}
}

func TestBatchBackend_ListenerErrorAbortsKeyChange(t *testing.T) {
	b := NewBatchBackend[string]()
	boom := stderrors.New("boom")
	b.RegisterKeySelectionListener(&recordingListener{err: boom})

	err := b.SetCurrentKey(context.Background(), "A")
	if !stderrors.Is(err, boom) {
		t.Fatalf("SetCurrentKey = %v, want %v in chain", err, boom)
	}
	if _, ok := b.CurrentKey(); ok {
		t.Errorf("key cursor advanced despite listener failure")
	}
}

func TestBatchBackend_StateDroppedOnKeyChange(t *testing.T) {
	b := NewBatchBackend[string]()
	ctx := context.Background()
	if err := b.SetCurrentKey(ctx, "A"); err != nil {
		t.Fatalf("SetCurrentKey(A) = %v, want nil", err)
	}
	b.PutState("count", []byte{1})
	if _, ok := b.GetState("count"); !ok {
		t.Fatalf("GetState after Put found nothing")
	}

	if err := b.SetCurrentKey(ctx, "B"); err != nil {
		t.Fatalf("SetCurrentKey(B) = %v, want nil", err)
	}
	if _, ok := b.GetState("count"); ok {
		t.Errorf("state of a finished key survived the key change")
	}
}

func TestAsyncAdaptor_Capabilities(t *testing.T) {
	a := NewAsyncAdaptor(NewBatchBackend[string]())
	caps := a.Capabilities()
	if !caps.BatchExecution {
		t.Errorf("caps.BatchExecution = false, want true")
	}
	if !caps.AsyncState {
		t.Errorf("caps.AsyncState = false, want true")
	}
	if a.Unwrap() == nil {
		t.Errorf("Unwrap() = nil, want the wrapped backend")
	}
}

func TestAsyncAdaptor_KeyChangeWaitsForKeyedWork(t *testing.T) {
	a := NewAsyncAdaptor(NewBatchBackend[string]())
	ctx := context.Background()
	if err := a.SetCurrentKey(ctx, "A"); err != nil {
		t.Fatalf("SetCurrentKey(A) = %v, want nil", err)
	}

	done := false
	a.Executor().Submit("A", func() error {
		done = true
		return nil
	})

	if err := a.SetCurrentKey(ctx, "B"); err != nil {
		t.Fatalf("SetCurrentKey(B) = %v, want nil", err)
	}
	if !done {
		t.Errorf("key cursor advanced before the outgoing key's work settled")
	}
}

func TestAsyncAdaptor_KeyChangeSurfacesKeyedWorkFailure(t *testing.T) {
	a := NewAsyncAdaptor(NewBatchBackend[string]())
	ctx := context.Background()
	if err := a.SetCurrentKey(ctx, "A"); err != nil {
		t.Fatalf("SetCurrentKey(A) = %v, want nil", err)
	}

	boom := stderrors.New("boom")
	a.Executor().Submit("A", func() error { return boom })

	err := a.SetCurrentKey(ctx, "B")
	if !stderrors.Is(err, boom) {
		t.Errorf("SetCurrentKey(B) = %v, want %v in chain", err, boom)
	}
}
