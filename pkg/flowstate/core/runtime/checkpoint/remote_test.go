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

package checkpoint

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway records payloads and can block deliveries behind a gate.
type fakeGateway struct {
	mu       sync.Mutex
	acks     []Acknowledge
	reports  []MetricsReport
	declines []Decline
	inits    []InitializationReport

	gate chan struct{} // if non-nil, each send waits for a receive
	err  error
}

func (g *fakeGateway) wait() {
	if g.gate != nil {
		<-g.gate
	}
}

func (g *fakeGateway) AcknowledgeCheckpoint(_ context.Context, ack Acknowledge) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acks = append(g.acks, ack)
	return g.err
}

func (g *fakeGateway) ReportCheckpointMetrics(_ context.Context, report MetricsReport) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reports = append(g.reports, report)
	return g.err
}

func (g *fakeGateway) DeclineCheckpoint(_ context.Context, decline Decline) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declines = append(g.declines, decline)
	return g.err
}

func (g *fakeGateway) ReportInitializationMetrics(_ context.Context, report InitializationReport) error {
	g.wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, report)
	return g.err
}

func TestRemoteResponder_DeliversAllReportKinds(t *testing.T) {
	g := &fakeGateway{}
	r := NewRemoteResponder(g, RemoteResponderOptions{})
	job := NewJobID()
	attempt := NewExecutionAttemptID()

	r.AcknowledgeCheckpoint(job, attempt, 1, Metrics{BytesPersisted: 10}, SubtaskState{})
	r.ReportCheckpointMetrics(job, attempt, 2, Metrics{})
	r.DeclineCheckpoint(job, attempt, 3, NewDeclineError(ReasonSnapshotFailure, errors.New("disk full")))
	r.ReportInitializationMetrics(job, attempt, InitializationMetrics{Status: InitializationCompleted})
	r.Close()

	require.Len(t, g.acks, 1)
	assert.Equal(t, ID(1), g.acks[0].Checkpoint)
	assert.Equal(t, int64(10), g.acks[0].Metrics.BytesPersisted)

	require.Len(t, g.reports, 1)
	assert.Equal(t, ID(2), g.reports[0].Checkpoint)

	require.Len(t, g.declines, 1)
	assert.Equal(t, ID(3), g.declines[0].Checkpoint)
	assert.Equal(t, ReasonSnapshotFailure, g.declines[0].Reason)
	assert.Contains(t, g.declines[0].Message, "disk full")

	require.Len(t, g.inits, 1)
	assert.Equal(t, InitializationCompleted, g.inits[0].Metrics.Status)
}

func TestRemoteResponder_NilDeclineBecomesUnknown(t *testing.T) {
	g := &fakeGateway{}
	r := NewRemoteResponder(g, RemoteResponderOptions{})

	r.DeclineCheckpoint(NewJobID(), NewExecutionAttemptID(), 5, nil)
	r.Close()

	require.Len(t, g.declines, 1)
	assert.Equal(t, ReasonUnknown, g.declines[0].Reason)
}

func TestRemoteResponder_NeverBlocksWhenBufferFull(t *testing.T) {
	g := &fakeGateway{gate: make(chan struct{})}
	r := NewRemoteResponder(g, RemoteResponderOptions{QueueCapacity: 1})
	job := NewJobID()
	attempt := NewExecutionAttemptID()

	// First report occupies the sender, second fills the buffer, the rest
	// must be dropped without blocking the caller.
	for id := ID(1); id <= 10; id++ {
		r.ReportCheckpointMetrics(job, attempt, id, Metrics{})
	}
	close(g.gate)
	r.Close()

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.LessOrEqual(t, len(g.reports), 3, "overflow reports must be dropped")
	assert.NotEmpty(t, g.reports, "buffered reports must still be delivered")
}

func TestRemoteResponder_CloseDrainsBuffer(t *testing.T) {
	g := &fakeGateway{}
	r := NewRemoteResponder(g, RemoteResponderOptions{QueueCapacity: 16})
	job := NewJobID()
	attempt := NewExecutionAttemptID()

	for id := ID(1); id <= 5; id++ {
		r.AcknowledgeCheckpoint(job, attempt, id, Metrics{}, SubtaskState{})
	}
	r.Close()

	require.Len(t, g.acks, 5, "Close must deliver everything already buffered")
	for i, ack := range g.acks {
		assert.Equal(t, ID(i+1), ack.Checkpoint)
	}
}

func TestRemoteResponder_DropsAfterClose(t *testing.T) {
	g := &fakeGateway{}
	r := NewRemoteResponder(g, RemoteResponderOptions{})
	r.Close()

	assert.NotPanics(t, func() {
		r.AcknowledgeCheckpoint(NewJobID(), NewExecutionAttemptID(), 1, Metrics{}, SubtaskState{})
		r.Close()
	})
	assert.Empty(t, g.acks)
}

func TestRemoteResponder_GatewayErrorDoesNotStopSender(t *testing.T) {
	g := &fakeGateway{err: errors.New("coordinator unreachable")}
	r := NewRemoteResponder(g, RemoteResponderOptions{})
	job := NewJobID()
	attempt := NewExecutionAttemptID()

	r.ReportCheckpointMetrics(job, attempt, 1, Metrics{})
	r.ReportCheckpointMetrics(job, attempt, 2, Metrics{})
	r.Close()

	assert.Len(t, g.reports, 2, "delivery failures must not stall later reports")
}
