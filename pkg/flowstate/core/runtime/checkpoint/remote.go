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
	"sync"
	"time"

	"github.com/flowstate-io/flowstate/pkg/flowstate/log"
)

// CoordinatorGateway is the transport seam to the checkpoint coordinator.
// The wire encoding behind it is out of this package's hands; a gateway may
// be an RPC client, an in-process coordinator, or a test double.
type CoordinatorGateway interface {
	AcknowledgeCheckpoint(ctx context.Context, ack Acknowledge) error
	ReportCheckpointMetrics(ctx context.Context, report MetricsReport) error
	DeclineCheckpoint(ctx context.Context, decline Decline) error
	ReportInitializationMetrics(ctx context.Context, report InitializationReport) error
}

// Acknowledge is the payload of a successful checkpoint report.
type Acknowledge struct {
	Job        JobID
	Attempt    ExecutionAttemptID
	Checkpoint ID
	Metrics    Metrics
	State      SubtaskState
}

// MetricsReport is the payload of a metrics-only checkpoint report.
type MetricsReport struct {
	Job        JobID
	Attempt    ExecutionAttemptID
	Checkpoint ID
	Metrics    Metrics
}

// Decline is the payload of a checkpoint decline.
type Decline struct {
	Job        JobID
	Attempt    ExecutionAttemptID
	Checkpoint ID
	Reason     FailureReason
	Message    string
}

// InitializationReport is the payload of a restore-time metrics report.
type InitializationReport struct {
	Job     JobID
	Attempt ExecutionAttemptID
	Metrics InitializationMetrics
}

// RemoteResponder forwards reports to a CoordinatorGateway from a single
// sender goroutine. Callers never block: reports are buffered, and when the
// buffer is full the report is dropped and logged, matching the protocol's
// best-effort delivery. Delivery failures are logged, never retried here;
// the coordinator owns retries of the distributed checkpoint.
type RemoteResponder struct {
	gateway CoordinatorGateway
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan func(ctx context.Context) error
	done   chan struct{}
}

// RemoteResponderOptions configures a RemoteResponder.
type RemoteResponderOptions struct {
	// QueueCapacity bounds the number of buffered reports. Defaults to 64.
	QueueCapacity int
	// SendTimeout bounds each gateway call. Defaults to 10s.
	SendTimeout time.Duration
}

// NewRemoteResponder starts a responder forwarding to gateway.
func NewRemoteResponder(gateway CoordinatorGateway, opts RemoteResponderOptions) *RemoteResponder {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	r := &RemoteResponder{
		gateway: gateway,
		timeout: opts.SendTimeout,
		queue:   make(chan func(ctx context.Context) error, opts.QueueCapacity),
		done:    make(chan struct{}),
	}
	go r.sendLoop()
	return r
}

func (r *RemoteResponder) sendLoop() {
	defer close(r.done)
	for send := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := send(ctx); err != nil {
			log.Errorf(ctx, "checkpoint report delivery failed: %v", err)
		}
		cancel()
	}
}

func (r *RemoteResponder) enqueue(what string, send func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Warnf(context.Background(), "dropping %v: responder closed", what)
		return
	}
	select {
	case r.queue <- send:
	default:
		log.Warnf(context.Background(), "dropping %v: report buffer full", what)
	}
}

// AcknowledgeCheckpoint reports successful completion, best effort.
func (r *RemoteResponder) AcknowledgeCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics, state SubtaskState) {
	ack := Acknowledge{Job: job, Attempt: attempt, Checkpoint: id, Metrics: metrics, State: state}
	r.enqueue("checkpoint acknowledgment", func(ctx context.Context) error {
		return r.gateway.AcknowledgeCheckpoint(ctx, ack)
	})
}

// ReportCheckpointMetrics reports telemetry for an aborted checkpoint, best
// effort.
func (r *RemoteResponder) ReportCheckpointMetrics(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics) {
	report := MetricsReport{Job: job, Attempt: attempt, Checkpoint: id, Metrics: metrics}
	r.enqueue("checkpoint metrics report", func(ctx context.Context) error {
		return r.gateway.ReportCheckpointMetrics(ctx, report)
	})
}

// DeclineCheckpoint reports a decline, best effort.
func (r *RemoteResponder) DeclineCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, decline *DeclineError) {
	d := Decline{Job: job, Attempt: attempt, Checkpoint: id, Reason: ReasonUnknown}
	if decline != nil {
		d.Reason = decline.Reason
		d.Message = decline.Error()
	}
	r.enqueue("checkpoint decline", func(ctx context.Context) error {
		return r.gateway.DeclineCheckpoint(ctx, d)
	})
}

// ReportInitializationMetrics reports restore-time cost, best effort.
func (r *RemoteResponder) ReportInitializationMetrics(job JobID, attempt ExecutionAttemptID, metrics InitializationMetrics) {
	report := InitializationReport{Job: job, Attempt: attempt, Metrics: metrics}
	r.enqueue("initialization metrics report", func(ctx context.Context) error {
		return r.gateway.ReportInitializationMetrics(ctx, report)
	})
}

// Close stops accepting reports, delivers what is already buffered, and
// waits for the sender to finish.
func (r *RemoteResponder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	<-r.done
}
