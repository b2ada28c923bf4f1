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
	"sync/atomic"

	"github.com/flowstate-io/flowstate/pkg/flowstate/internal/errors"
)

// Responder is the outward-facing contract from a task to its coordinator
// for reporting checkpoint outcomes. Calls are fire-and-forget: the protocol
// defines no response, retries and duplicate suppression belong to the
// coordinator, and a caller must never block indefinitely on delivery.
// Implementations may be entirely no-ops; batch execution never performs
// checkpoints.
type Responder interface {
	// AcknowledgeCheckpoint reports successful completion with the snapshot
	// handles and per-checkpoint metrics. At most once per checkpoint ID per
	// execution attempt.
	AcknowledgeCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics, state SubtaskState)

	// ReportCheckpointMetrics reports metrics without a state handle, for
	// checkpoints aborted after some local work was already measured.
	ReportCheckpointMetrics(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics)

	// DeclineCheckpoint reports that the local attempt could not produce a
	// consistent snapshot.
	DeclineCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, decline *DeclineError)

	// ReportInitializationMetrics is a one-shot report of restore-time cost,
	// decoupled from any specific checkpoint.
	ReportInitializationMetrics(job JobID, attempt ExecutionAttemptID, metrics InitializationMetrics)
}

// NoOpResponder discards every report. It is the responder for batch
// execution, which never checkpoints.
type NoOpResponder struct{}

func (NoOpResponder) AcknowledgeCheckpoint(JobID, ExecutionAttemptID, ID, Metrics, SubtaskState) {}
func (NoOpResponder) ReportCheckpointMetrics(JobID, ExecutionAttemptID, ID, Metrics)             {}
func (NoOpResponder) DeclineCheckpoint(JobID, ExecutionAttemptID, ID, *DeclineError)             {}
func (NoOpResponder) ReportInitializationMetrics(JobID, ExecutionAttemptID, InitializationMetrics) {
}

// OutcomeKind tags the variants of a local checkpoint attempt's conclusion.
type OutcomeKind int

const (
	// OutcomeAcknowledged carries a snapshot handle and metrics.
	OutcomeAcknowledged OutcomeKind = iota
	// OutcomeMetricsOnly carries telemetry for an aborted checkpoint.
	OutcomeMetricsOnly
	// OutcomeDeclined carries a structured decline reason.
	OutcomeDeclined
)

// Outcome is the conclusion of one local checkpoint attempt. It is created
// when the attempt concludes, consumed exactly once by a responder, and
// never persisted.
type Outcome struct {
	Job        JobID
	Attempt    ExecutionAttemptID
	Checkpoint ID

	kind     OutcomeKind
	metrics  Metrics
	state    SubtaskState
	decline  *DeclineError
	reported atomic.Bool
}

// Acknowledged builds the successful outcome.
func Acknowledged(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics, state SubtaskState) *Outcome {
	return &Outcome{Job: job, Attempt: attempt, Checkpoint: id, kind: OutcomeAcknowledged, metrics: metrics, state: state}
}

// MetricsOnly builds the aborted-but-measured outcome.
func MetricsOnly(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics) *Outcome {
	return &Outcome{Job: job, Attempt: attempt, Checkpoint: id, kind: OutcomeMetricsOnly, metrics: metrics}
}

// Declined builds the declined outcome.
func Declined(job JobID, attempt ExecutionAttemptID, id ID, decline *DeclineError) *Outcome {
	return &Outcome{Job: job, Attempt: attempt, Checkpoint: id, kind: OutcomeDeclined, decline: decline}
}

// Kind returns the outcome's variant tag.
func (o *Outcome) Kind() OutcomeKind {
	return o.kind
}

// Report dispatches the outcome to r. An outcome is consumed exactly once; a
// second Report fails without calling the responder.
func (o *Outcome) Report(r Responder) error {
	if !o.reported.CompareAndSwap(false, true) {
		return errors.Errorf("checkpoint %d outcome already reported", o.Checkpoint)
	}
	switch o.kind {
	case OutcomeAcknowledged:
		r.AcknowledgeCheckpoint(o.Job, o.Attempt, o.Checkpoint, o.metrics, o.state)
	case OutcomeMetricsOnly:
		r.ReportCheckpointMetrics(o.Job, o.Attempt, o.Checkpoint, o.metrics)
	case OutcomeDeclined:
		r.DeclineCheckpoint(o.Job, o.Attempt, o.Checkpoint, o.decline)
	}
	return nil
}

// InitializationReporter enforces the at-most-once contract for restore-time
// metrics of one execution attempt.
type InitializationReporter struct {
	Job       JobID
	Attempt   ExecutionAttemptID
	Responder Responder

	sent atomic.Bool
}

// Report forwards metrics to the responder the first time it is called and
// reports whether the metrics were sent.
func (r *InitializationReporter) Report(metrics InitializationMetrics) bool {
	if !r.sent.CompareAndSwap(false, true) {
		return false
	}
	r.Responder.ReportInitializationMetrics(r.Job, r.Attempt, metrics)
	return true
}
