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
	"fmt"
)

// FailureReason is the structured reason a subtask could not produce a
// consistent snapshot. The coordinator uses it to decide whether to retry
// the whole distributed checkpoint or abort it.
type FailureReason int

const (
	// ReasonUnknown is the zero value; a decline should always carry a more
	// specific reason.
	ReasonUnknown FailureReason = iota
	// ReasonExpired: the checkpoint expired before this subtask completed it.
	ReasonExpired
	// ReasonTaskNotReady: the task had not finished initializing when the
	// barrier arrived.
	ReasonTaskNotReady
	// ReasonTaskClosing: the task was shutting down.
	ReasonTaskClosing
	// ReasonSnapshotFailure: taking the snapshot genuinely failed on this
	// subtask.
	ReasonSnapshotFailure
	// ReasonAsyncPersistFailure: the snapshot was taken but persisting it
	// off-thread failed.
	ReasonAsyncPersistFailure
	// ReasonUnsupported: the execution mode does not support checkpoints at
	// all, e.g. batch execution.
	ReasonUnsupported
)

func (r FailureReason) String() string {
	switch r {
	case ReasonExpired:
		return "checkpoint expired before completing"
	case ReasonTaskNotReady:
		return "task was not ready to checkpoint"
	case ReasonTaskClosing:
		return "task is closing"
	case ReasonSnapshotFailure:
		return "snapshot failed on the task"
	case ReasonAsyncPersistFailure:
		return "asynchronous persistence of the snapshot failed"
	case ReasonUnsupported:
		return "checkpoints are not supported by the execution mode"
	default:
		return "unknown checkpoint failure"
	}
}

// PreFlight reports whether the failure happened before any snapshot work
// was persisted for this subtask. Pre-flight declines carry no metrics worth
// keeping.
func (r FailureReason) PreFlight() bool {
	switch r {
	case ReasonTaskNotReady, ReasonTaskClosing, ReasonUnsupported:
		return true
	default:
		return false
	}
}

// DeclineError is the structured decline carried to the coordinator. It is a
// reported outcome, not a fault in the task's own control flow.
type DeclineError struct {
	Reason FailureReason
	Cause  error
}

// NewDeclineError builds a decline with the given reason and optional cause.
func NewDeclineError(reason FailureReason, cause error) *DeclineError {
	return &DeclineError{Reason: reason, Cause: cause}
}

func (e *DeclineError) Error() string {
	if e.Cause == nil {
		return e.Reason.String()
	}
	return fmt.Sprintf("%v: %v", e.Reason, e.Cause)
}

// Unwrap returns the underlying cause, if any.
func (e *DeclineError) Unwrap() error {
	return e.Cause
}
