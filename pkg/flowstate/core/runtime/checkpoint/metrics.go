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
	"time"
)

// Metrics carries per-checkpoint telemetry for one subtask: how long the
// snapshot took and how much it wrote. Reported both on acknowledgment and,
// metrics-only, when a checkpoint was aborted after local work was already
// measured.
type Metrics struct {
	// BytesPersisted is the size of this subtask's contribution to the
	// checkpoint.
	BytesPersisted int64
	// SyncDuration covers the part of the snapshot taken on the task thread.
	SyncDuration time.Duration
	// AsyncDuration covers the part persisted off the task thread.
	AsyncDuration time.Duration
	// AlignmentDuration is the time spent waiting for barriers on all inputs.
	AlignmentDuration time.Duration
	// StartDelay is the time between the coordinator triggering the
	// checkpoint and the first barrier reaching this subtask.
	StartDelay time.Duration
	// Unaligned is set when the checkpoint was taken without barrier
	// alignment.
	Unaligned bool
}

// InitializationStatus is the terminal status of a task's state restore.
type InitializationStatus int

const (
	InitializationCompleted InitializationStatus = iota
	InitializationFailed
)

func (s InitializationStatus) String() string {
	switch s {
	case InitializationCompleted:
		return "COMPLETED"
	case InitializationFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// InitializationMetrics describes the time a task spent restoring state
// before it began processing. Reported at most once per (job, execution
// attempt), independently of any checkpoint.
type InitializationMetrics struct {
	Status InitializationStatus
	// RestoreDuration is the time spent downloading and loading state.
	RestoreDuration time.Duration
	// GateRecoveryDuration is the time spent recovering in-flight channel data.
	GateRecoveryDuration time.Duration
}

// StateHandle points at one operator's persisted snapshot in external
// storage. The storage format is owned by the state backend; the protocol
// only forwards the handle.
type StateHandle struct {
	Location string
	Size     int64
}

// SubtaskState is the snapshot handle set for one subtask, keyed by operator.
type SubtaskState struct {
	OperatorStates map[string]StateHandle
}

// Size returns the total persisted size across operators.
func (s SubtaskState) Size() int64 {
	var total int64
	for _, h := range s.OperatorStates {
		total += h.Size
	}
	return total
}
