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

// Package checkpoint contains the acknowledgment protocol by which a task
// reports the outcome of a distributed snapshot back to its coordinator, and
// the structured reasons a checkpoint could not be completed.
package checkpoint

import (
	"github.com/google/uuid"
)

// JobID identifies a running job. Together with ExecutionAttemptID and
// CheckpointID it correlates every protocol message.
type JobID string

// NewJobID returns a fresh job identifier.
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

// ExecutionAttemptID identifies one execution attempt of a task. A restarted
// task gets a new attempt ID, which is how the coordinator tells stale
// reports from live ones.
type ExecutionAttemptID string

// NewExecutionAttemptID returns a fresh execution attempt identifier.
func NewExecutionAttemptID() ExecutionAttemptID {
	return ExecutionAttemptID(uuid.NewString())
}

// ID identifies one distributed checkpoint. IDs increase monotonically over
// a job's lifetime.
type ID int64
