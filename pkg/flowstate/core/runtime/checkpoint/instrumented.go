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
	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedResponder decorates a Responder with Prometheus counters, so a
// task host can watch acknowledgment and decline rates without touching the
// protocol itself.
type InstrumentedResponder struct {
	next Responder

	acks        prometheus.Counter
	metricsOnly prometheus.Counter
	declines    *prometheus.CounterVec
	initReports prometheus.Counter
	ackedBytes  prometheus.Counter
}

// NewInstrumentedResponder wraps next and registers the counters with reg.
func NewInstrumentedResponder(next Responder, reg prometheus.Registerer) *InstrumentedResponder {
	r := &InstrumentedResponder{
		next: next,
		acks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_acknowledgments_total",
			Help: "Total number of checkpoints acknowledged by this task",
		}),
		metricsOnly: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_metrics_reports_total",
			Help: "Total number of metrics-only checkpoint reports",
		}),
		declines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkpoint_declines_total",
			Help: "Total number of checkpoints declined by this task",
		}, []string{"reason"}),
		initReports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_initialization_reports_total",
			Help: "Total number of initialization metrics reports",
		}),
		ackedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "checkpoint_acknowledged_bytes_total",
			Help: "Total bytes persisted across acknowledged checkpoints",
		}),
	}
	reg.MustRegister(r.acks, r.metricsOnly, r.declines, r.initReports, r.ackedBytes)
	return r
}

// AcknowledgeCheckpoint counts the acknowledgment and forwards it.
func (r *InstrumentedResponder) AcknowledgeCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics, state SubtaskState) {
	r.acks.Inc()
	r.ackedBytes.Add(float64(metrics.BytesPersisted))
	r.next.AcknowledgeCheckpoint(job, attempt, id, metrics, state)
}

// ReportCheckpointMetrics counts the report and forwards it.
func (r *InstrumentedResponder) ReportCheckpointMetrics(job JobID, attempt ExecutionAttemptID, id ID, metrics Metrics) {
	r.metricsOnly.Inc()
	r.next.ReportCheckpointMetrics(job, attempt, id, metrics)
}

// DeclineCheckpoint counts the decline by reason and forwards it.
func (r *InstrumentedResponder) DeclineCheckpoint(job JobID, attempt ExecutionAttemptID, id ID, decline *DeclineError) {
	reason := ReasonUnknown
	if decline != nil {
		reason = decline.Reason
	}
	r.declines.WithLabelValues(reason.String()).Inc()
	r.next.DeclineCheckpoint(job, attempt, id, decline)
}

// ReportInitializationMetrics counts the report and forwards it.
func (r *InstrumentedResponder) ReportInitializationMetrics(job JobID, attempt ExecutionAttemptID, metrics InitializationMetrics) {
	r.initReports.Inc()
	r.next.ReportInitializationMetrics(job, attempt, metrics)
}
