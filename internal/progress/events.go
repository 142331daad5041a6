// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// EventType represents the type of progress event.
type EventType int

const (
	// EventBatchStarted is emitted once, before the first job is admitted.
	EventBatchStarted EventType = iota
	// EventJobStarted indicates a job's subprocess has been launched.
	EventJobStarted
	// EventJobFinished indicates a job's subprocess has terminated.
	EventJobFinished
	// EventBatchFinished is emitted once, after every job has terminated.
	EventBatchFinished
	// EventCleanup is emitted when per-run state has been removed.
	EventCleanup
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventBatchStarted:
		return "batch_started"
	case EventJobStarted:
		return "job_started"
	case EventJobFinished:
		return "job_finished"
	case EventBatchFinished:
		return "batch_finished"
	case EventCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Event is one diagnostic record. Job-scoped fields are zero for batch-scoped
// events. Events are immutable once created.
type Event struct {
	Type      EventType
	Timestamp time.Time

	// Batch-scoped fields.
	Boundary    string // The boundary working directory
	Total       int    // Total number of jobs in the batch
	MaxParallel int    // Effective concurrency ceiling
	ExitStatus  int    // Aggregate exit status, for EventBatchFinished
	Detail      string // Free-form detail, for EventCleanup

	// Job-scoped fields.
	Job      int      // 1-based job index
	Dir      string   // The job's resolved absolute directory
	Args     []string // The exact command argv, including the executable
	ExitCode int      // The job's exit code, for EventJobFinished
}

// Reporter is the interface for emitting diagnostic records.
// Implementations must be safe for concurrent use: jobs complete in any
// order and report from their own goroutines.
type Reporter interface {
	// Report emits one event. Records must be written atomically; partial
	// lines from concurrent jobs must never interleave.
	Report(event Event)
}

// NullReporter is a no-op implementation of Reporter, used in tests.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (nr *NullReporter) Report(_ Event) {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return &NullReporter{}
}
