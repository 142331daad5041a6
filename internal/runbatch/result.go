// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ResultStatus represents the outcome of a single job.
type ResultStatus int

const (
	// ResultStatusUnknown is the zero value, before the job has terminated.
	ResultStatusUnknown ResultStatus = iota
	// ResultStatusSuccess indicates the job exited zero.
	ResultStatusSuccess
	// ResultStatusError indicates the job exited non-zero or failed to launch.
	ResultStatusError
	// ResultStatusSkipped indicates the job was never admitted (run cancelled).
	ResultStatusSkipped
)

// String implements the Stringer interface for ResultStatus.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result represents the outcome of running one job. It is created when the
// subprocess terminates and never mutated afterwards.
type Result struct {
	Label      string       // Label of the job, e.g. "job 2/5 b"
	Index      int          // 1-based position in the batch
	Cwd        string       // The job's resolved absolute directory
	Args       []string     // The exact argv, including the executable
	ExitCode   int          // Exit code of the subprocess
	Error      error        // Launch or wait error, if any
	StdOut     []byte       // Captured stdout, when capturing
	StdErr     []byte       // Captured stderr, when capturing
	Status     ResultStatus // Final status
	StartedAt  time.Time    // When the subprocess was launched
	FinishedAt time.Time    // When the subprocess terminated
}

// Ok reports whether this job succeeded.
func (r *Result) Ok() bool {
	return r.Status == ResultStatusSuccess && r.ExitCode == 0 && r.Error == nil
}

// Results is the ordered collection of per-job outcomes. Order matches the
// input batch, not completion order.
type Results []*Result

// HasError reports whether any job failed, was skipped, or errored.
func (r Results) HasError() bool {
	for _, v := range r {
		if !v.Ok() {
			return true
		}
	}

	return false
}

// ExitStatus computes the aggregate process exit status: 0 only when every
// job succeeded, 1 otherwise. A failure is never suppressed.
func (r Results) ExitStatus() int {
	if r.HasError() {
		return 1
	}

	return 0
}

// Failed returns the subset of results that did not succeed, in input order.
func (r Results) Failed() Results {
	var failed Results

	for _, v := range r {
		if !v.Ok() {
			failed = append(failed, v)
		}
	}

	return failed
}

// ErrJobsFailed is the sentinel wrapped by BatchError.
var ErrJobsFailed = errors.New("one or more jobs failed")

// BatchError aggregates every failed job into a single error, or nil when
// the batch succeeded.
func (r Results) BatchError() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}

	var merr *multierror.Error

	merr = multierror.Append(merr, ErrJobsFailed)

	for _, f := range failed {
		if f.Error != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w (exit code: %d)", f.Label, f.Error, f.ExitCode))
			continue
		}

		merr = multierror.Append(merr, fmt.Errorf("%s: exit code %d", f.Label, f.ExitCode))
	}

	return merr.ErrorOrNil()
}
