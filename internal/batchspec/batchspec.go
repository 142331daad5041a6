// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batchspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxParallel is the concurrency ceiling applied when max_parallel is
// absent from the input. The effective value is min(DefaultMaxParallel, jobs).
const DefaultMaxParallel = 4

var (
	// ErrValidation is the sentinel for all input validation failures.
	ErrValidation = errors.New("invalid batch input")
	// ErrDecode is returned when the input is not a single well-formed JSON document.
	ErrDecode = errors.New("invalid JSON on stdin")
)

// ValidationError describes a single offending field in the batch input.
type ValidationError struct {
	Field  string // JSON path of the offending field, e.g. "jobs[2].task"
	Value  any    // The offending value as decoded
	Reason string // Why the value was rejected
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s (got %v)", e.Field, e.Reason, e.Value)
}

// Unwrap makes ValidationError match ErrValidation with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// JobSpec is one request to run the external command once, in one target
// directory, with one task description. Dir is relative to the boundary
// working directory; containment is enforced by the pathguard package.
type JobSpec struct {
	Dir  string `json:"dir"`
	Task string `json:"task"`
}

// BatchRequest is the full input payload: an ordered, non-empty job list and
// an optional concurrency ceiling. It is immutable after Validate succeeds.
type BatchRequest struct {
	Jobs        []JobSpec `json:"jobs"`
	MaxParallel *int      `json:"max_parallel,omitempty"`
}

// EffectiveParallelism returns the concurrency ceiling for this batch:
// max_parallel when present, otherwise min(DefaultMaxParallel, len(jobs)).
func (b *BatchRequest) EffectiveParallelism() int {
	if b.MaxParallel != nil {
		return *b.MaxParallel
	}

	return min(DefaultMaxParallel, len(b.Jobs))
}

// ParseBatch decodes exactly one JSON document from r and validates it.
// Validation is all-or-nothing: the first violation rejects the whole batch
// and no partial result is returned.
func ParseBatch(r io.Reader) (*BatchRequest, error) {
	dec := json.NewDecoder(r)

	req := &BatchRequest{}
	if err := dec.Decode(req); err != nil {
		return nil, errors.Join(ErrDecode, err)
	}

	// A second document (or trailing garbage) is not acceptable input.
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrDecode)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks the batch shape and per-field constraints.
func (b *BatchRequest) Validate() error {
	if len(b.Jobs) == 0 {
		return &ValidationError{Field: "jobs", Value: b.Jobs, Reason: "must be a non-empty array"}
	}

	if b.MaxParallel != nil && *b.MaxParallel < 1 {
		return &ValidationError{Field: "max_parallel", Value: *b.MaxParallel, Reason: "must be a positive integer"}
	}

	for i := range b.Jobs {
		job := &b.Jobs[i]

		dir := strings.TrimSpace(job.Dir)
		if dir == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("jobs[%d].dir", i),
				Value:  job.Dir,
				Reason: "must be a non-empty string",
			}
		}

		if strings.TrimSpace(job.Task) == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("jobs[%d].task", i),
				Value:  job.Task,
				Reason: "must be a non-empty string",
			}
		}

		// The trimmed directory is what flows onward; the task is passed to
		// the child verbatim.
		job.Dir = dir
	}

	return nil
}
