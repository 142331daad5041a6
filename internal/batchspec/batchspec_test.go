// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package batchspec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchValid(t *testing.T) {
	in := `{"jobs":[{"dir":"a","task":"x"},{"dir":"b","task":"y"}],"max_parallel":2}`

	req, err := ParseBatch(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, req.Jobs, 2)
	assert.Equal(t, "a", req.Jobs[0].Dir)
	assert.Equal(t, "y", req.Jobs[1].Task)
	assert.Equal(t, 2, req.EffectiveParallelism())
}

func TestParseBatchTrimsDir(t *testing.T) {
	in := `{"jobs":[{"dir":"  sub  ","task":"x"}]}`

	req, err := ParseBatch(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, "sub", req.Jobs[0].Dir)
}

func TestParseBatchRejections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{
			name:  "missing_jobs",
			input: `{}`,
			field: "jobs",
		},
		{
			name:  "empty_jobs",
			input: `{"jobs":[]}`,
			field: "jobs",
		},
		{
			name:  "missing_task",
			input: `{"jobs":[{"dir":"a","task":"x"},{"dir":"b"}]}`,
			field: "jobs[1].task",
		},
		{
			name:  "blank_task",
			input: `{"jobs":[{"dir":"a","task":"   "}]}`,
			field: "jobs[0].task",
		},
		{
			name:  "missing_dir",
			input: `{"jobs":[{"task":"x"}]}`,
			field: "jobs[0].dir",
		},
		{
			name:  "blank_dir",
			input: `{"jobs":[{"dir":"  ","task":"x"}]}`,
			field: "jobs[0].dir",
		},
		{
			name:  "zero_max_parallel",
			input: `{"jobs":[{"dir":"a","task":"x"}],"max_parallel":0}`,
			field: "max_parallel",
		},
		{
			name:  "negative_max_parallel",
			input: `{"jobs":[{"dir":"a","task":"x"}],"max_parallel":-3}`,
			field: "max_parallel",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBatch(strings.NewReader(tc.input))
			require.Error(t, err)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError

			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestParseBatchDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not_json", input: `hello`},
		{name: "wrong_type_max_parallel", input: `{"jobs":[{"dir":"a","task":"x"}],"max_parallel":"two"}`},
		{name: "wrong_type_jobs", input: `{"jobs":"nope"}`},
		{name: "trailing_garbage", input: `{"jobs":[{"dir":"a","task":"x"}]} {"jobs":[]}`},
		{name: "empty_input", input: ``},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBatch(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestEffectiveParallelismDefaults(t *testing.T) {
	tests := []struct {
		jobs     int
		expected int
	}{
		{jobs: 1, expected: 1},
		{jobs: 3, expected: 3},
		{jobs: 4, expected: 4},
		{jobs: 10, expected: 4},
	}

	for _, tc := range tests {
		req := &BatchRequest{Jobs: make([]JobSpec, tc.jobs)}
		assert.Equal(t, tc.expected, req.EffectiveParallelism(), "jobs=%d", tc.jobs)
	}
}

func TestEffectiveParallelismExplicit(t *testing.T) {
	mp := 7
	req := &BatchRequest{Jobs: make([]JobSpec, 2), MaxParallel: &mp}
	assert.Equal(t, 7, req.EffectiveParallelism())
}
