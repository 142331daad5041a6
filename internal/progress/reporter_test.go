// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWriterReporterBatchStarted(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewWriterReporter(buf)

	r.Report(Event{
		Type:        EventBatchStarted,
		Boundary:    "/work",
		Total:       3,
		MaxParallel: 2,
	})

	assert.Equal(t, "[codexswarm] cwd=/work\n[codexswarm] jobs=3 max_parallel=2\n", buf.String())
}

func TestWriterReporterJobLifecycle(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewWriterReporter(buf)

	r.Report(Event{
		Type:  EventJobStarted,
		Job:   2,
		Total: 5,
		Dir:   "/work/b",
		Args:  []string{"codex", "exec", "--model", "m", "fix the build"},
	})
	r.Report(Event{Type: EventJobFinished, Job: 2, Total: 5, ExitCode: 1})

	out := buf.String()
	assert.Contains(t, out, "[job 2/5] dir=/work/b")
	assert.Contains(t, out, "[job 2/5] cmd=codex exec --model m 'fix the build'")
	assert.Contains(t, out, "[job 2/5] exit=1")
}

func TestWriterReporterAtomicLines(t *testing.T) {
	defer goleak.VerifyNone(t)

	buf := &bytes.Buffer{}
	r := NewWriterReporter(buf)

	var wg sync.WaitGroup

	for i := 1; i <= 50; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			r.Report(Event{Type: EventJobFinished, Job: n, Total: 50, ExitCode: 0})
		}(i)
	}

	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)

	for _, line := range lines {
		assert.Regexp(t, `^\[job \d+/50\] exit=0$`, line)
	}
}

func TestQuoteCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "plain",
			args:     []string{"codex", "exec"},
			expected: "codex exec",
		},
		{
			name:     "spaces",
			args:     []string{"codex", "do the thing"},
			expected: "codex 'do the thing'",
		},
		{
			name:     "single_quote",
			args:     []string{"it's"},
			expected: `'it'"'"'s'`,
		},
		{
			name:     "empty_arg",
			args:     []string{""},
			expected: "''",
		},
		{
			name:     "metacharacters",
			args:     []string{"a;b"},
			expected: "'a;b'",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, QuoteCommand(tc.args))
		})
	}
}

func TestNullReporter(t *testing.T) {
	r := NewNullReporter()
	r.Report(Event{Type: EventBatchStarted}) // must not panic
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "batch_started", EventBatchStarted.String())
	assert.Equal(t, "job_started", EventJobStarted.String())
	assert.Equal(t, "job_finished", EventJobFinished.String())
	assert.Equal(t, "batch_finished", EventBatchFinished.String())
	assert.Equal(t, "cleanup", EventCleanup.String())
	assert.Equal(t, "unknown", EventType(99).String())
}
