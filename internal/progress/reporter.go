// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

var _ Reporter = (*WriterReporter)(nil)

// WriterReporter writes one line per event to a single writer, serialized
// through a mutex so that concurrent jobs never interleave partial lines.
// In production the writer is stderr: stdout carries result output.
type WriterReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterReporter creates a WriterReporter emitting to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

// Report implements Reporter.Report.
func (r *WriterReporter) Report(event Event) {
	line := formatEvent(event)
	if line == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.w, line) //nolint:errcheck
}

func formatEvent(e Event) string {
	switch e.Type {
	case EventBatchStarted:
		return fmt.Sprintf("[codexswarm] cwd=%s\n[codexswarm] jobs=%d max_parallel=%d",
			e.Boundary, e.Total, e.MaxParallel)
	case EventJobStarted:
		return fmt.Sprintf("[job %d/%d] dir=%s\n[job %d/%d] cmd=%s",
			e.Job, e.Total, e.Dir, e.Job, e.Total, QuoteCommand(e.Args))
	case EventJobFinished:
		return fmt.Sprintf("[job %d/%d] exit=%d", e.Job, e.Total, e.ExitCode)
	case EventBatchFinished:
		return fmt.Sprintf("[codexswarm] done jobs=%d status=%d", e.Total, e.ExitStatus)
	case EventCleanup:
		return fmt.Sprintf("[codexswarm] cleaned up %s", e.Detail)
	default:
		return ""
	}
}

// QuoteCommand renders an argv slice for display, quoting arguments that
// contain whitespace or shell metacharacters. Display only: execution always
// uses the argv slice, never this string.
func QuoteCommand(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = quoteArg(arg)
	}

	return strings.Join(quoted, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}

	if !strings.ContainsAny(arg, " \t\n\"'\\$&|;<>()*?[]#~%!{}") {
		return arg
	}

	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}
