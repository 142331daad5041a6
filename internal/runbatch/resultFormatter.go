// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/matt-FFFFFF/codexswarm/internal/color"
)

// durationPrecision is the rounding applied to displayed job durations.
const durationPrecision = 10 * time.Millisecond

// OutputOptions controls what is included in the output.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to include captured stdout in the output
	IncludeStdErr      bool // Whether to include captured stderr in the output
	ShowSuccessDetails bool // Whether to show details for successful jobs
}

// DefaultOutputOptions returns a default set of output options.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{
		IncludeStdOut:      false,
		IncludeStdErr:      true,
		ShowSuccessDetails: false,
	}
}

// WriteText renders the results to the provided writer, one job per line,
// optionally followed by indented captured output.
func (r Results) WriteText(w io.Writer, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	for _, res := range r {
		if err := writeResult(w, res, options); err != nil {
			return err
		}
	}

	return nil
}

func writeResult(w io.Writer, r *Result, options *OutputOptions) error {
	var statusStr, labelPrefix string

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelPrefix = color.ControlString(color.Bold, color.FgYellow)
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelPrefix = color.ControlString(color.Bold, color.FgRed)
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelPrefix = color.ControlString(color.Bold, color.FgGreen)
	default:
		statusStr = color.Colorize("?", color.FgWhite)
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	if _, err := fmt.Fprintf(w, "%s %s%s%s", statusStr, labelPrefix, label, color.ControlString(color.Reset)); err != nil {
		return err
	}

	if r.ExitCode != 0 {
		fmt.Fprintf(w, " (exit code: %d)", r.ExitCode) //nolint:errcheck
	}

	if !r.FinishedAt.IsZero() && !r.StartedAt.IsZero() {
		fmt.Fprintf(w, " [%s]", r.FinishedAt.Sub(r.StartedAt).Round(durationPrecision)) //nolint:errcheck
	}

	fmt.Fprintln(w) //nolint:errcheck

	if r.Error != nil {
		fmt.Fprintf(w, "  error: %s\n", r.Error) //nolint:errcheck
	}

	showDetails := r.Status != ResultStatusSuccess || options.ShowSuccessDetails

	if showDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		writeIndented(w, "stdout", r.StdOut)
	}

	if showDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		writeIndented(w, "stderr", r.StdErr)
	}

	return nil
}

func writeIndented(w io.Writer, heading string, body []byte) {
	fmt.Fprintf(w, "  %s:\n", heading) //nolint:errcheck

	for line := range strings.Lines(strings.TrimRight(string(body), "\n")) {
		fmt.Fprintf(w, "    %s", line) //nolint:errcheck

		if !strings.HasSuffix(line, "\n") {
			fmt.Fprintln(w) //nolint:errcheck
		}
	}
}
