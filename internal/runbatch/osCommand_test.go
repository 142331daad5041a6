// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
	"github.com/matt-FFFFFF/codexswarm/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	events []progress.Event
}

func (r *recordingReporter) Report(e progress.Event) {
	r.events = append(r.events, e)
}

func newSigCh() chan os.Signal {
	return make(chan os.Signal, 1)
}

func TestCommandRun_Success(t *testing.T) {
	cmd := &OSCommand{
		Path:  "/bin/echo",
		Args:  []string{"hello"},
		Env:   map[string]string{"FOO": "BAR"},
		Label: "echo test",
		Index: 1,
		Total: 1,
		sigCh: newSigCh(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	assert.Equal(t, 0, res.ExitCode, "expected exit code 0")
	require.NoError(t, res.Error, "unexpected error")
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Contains(t, string(res.StdOut), "hello", "expected stdout to contain 'hello'")
	assert.False(t, res.StartedAt.IsZero())
	assert.False(t, res.FinishedAt.IsZero())
}

func TestCommandRun_Failure(t *testing.T) {
	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "exit 1"},
		Label: "fail test",
		sigCh: newSigCh(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	assert.Equal(t, 1, res.ExitCode, "expected 1 exit code")
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestCommandRun_NotFound(t *testing.T) {
	cmd := &OSCommand{
		Path:  "definitely-not-a-real-command-1b2c3",
		Label: "notfound test",
		sigCh: newSigCh(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrExecutableNotFound)
	assert.Equal(t, -1, res.ExitCode)
	assert.Equal(t, ResultStatusError, res.Status)
}

func TestCommandRun_EnvAndCwd(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping cwd/env test on windows")
	}

	tempDir := t.TempDir()
	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "echo $FOO; pwd"},
		Env:   map[string]string{"FOO": "BAR"},
		Cwd:   tempDir,
		Label: "env and cwd test",
		sigCh: newSigCh(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	require.NoError(t, res.Error)
	assert.Contains(t, string(res.StdOut), "BAR")
	assert.Contains(t, string(res.StdOut), tempDir)
}

func TestCommandRun_TaskIsSingleArgument(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping argv test on windows")
	}

	// If the task were concatenated into a shell string, the embedded
	// metacharacters would change the output.
	task := `hello; echo injected`
	cmd := &OSCommand{
		Path:  "/bin/echo",
		Args:  []string{task},
		Label: "argv test",
		sigCh: newSigCh(),
	}
	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	res := cmd.Run(ctx)
	require.NoError(t, res.Error)
	assert.Equal(t, task+"\n", string(res.StdOut))
}

func TestCommandRun_ReportsLifecycle(t *testing.T) {
	rep := &recordingReporter{}
	cmd := &OSCommand{
		Path:     "/bin/echo",
		Args:     []string{"hi"},
		Label:    "report test",
		Index:    2,
		Total:    3,
		Reporter: rep,
		sigCh:    newSigCh(),
	}
	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	res := cmd.Run(ctx)
	require.NoError(t, res.Error)

	require.Len(t, rep.events, 2)
	assert.Equal(t, progress.EventJobStarted, rep.events[0].Type)
	assert.Equal(t, 2, rep.events[0].Job)
	assert.Equal(t, 3, rep.events[0].Total)
	assert.Equal(t, progress.EventJobFinished, rep.events[1].Type)
	assert.Equal(t, 0, rep.events[1].ExitCode)
}

func TestCommandRun_ReportsLaunchFailure(t *testing.T) {
	rep := &recordingReporter{}
	cmd := &OSCommand{
		Path:     "definitely-not-a-real-command-1b2c3",
		Label:    "report failure test",
		Index:    1,
		Total:    1,
		Reporter: rep,
		sigCh:    newSigCh(),
	}
	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	res := cmd.Run(ctx)
	require.Error(t, res.Error)

	require.Len(t, rep.events, 2)
	assert.Equal(t, progress.EventJobStarted, rep.events[0].Type)
	assert.Equal(t, progress.EventJobFinished, rep.events[1].Type)
	assert.Equal(t, -1, rep.events[1].ExitCode)
}

func TestCommandRun_ContextCancellationKillsProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping kill test on windows")
	}

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "sleep 10"},
		Label: "cancel test",
		sigCh: newSigCh(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	start := time.Now()
	res := cmd.Run(ctx)

	assert.Less(t, time.Since(start), 5*time.Second, "process should be killed promptly")
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrRunCancelled)
	assert.Equal(t, -1, res.ExitCode)
}

func TestCommandRun_LargeOutputDoesNotBlock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping pipe test on windows")
	}

	// Write several times the OS pipe buffer size. The child must be able
	// to finish while the parent is waiting on it.
	const outputSize = 256 * 1024

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "head -c 262144 /dev/zero"},
		Label: "large output test",
		sigCh: newSigCh(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	require.NoError(t, res.Error)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, ResultStatusSuccess, res.Status)
	assert.Len(t, res.StdOut, outputSize)
}

func TestCommandRun_LargeStdErrDoesNotBlock(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping pipe test on windows")
	}

	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "head -c 262144 /dev/zero >&2"},
		Label: "large stderr test",
		sigCh: newSigCh(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	require.NoError(t, res.Error)
	assert.Len(t, res.StdErr, 256*1024)
}

func TestCommandRun_OutputOverflowTruncated(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping pipe test on windows")
	}

	// One byte over the cap. The excess is discarded so the child still
	// exits, and the truncation is surfaced as an error.
	cmd := &OSCommand{
		Path:  "/bin/sh",
		Args:  []string{"-c", "head -c 8388609 /dev/zero"},
		Label: "overflow test",
		sigCh: newSigCh(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	res := cmd.Run(ctx)
	require.Error(t, res.Error)
	assert.ErrorIs(t, res.Error, ErrBufferOverflow)
	assert.Equal(t, -1, res.ExitCode)
	assert.Len(t, res.StdOut, maxBufferSize)
}

func TestCommandRun_SignalNearExitDoesNotPanic(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping signal test on windows")
	}

	// A signal arriving as the process exits races the watchdog's verdict
	// against the main path's teardown. Whatever the interleaving, Run must
	// return a result rather than panic.
	for range 25 {
		sigCh := newSigCh()
		sigCh <- os.Interrupt

		cmd := &OSCommand{
			Path:  "/bin/sh",
			Args:  []string{"-c", "exit 0"},
			Label: "signal race test",
			sigCh: sigCh,
		}

		ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

		res := cmd.Run(ctx)
		require.NotNil(t, res)

		if res.Error != nil {
			assert.ErrorIs(t, res.Error, ErrSignalReceived)
		}
	}
}

func TestCommandRun_InheritStreams(t *testing.T) {
	cmd := &OSCommand{
		Path:           "/bin/sh",
		Args:           []string{"-c", "exit 7"},
		Label:          "inherit test",
		InheritStreams: true,
		sigCh:          newSigCh(),
	}
	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)

	res := cmd.Run(ctx)
	assert.Equal(t, 7, res.ExitCode)
	assert.Empty(t, res.StdOut, "no capture when inheriting streams")
	assert.Empty(t, res.StdErr)
}
