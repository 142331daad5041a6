// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
	"github.com/matt-FFFFFF/codexswarm/internal/progress"
	"github.com/matt-FFFFFF/codexswarm/internal/signalbroker"
)

const (
	maxBufferSize  = 8 * 1024 * 1024  // 8MB
	tickerInterval = 10 * time.Second // Interval for the process watchdog ticker
)

var _ Runnable = (*OSCommand)(nil)

var (
	// ErrBufferOverflow is returned when the output exceeds the max size.
	ErrBufferOverflow = fmt.Errorf("output exceeds max size of %d bytes", maxBufferSize)
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrExecutableNotFound is returned when the executable is not on the PATH.
	ErrExecutableNotFound = errors.New("executable not found")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrRunCancelled is returned when the run is cancelled before the command finishes.
	ErrRunCancelled = errors.New("run cancelled")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrSignalReceived is returned when an operating system signal terminates the child process.
	ErrSignalReceived = errors.New("signal received")
)

// OSCommand runs one job as a subprocess. The working directory is the job's
// resolved absolute path and the task travels as a single argv element.
type OSCommand struct {
	Label          string            // Label for reporting, e.g. the job's directory
	Path           string            // The executable: a full path or a name to resolve on PATH
	Args           []string          // Arguments to the command, not including the executable itself
	Cwd            string            // The working directory for the command
	Env            map[string]string // Additional environment variables for this job only
	Index          int               // 1-based position in the batch
	Total          int               // Total number of jobs in the batch
	InheritStreams bool              // Pass the parent's stdout/stderr through instead of capturing
	Reporter       progress.Reporter // Receives job started/finished records; may be nil
	sigCh          chan os.Signal    // Channel to receive signals, allows mocking in test
}

// GetLabel implements the Runnable interface for OSCommand.
func (c *OSCommand) GetLabel() string {
	if c.Label == "" {
		return fmt.Sprintf("job %d/%d", c.Index, c.Total)
	}

	return c.Label
}

// Run implements the Runnable interface for OSCommand.
func (c *OSCommand) Run(ctx context.Context) *Result {
	logger := ctxlog.Logger(ctx).
		With("runnableType", "OSCommand").
		With("label", c.GetLabel())

	logger.Debug("command info", "path", c.Path, "cwd", c.Cwd, "args", c.Args)

	if c.sigCh == nil {
		c.sigCh = signalbroker.New(ctx)
	}

	res := &Result{
		Label: c.GetLabel(),
		Index: c.Index,
		Cwd:   c.Cwd,
		Args:  slices.Concat([]string{c.Path}, c.Args),
	}

	c.report(progress.Event{
		Type:      progress.EventJobStarted,
		Timestamp: time.Now(),
		Job:       c.Index,
		Total:     c.Total,
		Dir:       c.Cwd,
		Args:      res.Args,
	})

	execPath, err := exec.LookPath(c.Path)
	if err != nil {
		// Launch failures are local to this job; siblings keep running.
		return c.failBeforeStart(res, errors.Join(ErrExecutableNotFound, err))
	}

	argv := slices.Concat([]string{filepath.Base(execPath)}, c.Args)
	res.Args = slices.Concat([]string{execPath}, c.Args)

	env := os.Environ()
	for k, v := range c.Env {
		logger.Debug("adding environment variable", "key", k, "value", v)
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	stdout, stderr := os.Stdout, os.Stderr

	var rOut, wOut, rErr, wErr *os.File

	if !c.InheritStreams {
		if rOut, wOut, err = os.Pipe(); err != nil {
			return c.failBeforeStart(res, errors.Join(ErrFailedToCreatePipe, err))
		}

		if rErr, wErr, err = os.Pipe(); err != nil {
			return c.failBeforeStart(res, errors.Join(ErrFailedToCreatePipe, err))
		}

		stdout, stderr = wOut, wErr
	}

	logger.Debug("starting process")

	ps, err := os.StartProcess(execPath, argv, &os.ProcAttr{
		Dir:   c.Cwd,
		Env:   env,
		Files: []*os.File{os.Stdin, stdout, stderr},
	})

	res.StartedAt = time.Now()

	if err != nil {
		return c.failBeforeStart(res, errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("process started", "pid", ps.Pid)

	var outCh, errCh <-chan capturedOutput

	if !c.InheritStreams {
		// The child owns its copies of the write ends; close the parent's so
		// the readers see EOF when the child exits.
		_ = wOut.Close()
		_ = wErr.Close()

		// Drain concurrently with Wait. A child that fills the pipe buffer
		// must never block writing while the parent blocks waiting on it.
		outCh = drainPipe(ctx, rOut)
		errCh = drainPipe(ctx, rErr)
	}

	// The watchdog kills the process when the run is cancelled and passes
	// received signals through to it. The verdict channel is buffered and
	// never closed: the watchdog may be committed to a send when the process
	// exits on its own, and a send on a closed channel would panic.
	done := make(chan struct{})
	wasKilled := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				diff := time.Since(res.StartedAt).Round(time.Second)
				logger.Info("job running", "elapsed", diff.String())

			case s := <-c.sigCh:
				logger.Info("received signal, passing to process", "signal", s.String())

				if err := ps.Signal(s); err != nil {
					logger.Info("failed to send signal", "signal", s.String(), "error", err)
				}

				select {
				case wasKilled <- ErrSignalReceived:
				case <-done:
				}

			case <-ctx.Done():
				logger.Info("run cancelled, killing process")
				killPs(ctx, ps)

				select {
				case wasKilled <- ErrRunCancelled:
				case <-done:
				}

				return

			case <-done:
				return
			}
		}
	}()

	logger.Debug("waiting for process to finish")

	state, psErr := ps.Wait()

	res.FinishedAt = time.Now()

	res.ExitCode = state.ExitCode()
	res.Error = psErr

	logger.Debug("process finished", "exitCode", res.ExitCode)

	select {
	case e := <-wasKilled:
		res.Error = errors.Join(res.Error, e)
		res.ExitCode = -1
	default:
		if ctx.Err() != nil {
			// The watchdog is committed to sending its verdict; wait for it
			// so a cancellation is never misreported as a plain exit.
			e := <-wasKilled
			res.Error = errors.Join(res.Error, e)
			res.ExitCode = -1
		}
	}

	close(done)

	switch {
	case res.ExitCode == 0 && res.Error == nil:
		res.Status = ResultStatusSuccess
	default:
		res.Status = ResultStatusError
	}

	if !c.InheritStreams {
		mergeOutput(res, <-outCh, <-errCh)
	}

	c.report(progress.Event{
		Type:      progress.EventJobFinished,
		Timestamp: res.FinishedAt,
		Job:       c.Index,
		Total:     c.Total,
		Dir:       c.Cwd,
		Args:      res.Args,
		ExitCode:  res.ExitCode,
	})

	return res
}

// failBeforeStart records a launch failure. Environment errors are per-job
// outcomes equivalent to a non-zero exit; the batch keeps running.
func (c *OSCommand) failBeforeStart(res *Result, err error) *Result {
	res.Error = err
	res.ExitCode = -1
	res.Status = ResultStatusError
	res.FinishedAt = time.Now()

	c.report(progress.Event{
		Type:      progress.EventJobFinished,
		Timestamp: res.FinishedAt,
		Job:       c.Index,
		Total:     c.Total,
		Dir:       c.Cwd,
		Args:      res.Args,
		ExitCode:  res.ExitCode,
	})

	return res
}

func (c *OSCommand) report(event progress.Event) {
	if c.Reporter == nil {
		return
	}

	c.Reporter.Report(event)
}

// capturedOutput is the outcome of draining one pipe.
type capturedOutput struct {
	data []byte
	err  error
}

// drainPipe reads the pipe to EOF in the background. Output beyond
// maxBufferSize is consumed and discarded so the writer is never left
// blocked, and the truncation is reported as ErrBufferOverflow.
func drainPipe(ctx context.Context, r *os.File) <-chan capturedOutput {
	ch := make(chan capturedOutput, 1)

	go func() {
		data, err := readAllUpToMax(ctx, r, maxBufferSize)
		if errors.Is(err, ErrBufferOverflow) {
			_, _ = io.Copy(io.Discard, r)
		}

		_ = r.Close()

		ch <- capturedOutput{data: data, err: err}
	}()

	return ch
}

func mergeOutput(res *Result, stdout, stderr capturedOutput) {
	res.StdOut = stdout.data
	res.StdErr = stderr.data

	for _, err := range []error{stdout.err, stderr.err} {
		if err != nil {
			res.Error = errors.Join(res.Error, err)
			res.ExitCode = -1
			res.Status = ResultStatusError
		}
	}
}

func readAllUpToMax(ctx context.Context, r io.Reader, maxBufferSize int64) ([]byte, error) {
	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBufferSize+1)
	if err != nil && err != io.EOF {
		return nil, errors.Join(ErrFailedToReadBuffer, err)
	}

	if n > maxBufferSize {
		ctxlog.Logger(ctx).Debug(
			"buffer overflow in readAllUpToMax",
			"bytesRead", n,
			"maxBytes", maxBufferSize,
		)

		return buf.Bytes()[:maxBufferSize], ErrBufferOverflow
	}

	return buf.Bytes(), nil
}

// killPs kills the process and logs the outcome.
func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Logger(ctx).Debug("process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Logger(ctx).Error("process kill error", "pid", ps.Pid, "error", err)
	}

	ctxlog.Logger(ctx).Info("process killed", "pid", ps.Pid)
}
