// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"sync"

	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
)

var _ Runnable = (*PooledBatch)(nil)

// PooledBatch runs a collection of commands with a fixed concurrency
// ceiling. Admission order follows the input order among waiting commands;
// completion order is unconstrained. The returned Results are in input
// order regardless.
type PooledBatch struct {
	Label       string
	MaxParallel int // Concurrency ceiling; clamped to [1, len(Commands)]
	Commands    []Runnable
}

// GetLabel returns the label of the batch.
func (b *PooledBatch) GetLabel() string {
	if b.Label == "" {
		return "Batch"
	}

	return b.Label
}

// Run implements the Runnable interface for PooledBatch, returning a single
// summary result. Callers needing per-command results use RunAll.
func (b *PooledBatch) Run(ctx context.Context) *Result {
	results := b.RunAll(ctx)

	res := &Result{
		Label:  b.GetLabel(),
		Status: ResultStatusSuccess,
	}
	if results.HasError() {
		res.ExitCode = 1
		res.Error = ErrJobsFailed
		res.Status = ResultStatusError
	}

	return res
}

// RunAll executes every command exactly once, never exceeding MaxParallel
// concurrently running commands, and returns the complete ordered results
// once all commands have finished.
func (b *PooledBatch) RunAll(ctx context.Context) Results {
	logger := ctxlog.Logger(ctx).
		With("label", b.GetLabel()).
		With("runnableType", "PooledBatch")

	n := len(b.Commands)
	results := make(Results, n)

	workers := b.MaxParallel
	if workers < 1 {
		workers = 1
	}

	if workers > n {
		workers = n
	}

	logger.Debug("dispatching", "jobs", n, "workers", workers)

	// Workers pull indexes from an unbuffered channel: sends happen in
	// input order, so admission order is preserved while each worker owns
	// exactly one slot of the concurrency ceiling.
	indexes := make(chan int)
	wg := &sync.WaitGroup{}

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indexes {
				results[i] = b.Commands[i].Run(ctx)
			}
		}()
	}

feed:
	for i := range b.Commands {
		select {
		case indexes <- i:
		case <-ctx.Done():
			logger.Info("run cancelled, not admitting remaining jobs", "remaining", n-i)
			break feed
		}
	}

	close(indexes)
	wg.Wait()

	// Jobs never admitted get a skipped result so the caller still sees one
	// outcome per input job.
	for i, r := range results {
		if r == nil {
			results[i] = &Result{
				Label:    b.Commands[i].GetLabel(),
				Index:    i + 1,
				ExitCode: -1,
				Error:    ErrRunCancelled,
				Status:   ResultStatusSkipped,
			}
		}
	}

	return results
}
