// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
)

// Watch monitors the signal channel and handles signals.
// It will cancel the context on the second signal of a given type received.
func Watch(ctx context.Context, sigCh chan os.Signal, cancel context.CancelFunc) {
	sigMap := make(map[os.Signal]struct{})
	for sig := range sigCh {
		if _, ok := sigMap[sig]; ok {
			ctxlog.Logger(ctx).Info("watchdog",
				"detail", "received second signal of type, cancelling run",
				"signal", sig.String())
			close(sigCh)
			cancel()

			return
		}

		ctxlog.Logger(ctx).Info("watchdog",
			"detail", "received first signal of type, letting jobs finish",
			"signal", sig.String())

		sigMap[sig] = struct{}{}
	}
}
