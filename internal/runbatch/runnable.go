// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
)

// Runnable is a unit of work the dispatcher can execute. Each Runnable is
// consumed exactly once; implementations own their result until Run returns.
type Runnable interface {
	// Run executes the unit of work and returns its result. It blocks until
	// the underlying process has terminated.
	Run(ctx context.Context) *Result
	// GetLabel returns the label of the unit, for reporting.
	GetLabel() string
}
