// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runbatch executes validated jobs as subprocesses with a fixed
// concurrency ceiling. Each job runs exactly once in its own resolved
// directory; a job's failure never interrupts its siblings. Results are
// collected in input order and aggregated into a single exit status.
package runbatch
