// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress emits diagnostic records for batch and job lifecycle
// events. Records go to a side channel (stderr), one atomically written
// line per record, so concurrent jobs cannot corrupt each other's output.
package progress
