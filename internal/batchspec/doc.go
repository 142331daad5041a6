// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package batchspec defines the batch input document and validates it.
// The input is a single JSON object read from stdin:
//
//	{
//	  "jobs": [{"dir": "svc-a", "task": "fix the failing tests"}],
//	  "max_parallel": 2
//	}
//
// Validation is a pure transformation with no side effects: either the whole
// batch is accepted or the first violation rejects it before any job runs.
package batchspec
