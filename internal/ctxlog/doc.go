// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog provides a context-based logger built on log/slog.
// Diagnostics are written to stderr so that stdout remains free for result
// output and stdin for the batch payload. The log level is read from an
// environment variable derived from the executable name, e.g.
// CODEXSWARM_LOG_LEVEL for an executable named "codexswarm". Recognised
// values are DEBUG, INFO, WARN and ERROR; anything else defaults to WARN.
package ctxlog
