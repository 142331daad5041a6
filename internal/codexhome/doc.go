// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package codexhome gives each job its own codex home directory so that
// concurrently running codex processes do not contend on session locks.
// Isolation is off by default (passthrough) and enabled by setting
// CODEX_HOME_PASSTHROUGH to a false value.
package codexhome
