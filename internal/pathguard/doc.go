// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package pathguard enforces that every job directory is an existing strict
// subdirectory of the boundary working directory. Absolute paths, home
// relative paths, ".." traversal and symlink escapes are all rejected before
// any subprocess is launched.
package pathguard
