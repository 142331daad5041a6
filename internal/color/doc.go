// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color provides ANSI color codes for terminal text formatting.
// Color output honors the NO_COLOR and FORCE_COLOR environment variables.
package color
