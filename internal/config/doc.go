// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the tool configuration: the external command template,
// the model identifier and the codex home isolation settings. Configuration
// may be loaded from an optional YAML file; the batch input is never read
// from configuration.
package config
