// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"fmt"
	"os"

	"github.com/matt-FFFFFF/codexswarm"
	"github.com/matt-FFFFFF/codexswarm/cmd/run"
	"github.com/matt-FFFFFF/codexswarm/cmd/show"
	"github.com/urfave/cli/v3"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "codexswarm",
	Description: `Codexswarm fans the codex CLI out across subdirectories of the current
working directory. It reads a JSON job list from stdin, validates that every
target directory is a real subdirectory of the invoking directory, then runs
each job as an independent codex subprocess under a fixed concurrency ceiling.`,
	Usage:     `echo '{"jobs":[{"dir":"svc-a","task":"fix the tests"}]}' | codexswarm run`,
	Version:   fmt.Sprintf("%s (commit: %s)", codexswarm.Version, codexswarm.Commit),
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}
