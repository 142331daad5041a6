// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"context"
	"fmt"
	"os"

	"github.com/TylerBrock/colorjson"
	"github.com/matt-FFFFFF/codexswarm/internal/batchspec"
	"github.com/matt-FFFFFF/codexswarm/internal/codexhome"
	"github.com/matt-FFFFFF/codexswarm/internal/config"
	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
	"github.com/matt-FFFFFF/codexswarm/internal/progress"
	"github.com/urfave/cli/v3"
)

const (
	configFlag = "config"
	modelFlag  = "model"

	jsonIndent = 2
)

// ErrReadConfigFile is returned when the config file cannot be read.
var ErrReadConfigFile = fmt.Errorf("failed to read config file")

// ShowCmd prints the effective configuration and an example job list.
var ShowCmd = &cli.Command{
	Name: "show",
	Description: `Show the effective configuration: the codex command line that would be run
for each job, the model, and the codex home isolation settings. Useful for
checking what a config file and the environment resolve to before piping in
a real job list.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:      configFlag,
			Aliases:   []string{"c"},
			Usage:     "Path to a YAML file overriding the codex command template.",
			TakesFile: true,
			Value:     "",
			OnlyOnce:  true,
		},
		&cli.StringFlag{
			Name:     modelFlag,
			Aliases:  []string{"m"},
			Usage:    "Model passed to codex via --model.",
			Value:    "",
			OnlyOnce: true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running show command")

	cfg := config.Default()

	if path := cmd.String(configFlag); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path supplied by the operator.
		if err != nil {
			return cli.Exit(fmt.Errorf("%w: %w", ErrReadConfigFile, err).Error(), 1)
		}

		cfg, err = config.BuildFromYAML(data)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	if model := cmd.String(modelFlag); model != "" {
		cfg.Model = model
	}

	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	out, err := render(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Fprintln(cmd.Writer, out)

	return nil
}

// render builds the JSON document describing the effective configuration.
func render(cfg *config.Config) (string, error) {
	argv := append([]string{cfg.Executable()}, cfg.CommandArgs("<task>")...)

	// Same precedence as the run command: environment over config file.
	isolating := codexhome.ResolveIsolation(cfg.CodexHomePassthrough)
	envVar := codexhome.ResolveEnvVarName(cfg.CodexHomeEnv)

	doc := map[string]any{
		"model":        cfg.Model,
		"command":      progress.QuoteCommand(argv),
		"isolation":    isolating,
		"isolationEnv": envVar,
		"defaults": map[string]any{
			"max_parallel": float64(batchspec.DefaultMaxParallel),
		},
		"exampleInput": map[string]any{
			"jobs": []any{
				map[string]any{"dir": "svc-a", "task": "fix the tests"},
			},
			"max_parallel": float64(batchspec.DefaultMaxParallel),
		},
	}

	f := colorjson.NewFormatter()
	f.Indent = jsonIndent

	b, err := f.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render configuration: %w", err)
	}

	return string(b), nil
}
