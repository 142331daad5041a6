// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/codexswarm/internal/batchspec"
	"github.com/matt-FFFFFF/codexswarm/internal/codexhome"
	"github.com/matt-FFFFFF/codexswarm/internal/config"
	"github.com/matt-FFFFFF/codexswarm/internal/ctxlog"
	"github.com/matt-FFFFFF/codexswarm/internal/pathguard"
	"github.com/matt-FFFFFF/codexswarm/internal/progress"
	"github.com/matt-FFFFFF/codexswarm/internal/runbatch"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	modelFlag          = "model"
	configFlag         = "config"
	noCaptureFlag      = "no-capture"
	outputStdOutFlag   = "output-stdout"
	successDetailsFlag = "output-success-details"
	cliExitStr         = ""

	validationExitCode = 2
	failureExitCode    = 1
)

var (
	// ErrNoInput is returned when stdin is a terminal and no job list can be read.
	ErrNoInput = fmt.Errorf("no JSON job list provided on stdin")
	// ErrReadConfigFile is returned when the config file cannot be read.
	ErrReadConfigFile = fmt.Errorf("failed to read config file")
)

// RunCmd reads a JSON job list from stdin and runs each job as a codex subprocess.
var RunCmd = &cli.Command{
	Name: "run",
	Description: `Run a batch of codex tasks described by a JSON document on stdin.

The input has the shape:

  {"jobs": [{"dir": "svc-a", "task": "fix the tests"}], "max_parallel": 4}

Every dir must resolve to an existing subdirectory of the current working
directory. Each job runs codex in that directory with the task passed as a
single argument. Progress records are written to stderr; the job summary is
written to stdout.

Exit status is 0 when all jobs succeed, 1 when any job fails, and 2 when the
input is rejected before any job starts.`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     modelFlag,
			Aliases:  []string{"m"},
			Usage:    "Model passed to codex via --model.",
			Value:    "",
			OnlyOnce: true,
		},
		&cli.StringFlag{
			Name:      configFlag,
			Aliases:   []string{"c"},
			Usage:     "Path to a YAML file overriding the codex command template.",
			TakesFile: true,
			Value:     "",
			OnlyOnce:  true,
		},
		&cli.BoolFlag{
			Name:        noCaptureFlag,
			Usage:       "Let jobs inherit stdout/stderr instead of capturing their output",
			Value:       false,
			DefaultText: "false",
			TakesFile:   false,
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        outputStdOutFlag,
			Aliases:     []string{"stdout"},
			Usage:       "Include captured stdout in the results",
			Value:       false,
			DefaultText: "false",
			TakesFile:   false,
			OnlyOnce:    true,
		},
		&cli.BoolFlag{
			Name:        successDetailsFlag,
			Aliases:     []string{"success"},
			Usage:       "Include successful results in the output",
			Value:       false,
			DefaultText: "false",
			TakesFile:   false,
			OnlyOnce:    true,
		},
	},
	Action: actionFunc,
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	cfg, err := loadConfig(cmd.String(configFlag), cmd.String(modelFlag))
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, validationExitCode)
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Error(ErrNoInput.Error() + ". Pipe a job list, e.g.: " +
			`echo '{"jobs":[{"dir":"svc-a","task":"fix the tests"}]}' | codexswarm run`)

		return cli.Exit(cliExitStr, validationExitCode)
	}

	batch, err := batchspec.ParseBatch(os.Stdin)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, validationExitCode)
	}

	cwd, err := os.Getwd()
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to determine working directory: %s", err.Error()))
		return cli.Exit(cliExitStr, validationExitCode)
	}

	guard, err := pathguard.New(cwd)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to resolve working directory: %s", err.Error()))
		return cli.Exit(cliExitStr, validationExitCode)
	}

	jobs, err := guard.ResolveAll(batch.Jobs)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, validationExitCode)
	}

	reporter := progress.NewWriterReporter(cmd.Root().ErrWriter)

	home, err := prepareRunHome(cfg)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, validationExitCode)
	}

	if home != nil {
		defer func() {
			if cerr := home.Cleanup(); cerr != nil {
				logger.Warn(fmt.Sprintf("Failed to clean up %s: %s", home.Base(), cerr.Error()))
				return
			}

			reporter.Report(progress.Event{
				Type:   progress.EventCleanup,
				Detail: home.Base(),
			})
		}()
	}

	commands, err := buildCommands(cfg, jobs, home, reporter, cmd.Bool(noCaptureFlag))
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, validationExitCode)
	}

	parallelism := batch.EffectiveParallelism()

	reporter.Report(progress.Event{
		Type:        progress.EventBatchStarted,
		Boundary:    guard.Boundary(),
		Total:       len(jobs),
		MaxParallel: parallelism,
	})

	pool := &runbatch.PooledBatch{
		Label:       "codexswarm",
		MaxParallel: parallelism,
		Commands:    commands,
	}

	res := pool.RunAll(ctx)

	reporter.Report(progress.Event{
		Type:       progress.EventBatchFinished,
		Total:      len(jobs),
		ExitStatus: res.ExitStatus(),
	})

	opts := runbatch.DefaultOutputOptions()
	opts.IncludeStdOut = cmd.Bool(outputStdOutFlag)
	opts.ShowSuccessDetails = cmd.Bool(successDetailsFlag)

	if err := res.WriteText(cmd.Writer, opts); err != nil {
		logger.Error(fmt.Sprintf("Failed to write results: %s", err.Error()))
	}

	if res.HasError() {
		logger.Error(res.BatchError().Error())
		return cli.Exit(cliExitStr, failureExitCode)
	}

	return nil
}

// loadConfig builds the effective command configuration from the optional
// YAML file and the --model flag, which wins over the file.
func loadConfig(path, model string) (*config.Config, error) {
	cfg := config.Default()

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // Path supplied by the operator.
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadConfigFile, err)
		}

		cfg, err = config.BuildFromYAML(data)
		if err != nil {
			return nil, err
		}
	}

	if model != "" {
		cfg.Model = model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// prepareRunHome creates the per-run isolation directory, or returns nil
// when jobs inherit the invoking environment unchanged.
func prepareRunHome(cfg *config.Config) (*codexhome.RunHome, error) {
	if !codexhome.ResolveIsolation(cfg.CodexHomePassthrough) {
		return nil, nil //nolint:nilnil // Passthrough mode has no run home.
	}

	root, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}

	return codexhome.New(root, codexhome.ResolveEnvVarName(cfg.CodexHomeEnv), afero.NewOsFs())
}

// buildCommands turns resolved jobs into runnable subprocesses.
func buildCommands(
	cfg *config.Config,
	jobs []*pathguard.ResolvedJob,
	home *codexhome.RunHome,
	reporter progress.Reporter,
	inheritStreams bool,
) ([]runbatch.Runnable, error) {
	commands := make([]runbatch.Runnable, len(jobs))

	for i, job := range jobs {
		env, err := home.JobEnv(job.Index)
		if err != nil {
			return nil, err
		}

		commands[i] = &runbatch.OSCommand{
			Label:          fmt.Sprintf("job %d/%d %s", job.Index, len(jobs), job.Spec.Dir),
			Path:           cfg.Executable(),
			Args:           cfg.CommandArgs(job.Spec.Task),
			Cwd:            job.AbsPath,
			Env:            env,
			Index:          job.Index,
			Total:          len(jobs),
			InheritStreams: inheritStreams,
			Reporter:       reporter,
		}
	}

	return commands, nil
}
