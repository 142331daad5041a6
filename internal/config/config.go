// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultModel is the codex model used unless overridden.
	DefaultModel = "gpt-5.2-codex"
)

var (
	// ErrYamlUnmarshal is returned when the YAML configuration cannot be parsed.
	ErrYamlUnmarshal = errors.New("failed to unmarshal YAML configuration")
	// ErrInvalidConfig is returned when the configuration fails validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// defaultCommand is the argv prefix of the external tool invocation.
var defaultCommand = []string{"codex", "exec"}

// fixedFlags are always appended after the model selection. The child runs
// unattended inside a directory that need not be a git repository.
var fixedFlags = []string{"--full-auto", "--skip-git-repo-check"}

// Config is the tool configuration. It concerns how the external command is
// invoked; the batch input itself is only ever accepted as JSON on stdin.
type Config struct {
	// Model is the codex model identifier passed via --model.
	Model string `yaml:"model"`
	// Command is the argv prefix, e.g. [codex, exec]. Advanced override.
	Command []string `yaml:"command"`
	// CodexHomeEnv names the variable exported to children when isolating
	// codex home directories.
	CodexHomeEnv string `yaml:"codex_home_env"`
	// CodexHomePassthrough disables codex home isolation when true.
	CodexHomePassthrough *bool `yaml:"codex_home_passthrough"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Model:   DefaultModel,
		Command: slices.Clone(defaultCommand),
	}
}

// BuildFromYAML parses a YAML document into a Config, applying defaults for
// absent fields and validating the result.
func BuildFromYAML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Join(ErrYamlUnmarshal, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills in any unset fields with the built-in defaults.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}

	if len(c.Command) == 0 {
		c.Command = slices.Clone(defaultCommand)
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Command[0] == "" {
		return fmt.Errorf("%w: command executable is empty", ErrInvalidConfig)
	}

	for _, arg := range c.Command {
		if arg == "" {
			return fmt.Errorf("%w: command contains an empty argument", ErrInvalidConfig)
		}
	}

	return nil
}

// Executable returns the name of the external tool to invoke.
func (c *Config) Executable() string {
	return c.Command[0]
}

// CommandArgs builds the complete argument vector for one job, excluding the
// executable itself. The task is a single opaque argument: it is never
// concatenated into a shell string, so task text cannot be reinterpreted.
func (c *Config) CommandArgs(task string) []string {
	args := slices.Clone(c.Command[1:])
	args = append(args, "--model", c.Model)
	args = append(args, fixedFlags...)
	args = append(args, task)

	return args
}
