// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package codexhome

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const (
	// EnvVarName is the environment variable naming the variable that carries
	// the codex home directory to the child process. Defaults to DefaultEnvVar.
	EnvVarName = "CODEX_HOME_ENV"
	// EnvPassthrough toggles isolation. Empty or truthy means passthrough:
	// the child inherits whatever codex home the parent has.
	EnvPassthrough = "CODEX_HOME_PASSTHROUGH"
	// DefaultEnvVar is the variable exported to children when isolating.
	DefaultEnvVar = "CODEX_HOME"

	runDirName = ".codex-swarm"
	jobUUIDLen = 8
	dirPerm    = 0o755
)

// ErrCreateRunHome is returned when the per-run home directory cannot be created.
var ErrCreateRunHome = errors.New("could not create run home")

// RunHome is a per-run base directory holding one isolated codex home per
// job, so concurrent codex processes do not contend on session locks.
// A nil *RunHome means passthrough: no isolation, nothing to clean up.
type RunHome struct {
	base   string
	envVar string
	fs     afero.Fs
}

// Passthrough reports whether isolation is disabled for this process,
// reading EnvPassthrough. An empty or unset value means passthrough.
func Passthrough() bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(EnvPassthrough)))
	if val == "" {
		return true
	}

	return val == "1" || val == "true" || val == "yes"
}

// EnvVar returns the name of the variable exported to children, honoring the
// EnvVarName override.
func EnvVar() string {
	if v := strings.TrimSpace(os.Getenv(EnvVarName)); v != "" {
		return v
	}

	return DefaultEnvVar
}

// ResolveIsolation decides whether jobs get a private codex home,
// combining the process environment with the configured value. The
// environment wins; the default is passthrough.
func ResolveIsolation(cfgPassthrough *bool) bool {
	if _, ok := os.LookupEnv(EnvPassthrough); ok {
		return !Passthrough()
	}

	if cfgPassthrough != nil {
		return !*cfgPassthrough
	}

	return false
}

// ResolveEnvVarName returns the variable that carries each job's private
// codex home, combining the process environment with the configured name.
// The environment wins.
func ResolveEnvVarName(cfgName string) string {
	if _, ok := os.LookupEnv(EnvVarName); ok {
		return EnvVar()
	}

	if cfgName != "" {
		return cfgName
	}

	return DefaultEnvVar
}

// New creates a unique run home under root (typically the user's home
// directory), named run-<uuid>. Layout:
//
//	<root>/.codex-swarm/run-<uuid>/
//	  job-1-<uuid8>/
//	  job-2-<uuid8>/
func New(root, envVar string, fsys afero.Fs) (*RunHome, error) {
	swarmRoot := filepath.Join(root, runDirName)
	if err := fsys.MkdirAll(swarmRoot, dirPerm); err != nil {
		return nil, errors.Join(ErrCreateRunHome, err)
	}

	base := filepath.Join(swarmRoot, "run-"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err := fsys.Mkdir(base, dirPerm); err != nil {
		return nil, errors.Join(ErrCreateRunHome, err)
	}

	return &RunHome{base: base, envVar: envVar, fs: fsys}, nil
}

// Base returns the run home base directory, or "" in passthrough mode.
func (r *RunHome) Base() string {
	if r == nil {
		return ""
	}

	return r.base
}

// JobEnv creates the isolated home for job index and returns the single
// environment variable to add to that job's process. In passthrough mode it
// returns nil and the child inherits the parent environment untouched.
func (r *RunHome) JobEnv(index int) (map[string]string, error) {
	if r == nil {
		return nil, nil
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	dir := filepath.Join(r.base, fmt.Sprintf("job-%d-%s", index, id[:jobUUIDLen]))

	if err := r.fs.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Join(ErrCreateRunHome, err)
	}

	return map[string]string{r.envVar: dir}, nil
}

// Cleanup removes the run home and everything beneath it. Best effort: the
// batch outcome never depends on cleanup succeeding.
func (r *RunHome) Cleanup() error {
	if r == nil {
		return nil
	}

	return r.fs.RemoveAll(r.base)
}
