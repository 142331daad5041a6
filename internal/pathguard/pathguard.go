// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package pathguard

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/matt-FFFFFF/codexswarm/internal/batchspec"
	"github.com/spf13/afero"
)

// ErrPathSafety is the sentinel for all path containment failures.
var ErrPathSafety = errors.New("unsafe job directory")

// Rule identifies the specific containment rule a directory violated.
type Rule int

const (
	// RuleCurrentDir rejects directories that are empty or name the boundary itself (".").
	RuleCurrentDir Rule = iota
	// RuleTraversal rejects directories containing a ".." path segment.
	RuleTraversal
	// RuleNotRelative rejects absolute or home-relative ("~") directories.
	RuleNotRelative
	// RuleNotADirectory rejects directories that do not exist or are not directories.
	RuleNotADirectory
	// RuleBoundaryItself rejects directories that resolve to the boundary, not below it.
	RuleBoundaryItself
	// RuleOutsideBoundary rejects directories whose canonical path escapes the boundary.
	RuleOutsideBoundary
)

// String implements the Stringer interface for Rule.
func (r Rule) String() string {
	switch r {
	case RuleCurrentDir:
		return "cannot be the current directory"
	case RuleTraversal:
		return "must not contain '..'"
	case RuleNotRelative:
		return "must be a relative subdirectory of the working directory"
	case RuleNotADirectory:
		return "does not exist or is not a directory"
	case RuleBoundaryItself:
		return "resolves to the working directory itself"
	case RuleOutsideBoundary:
		return "resolves outside the working directory"
	default:
		return "unknown rule"
	}
}

// PathSafetyError names the rejected directory and the rule it violated.
type PathSafetyError struct {
	Dir  string
	Rule Rule
}

// Error implements the error interface for PathSafetyError.
func (e *PathSafetyError) Error() string {
	return fmt.Sprintf("dir %q %s", e.Dir, e.Rule)
}

// Unwrap makes PathSafetyError match ErrPathSafety with errors.Is.
func (e *PathSafetyError) Unwrap() error {
	return ErrPathSafety
}

// ResolvedJob is a job whose directory passed every containment rule.
// AbsPath is canonical and a strict descendant of the boundary.
type ResolvedJob struct {
	Spec    batchspec.JobSpec
	Index   int // 1-based position in the batch
	AbsPath string
}

// Guard resolves job directories against a fixed boundary directory.
// The boundary is computed once and threaded explicitly; the guard never
// consults the process working directory after construction.
type Guard struct {
	boundary string
	fs       afero.Fs
	canon    func(string) (string, error)
}

// New creates a Guard rooted at boundary, backed by the operating system
// filesystem. The boundary itself is canonicalized so that later symlink
// resolution of candidates compares like with like.
func New(boundary string) (*Guard, error) {
	abs, err := filepath.Abs(boundary)
	if err != nil {
		return nil, fmt.Errorf("resolving boundary %q: %w", boundary, err)
	}

	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing boundary %q: %w", abs, err)
	}

	return &Guard{
		boundary: canon,
		fs:       afero.NewOsFs(),
		canon:    filepath.EvalSymlinks,
	}, nil
}

// NewWithFs creates a Guard over an arbitrary afero filesystem. Candidates
// are canonicalized lexically only, since afero in-memory filesystems have
// no symlinks. Intended for tests.
func NewWithFs(boundary string, fsys afero.Fs) *Guard {
	return &Guard{
		boundary: filepath.Clean(boundary),
		fs:       fsys,
		canon: func(p string) (string, error) {
			return filepath.Clean(p), nil
		},
	}
}

// Boundary returns the canonical boundary directory.
func (g *Guard) Boundary() string {
	return g.boundary
}

// Resolve checks spec.Dir against every containment rule, in order, and
// returns the resolved job on success. index is the job's 1-based position
// in the batch and is carried through for reporting.
func (g *Guard) Resolve(spec batchspec.JobSpec, index int) (*ResolvedJob, error) {
	dir := spec.Dir

	if dir == "" || dir == "." || dir == "./" {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleCurrentDir}
	}

	for _, seg := range strings.Split(filepath.ToSlash(dir), "/") {
		if seg == ".." {
			return nil, &PathSafetyError{Dir: dir, Rule: RuleTraversal}
		}
	}

	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "~") {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleNotRelative}
	}

	candidate := filepath.Join(g.boundary, dir)

	isDir, err := afero.DirExists(g.fs, candidate)
	if err != nil || !isDir {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleNotADirectory}
	}

	// Canonicalize before the containment checks so a symlink pointing out
	// of the boundary cannot pass on its lexical form.
	canon, err := g.canon(candidate)
	if err != nil {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleNotADirectory}
	}

	if canon == g.boundary {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleBoundaryItself}
	}

	rel, err := filepath.Rel(g.boundary, canon)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, &PathSafetyError{Dir: dir, Rule: RuleOutsideBoundary}
	}

	return &ResolvedJob{Spec: spec, Index: index, AbsPath: canon}, nil
}

// ResolveAll resolves every job in order, failing closed on the first
// violation so that no subprocess is ever launched for a partially valid
// batch.
func (g *Guard) ResolveAll(jobs []batchspec.JobSpec) ([]*ResolvedJob, error) {
	resolved := make([]*ResolvedJob, 0, len(jobs))

	for i, spec := range jobs {
		rj, err := g.Resolve(spec, i+1)
		if err != nil {
			return nil, err
		}

		resolved = append(resolved, rj)
	}

	return resolved, nil
}
