// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for checkout
// operations. The delivery pipeline uses git to materialize the
// triggering commit into a fresh workspace, and the generator uses it
// to fetch pinned upstream configuration sources. All commands target
// a specific repository directory via the -C flag, which is
// automatically injected by all Repository methods.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git repository at a specific directory. All
// operations target this directory via "git -C <dir>". There is no
// default directory; callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), r.dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Checkout detaches the working tree at the given commit. The commit
// may be any revision git can resolve (full SHA, short SHA, ref).
func (r *Repository) Checkout(ctx context.Context, commit string) error {
	if _, err := r.Run(ctx, "checkout", "--detach", commit); err != nil {
		return fmt.Errorf("checking out %s: %w", commit, err)
	}
	return nil
}

// Head returns the full SHA of the current HEAD commit.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Clone clones the repository at url into dir and returns a Repository
// targeting the new clone. The clone includes full history so that any
// commit can subsequently be checked out.
func Clone(ctx context.Context, url, dir string) (*Repository, error) {
	var stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", "clone", url, dir)
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("git clone %s: %w (stderr: %s)",
			url, err, strings.TrimSpace(stderr.String()))
	}
	return NewRepository(dir), nil
}

// CloneAt clones the repository at url into dir and detaches the
// working tree at the given commit. This is the provisioner's checkout
// primitive: the resulting directory is a disposable working tree
// pinned to the triggering commit.
func CloneAt(ctx context.Context, url, dir, commit string) (*Repository, error) {
	repository, err := Clone(ctx, url, dir)
	if err != nil {
		return nil, err
	}
	if err := repository.Checkout(ctx, commit); err != nil {
		return nil, err
	}
	return repository, nil
}
