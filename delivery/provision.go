// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gen192-dev/gen192/lib/git"
)

// Provisioner prepares a fresh execution environment for each run: a
// per-run workspace directory holding a checkout of the triggering
// commit, with the configured language runtime installed and
// verified. Any failure is fatal for the run; no partially
// provisioned environment reaches later stages.
type Provisioner struct {
	cloneURL string
	runtime  RuntimeConfig
	root     string
	logger   *slog.Logger
}

// NewProvisioner creates a provisioner that places workspaces under
// root.
func NewProvisioner(cloneURL string, runtime RuntimeConfig, root string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		cloneURL: cloneURL,
		runtime:  runtime,
		root:     root,
		logger:   logger,
	}
}

// Provision creates the workspace for a run: a directory named after
// the triggering commit, a clone checked out at exactly that commit,
// and the runtime installed and probe-verified. Returns the workspace
// path.
func (p *Provisioner) Provision(ctx context.Context, event PushEvent) (string, error) {
	workspace := filepath.Join(p.root, event.Commit)

	// A leftover workspace from an earlier failed run for the same
	// commit is stale. Remove it so the run starts clean.
	if _, err := os.Stat(workspace); err == nil {
		p.logger.Warn("removing stale workspace", "path", workspace)
		if err := os.RemoveAll(workspace); err != nil {
			return "", fmt.Errorf("removing stale workspace: %w", err)
		}
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace: %w", err)
	}

	p.logger.Info("cloning repository",
		"url", p.cloneURL,
		"commit", event.Commit,
		"workspace", workspace,
	)
	if _, err := git.CloneAt(ctx, p.cloneURL, workspace, event.Commit); err != nil {
		return "", fmt.Errorf("checking out %s: %w", event.Commit, err)
	}

	if err := p.installRuntime(ctx, workspace); err != nil {
		return "", err
	}

	return workspace, nil
}

// installRuntime installs the configured runtime into the workspace
// and verifies the installed version satisfies the wildcard
// specifier. Skipped entirely when no install command is configured
// (the host runtime is trusted as-is).
func (p *Provisioner) installRuntime(ctx context.Context, workspace string) error {
	if len(p.runtime.InstallCommand) == 0 {
		return nil
	}

	p.logger.Info("installing runtime", "version", p.runtime.Version)

	args := append(append([]string(nil), p.runtime.InstallCommand[1:]...), p.runtime.Version)
	if _, err := runCommand(ctx, workspace, p.runtime.InstallCommand[0], args...); err != nil {
		return fmt.Errorf("installing runtime %s: %w", p.runtime.Version, err)
	}

	if len(p.runtime.ProbeCommand) == 0 {
		return nil
	}

	output, err := runCommand(ctx, workspace, p.runtime.ProbeCommand[0], p.runtime.ProbeCommand[1:]...)
	if err != nil {
		return fmt.Errorf("probing runtime version: %w", err)
	}

	installed := strings.TrimSpace(output)
	if !versionSatisfies(installed, p.runtime.Version) {
		return fmt.Errorf("runtime version %q does not satisfy %q", installed, p.runtime.Version)
	}

	p.logger.Info("runtime ready", "installed", installed, "requested", p.runtime.Version)
	return nil
}

// versionNumber extracts the first dotted version number from probe
// output such as "Python 3.12.4".
var versionNumber = regexp.MustCompile(`\d+(\.\d+)*`)

// versionSatisfies reports whether an installed version string
// matches a wildcard specifier. Each specifier segment must equal the
// corresponding installed segment, except "x" (or "*") which matches
// anything and terminates the comparison: "3.x" accepts "3.12.4" but
// not "2.7.18".
func versionSatisfies(installed, specifier string) bool {
	version := versionNumber.FindString(installed)
	if version == "" {
		return false
	}

	installedParts := strings.Split(version, ".")
	for i, want := range strings.Split(specifier, ".") {
		if want == "x" || want == "*" {
			return true
		}
		if i >= len(installedParts) || installedParts[i] != want {
			return false
		}
	}
	return true
}

// runCommand executes a command in the given directory and returns
// its stdout. Stderr is captured and included in error messages.
func runCommand(ctx context.Context, dir, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, name, args...)
	command.Dir = dir
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, detail)
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return stdout.String(), nil
}
