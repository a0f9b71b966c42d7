// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gen192-dev/gen192/lib/git"
)

func TestVersionSatisfies(t *testing.T) {
	tests := []struct {
		name      string
		installed string
		specifier string
		want      bool
	}{
		{"wildcard minor", "Python 3.12.4", "3.x", true},
		{"wildcard rejects other major", "Python 2.7.18", "3.x", false},
		{"star wildcard", "Python 3.10.0", "3.*", true},
		{"exact match", "Python 3.12.4", "3.12.4", true},
		{"exact mismatch", "Python 3.12.4", "3.12.5", false},
		{"prefix match", "Python 3.12.4", "3.12", true},
		{"wildcard in patch", "Python 3.12.4", "3.12.x", true},
		{"bare version output", "3.12.4", "3.x", true},
		{"no version in output", "not installed", "3.x", false},
		{"specifier longer than version", "Python 3", "3.12.x", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := versionSatisfies(test.installed, test.specifier)
			if got != test.want {
				t.Errorf("versionSatisfies(%q, %q) = %v, want %v",
					test.installed, test.specifier, got, test.want)
			}
		})
	}
}

// initSourceRepo creates a git repository with two commits and returns
// its path along with both commit SHAs (oldest first).
func initSourceRepo(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()

	runGit := func(args ...string) string {
		t.Helper()
		command := exec.Command("git", append([]string{"-C", dir}, args...)...)
		command.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		output, err := command.CombinedOutput()
		if err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, output)
		}
		return strings.TrimSpace(string(output))
	}

	runGit("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit("add", ".")
	runGit("commit", "-m", "first")
	first := runGit("rev-parse", "HEAD")

	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("two"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit("add", ".")
	runGit("commit", "-m", "second")
	second := runGit("rev-parse", "HEAD")

	return dir, []string{first, second}
}

func TestProvisionChecksOutTriggeringCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	source, commits := initSourceRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	provisioner := NewProvisioner(source, RuntimeConfig{}, root, logger)

	// Provision at the first commit, not HEAD.
	workspace, err := provisioner.Provision(context.Background(), PushEvent{Commit: commits[0]})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	head, err := git.NewRepository(workspace).Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != commits[0] {
		t.Errorf("workspace HEAD = %s, want %s", head, commits[0])
	}

	content, err := os.ReadFile(filepath.Join(workspace, "README"))
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "one" {
		t.Errorf("README = %q, want content from the first commit", content)
	}
}

func TestProvisionReplacesStaleWorkspace(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	source, commits := initSourceRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	// Simulate a leftover workspace from an aborted earlier run.
	stale := filepath.Join(root, commits[1])
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stale, "leftover"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	provisioner := NewProvisioner(source, RuntimeConfig{}, root, logger)
	workspace, err := provisioner.Provision(context.Background(), PushEvent{Commit: commits[1]})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, err := os.Stat(filepath.Join(workspace, "leftover")); !os.IsNotExist(err) {
		t.Error("stale workspace contents survived provisioning")
	}
}

func TestProvisionFailsOnUnknownCommit(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	source, _ := initSourceRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provisioner := NewProvisioner(source, RuntimeConfig{}, t.TempDir(), logger)
	_, err := provisioner.Provision(context.Background(), PushEvent{
		Commit: strings.Repeat("d", 40),
	})
	if err == nil {
		t.Fatal("Provision = nil, want error for unknown commit")
	}
}

func TestProvisionRuntimeProbeMismatch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	source, commits := initSourceRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runtime := RuntimeConfig{
		Version:        "3.x",
		InstallCommand: []string{"true"},
		ProbeCommand:   []string{"echo", "Python 2.7.18"},
	}
	provisioner := NewProvisioner(source, runtime, t.TempDir(), logger)

	_, err := provisioner.Provision(context.Background(), PushEvent{Commit: commits[0]})
	if err == nil {
		t.Fatal("Provision = nil, want error for version mismatch")
	}
	if !strings.Contains(err.Error(), "does not satisfy") {
		t.Errorf("error = %q, want version mismatch", err)
	}
}

func TestProvisionRuntimeProbeMatch(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	source, commits := initSourceRepo(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	runtime := RuntimeConfig{
		Version:        "3.x",
		InstallCommand: []string{"true"},
		ProbeCommand:   []string{"echo", "Python 3.12.4"},
	}
	provisioner := NewProvisioner(source, runtime, t.TempDir(), logger)

	if _, err := provisioner.Provision(context.Background(), PushEvent{Commit: commits[0]}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
}

func TestBuildRunsCommandsInOrder(t *testing.T) {
	workspace := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// The install step writes a marker; the generate step copies it.
	// If the order ever flipped, the copy would fail.
	builder := NewBuilder(BuildConfig{
		InstallCommand:  []string{"sh", "-c", "echo installed > marker"},
		GenerateCommand: []string{"sh", "-c", "cp marker generated"},
		OutputDir:       "dist",
	}, logger)

	if err := builder.Build(context.Background(), workspace); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workspace, "generated")); err != nil {
		t.Errorf("generate step did not run after install: %v", err)
	}
}

func TestBuildFailsFastOnInstallError(t *testing.T) {
	workspace := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	builder := NewBuilder(BuildConfig{
		InstallCommand:  []string{"sh", "-c", "exit 3"},
		GenerateCommand: []string{"sh", "-c", "touch generated"},
	}, logger)

	err := builder.Build(context.Background(), workspace)
	if err == nil {
		t.Fatal("Build = nil, want error")
	}
	if _, statErr := os.Stat(filepath.Join(workspace, "generated")); !os.IsNotExist(statErr) {
		t.Error("generate step ran after install failure")
	}
}

func TestBuildSurfacesGeneratorStderr(t *testing.T) {
	workspace := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	builder := NewBuilder(BuildConfig{
		GenerateCommand: []string{"sh", "-c", "echo boom >&2; exit 1"},
	}, logger)

	err := builder.Build(context.Background(), workspace)
	if err == nil {
		t.Fatal("Build = nil, want error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want generator stderr included", err)
	}
}
