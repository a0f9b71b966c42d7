// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gen192-dev/gen192/lib/clock"
	"github.com/gen192-dev/gen192/lib/github"
)

// Config is the delivery daemon's configuration.
//
// Configuration is loaded from a single YAML file specified by:
//   - the --config flag, or
//   - the GEN192_CONFIG environment variable.
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
type Config struct {
	// Repository identifies the watched repository.
	Repository RepositoryConfig `yaml:"repository"`

	// Release configures the rolling pre-release the publisher
	// maintains.
	Release ReleaseConfig `yaml:"release"`

	// Runtime configures the language runtime the provisioner
	// installs into each run's workspace.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Build configures the two build stage commands.
	Build BuildConfig `yaml:"build"`

	// Auth configures GitHub API authentication.
	Auth AuthConfig `yaml:"auth"`

	// Listener configures the webhook HTTP server.
	Listener ListenerConfig `yaml:"listener"`

	// WorkspaceRoot is the directory under which per-run workspaces
	// are created.
	WorkspaceRoot string `yaml:"workspace_root"`

	// JournalPath is the append-only run journal file. Empty disables
	// journaling.
	JournalPath string `yaml:"journal_path"`
}

// RepositoryConfig identifies the repository being delivered.
type RepositoryConfig struct {
	// Owner is the GitHub account owning the repository.
	Owner string `yaml:"owner"`

	// Name is the repository name.
	Name string `yaml:"name"`

	// CloneURL is the URL the provisioner clones from.
	CloneURL string `yaml:"clone_url"`

	// Branch is the watched branch. Pushes to any other ref are
	// ignored. Defaults to "main".
	Branch string `yaml:"branch"`
}

// ReleaseConfig describes the rolling release.
type ReleaseConfig struct {
	// Tag is the mutable release tag, e.g. "dev".
	Tag string `yaml:"tag"`

	// Name is the release's display name, e.g. "Development Build".
	Name string `yaml:"name"`

	// Prerelease marks the release as a pre-release.
	Prerelease bool `yaml:"prerelease"`

	// Glob selects the artifacts to attach, relative to the
	// workspace, e.g. "dist/*.zip". Defaults to "*.zip" under the
	// build stage's output directory, and must select files inside
	// it: the build contract promises archives there and nowhere
	// else.
	Glob string `yaml:"glob"`
}

// RuntimeConfig describes the language runtime the provisioner
// installs.
type RuntimeConfig struct {
	// Version is a major-version wildcard specifier, e.g. "3.x".
	Version string `yaml:"version"`

	// InstallCommand installs the runtime. Run in the workspace with
	// the resolved version appended as its final argument.
	InstallCommand []string `yaml:"install_command"`

	// ProbeCommand prints the installed runtime's version on stdout.
	// Used to verify the installation matches Version.
	ProbeCommand []string `yaml:"probe_command"`
}

// BuildConfig describes the build stage commands. Both run in the
// workspace and must exit zero.
type BuildConfig struct {
	// InstallCommand installs project dependencies from the
	// repository's manifest.
	InstallCommand []string `yaml:"install_command"`

	// GenerateCommand produces the artifacts. Invoked with no
	// arguments beyond what is listed here; must leave its output
	// under OutputDir.
	GenerateCommand []string `yaml:"generate_command"`

	// OutputDir is the artifact directory relative to the workspace.
	// Defaults to "dist". The release glob defaults to "*.zip" in
	// this directory.
	OutputDir string `yaml:"output_dir"`
}

// AuthConfig configures GitHub API authentication. Exactly one mode
// is used: a token read from TokenFile, or GitHub App auth with
// AppID, PrivateKeyFile, and InstallationID. Secrets live in files,
// never inline in the config.
type AuthConfig struct {
	// TokenFile is the path to a file holding a personal access
	// token or fine-grained token. Trailing whitespace is trimmed.
	TokenFile string `yaml:"token_file"`

	// AppID is the GitHub App's numeric ID.
	AppID int64 `yaml:"app_id"`

	// PrivateKeyFile is the path to the App's PEM-encoded RSA
	// private key.
	PrivateKeyFile string `yaml:"private_key_file"`

	// InstallationID is the App installation's numeric ID.
	InstallationID int64 `yaml:"installation_id"`
}

// ListenerConfig configures the webhook HTTP server.
type ListenerConfig struct {
	// Address is the TCP listen address, e.g. ":8080".
	Address string `yaml:"address"`

	// SecretFile is the path to a file holding the webhook HMAC
	// secret. Trailing whitespace is trimmed.
	SecretFile string `yaml:"secret_file"`

	// PublicURL is the externally reachable webhook endpoint. When
	// set, the daemon registers (or updates) the repository webhook
	// pointing at it on startup. Empty skips registration; the hook
	// is then managed out of band.
	PublicURL string `yaml:"public_url"`
}

// LoadConfig loads configuration from the given path, falling back to
// the GEN192_CONFIG environment variable when path is empty. Fails if
// neither is set.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GEN192_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: set GEN192_CONFIG or pass --config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Repository.Branch == "" {
		c.Repository.Branch = "main"
	}
	if c.Release.Tag == "" {
		c.Release.Tag = "dev"
	}
	if c.Release.Name == "" {
		c.Release.Name = "Development Build"
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = "dist"
	}
	if c.Release.Glob == "" {
		c.Release.Glob = filepath.Join(c.Build.OutputDir, "*.zip")
	}
	if c.Listener.Address == "" {
		c.Listener.Address = ":8080"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.Repository.Owner == "" {
		missing = append(missing, "repository.owner")
	}
	if c.Repository.Name == "" {
		missing = append(missing, "repository.name")
	}
	if c.Repository.CloneURL == "" {
		missing = append(missing, "repository.clone_url")
	}
	if len(c.Build.GenerateCommand) == 0 {
		missing = append(missing, "build.generate_command")
	}
	if c.Listener.SecretFile == "" {
		missing = append(missing, "listener.secret_file")
	}
	if c.Auth.TokenFile == "" && c.Auth.AppID == 0 {
		missing = append(missing, "auth.token_file or auth.app_id")
	}
	if c.WorkspaceRoot == "" {
		missing = append(missing, "workspace_root")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	// The build stage promises archives under OutputDir and nowhere
	// else; a glob pointing outside it would publish an empty asset
	// set every run.
	globDir := filepath.Dir(c.Release.Glob)
	rel, err := filepath.Rel(c.Build.OutputDir, globDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("release.glob %q does not select files under build.output_dir %q",
			c.Release.Glob, c.Build.OutputDir)
	}
	return nil
}

// GitHubConfig resolves the auth section into a client configuration,
// reading the token or private key from its file. Token auth wins
// when both modes are configured; the client rejects mixed modes
// anyway.
func (c *Config) GitHubConfig(logger *slog.Logger) (github.Config, error) {
	config := github.Config{
		Clock:  clock.Real(),
		Logger: logger,
	}

	if c.Auth.TokenFile != "" {
		data, err := os.ReadFile(c.Auth.TokenFile)
		if err != nil {
			return github.Config{}, fmt.Errorf("reading token: %w", err)
		}
		token := strings.TrimRight(string(data), " \t\r\n")
		if token == "" {
			return github.Config{}, fmt.Errorf("token file %s is empty", c.Auth.TokenFile)
		}
		config.Token = token
		return config, nil
	}

	key, err := os.ReadFile(c.Auth.PrivateKeyFile)
	if err != nil {
		return github.Config{}, fmt.Errorf("reading app private key: %w", err)
	}
	config.AppID = c.Auth.AppID
	config.PrivateKey = key
	config.InstallationID = c.Auth.InstallationID
	return config, nil
}

// ReadWebhookSecret reads the webhook HMAC secret from the configured
// secret file. Trailing whitespace (a trailing newline from echo or
// an editor) is trimmed.
func (c *Config) ReadWebhookSecret() ([]byte, error) {
	data, err := os.ReadFile(c.Listener.SecretFile)
	if err != nil {
		return nil, fmt.Errorf("reading webhook secret: %w", err)
	}
	secret := []byte(strings.TrimRight(string(data), " \t\r\n"))
	if len(secret) == 0 {
		return nil, fmt.Errorf("webhook secret file %s is empty", c.Listener.SecretFile)
	}
	return secret, nil
}
