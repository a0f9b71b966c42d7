// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

package generate

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gen192-dev/gen192/lib/git"
)

// DefaultSourceURL is the upstream C-PAC repository the source
// configs are extracted from.
const DefaultSourceURL = "https://github.com/FCP-INDI/C-PAC.git"

// DefaultCheckout is the pinned upstream commit the generated set is
// built against.
const DefaultCheckout = "89160708710aa6765479949edaca1fe18e4f65e3"

// configsSubdir is where the upstream repository keeps its pipeline
// config files.
const configsSubdir = "CPAC/resources/configs"

// FetchConfigs ensures the source pipeline configs for the given
// upstream commit are present under buildDir and returns the config
// directory. The directory is keyed by a hash of the commit, so
// switching checkouts never reuses a stale cache; an existing
// directory for the same commit is reused without network access.
func FetchConfigs(ctx context.Context, sourceURL, checkout, buildDir string, logger *slog.Logger) (string, error) {
	configDir := filepath.Join(buildDir, "cpac_source_configs_"+urlsafeHash(checkout))
	if _, err := os.Stat(configDir); err == nil {
		logger.Debug("source configs cached", "dir", configDir)
		return configDir, nil
	}

	logger.Info("fetching source configs", "url", sourceURL, "checkout", checkout)

	cloneDir, err := os.MkdirTemp(buildDir, "cpac-clone-*")
	if err != nil {
		return "", fmt.Errorf("creating clone dir: %w", err)
	}
	defer os.RemoveAll(cloneDir)

	if _, err := git.CloneAt(ctx, sourceURL, cloneDir, checkout); err != nil {
		return "", fmt.Errorf("fetching %s at %s: %w", sourceURL, checkout, err)
	}

	// Copy the configs out before the clone is removed. Staged into
	// a temp directory and renamed, so a partially copied cache dir
	// never passes the existence check above.
	staging := configDir + ".partial"
	if err := copyDir(filepath.Join(cloneDir, configsSubdir), staging); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("extracting configs: %w", err)
	}
	if err := os.Rename(staging, configDir); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("committing config cache: %w", err)
	}

	return configDir, nil
}

// urlsafeHash returns the unpadded URL-safe base64 SHA-1 of s. Used
// to derive cache directory names from commit SHAs.
func urlsafeHash(s string) string {
	sum := sha1.Sum([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// copyDir copies the regular files directly inside src to dst,
// creating dst. The upstream configs directory is flat; nested
// directories are skipped.
func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, entry.Name()), filepath.Join(dst, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}
	return destination.Close()
}
