// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// gen192 generates the permuted C-PAC pipeline configuration set and
// packages it for distribution.
//
// The sweep takes every base pipeline, swaps in one step from every
// other pipeline, and crosses the result with the connectivity method
// and nuisance regression axes. With the default matrix that is 192
// configurations. Source configs are extracted from the upstream
// C-PAC repository at a pinned commit and cached under the build
// directory, so repeated runs need no network access.
//
// Usage:
//
//	gen192 [--checkout SHA] [--build-dir DIR] [--dist-dir DIR] [--matrix FILE]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gen192-dev/gen192/generate"
	"github.com/gen192-dev/gen192/lib/logging"
	"github.com/gen192-dev/gen192/lib/process"
	"github.com/gen192-dev/gen192/lib/version"
)

// outputSubdir is the build subdirectory the generated configs are
// written to, and therefore the stem of the published archive name.
const outputSubdir = "gen192_configs"

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		sourceURL   string
		checkout    string
		buildDir    string
		distDir     string
		matrixPath  string
		verbose     bool
		showVersion bool
	)

	pflag.StringVar(&sourceURL, "source-url", generate.DefaultSourceURL, "upstream repository holding the source pipeline configs")
	pflag.StringVar(&checkout, "checkout", generate.DefaultCheckout, "upstream commit to extract source configs from")
	pflag.StringVar(&buildDir, "build-dir", "build", "scratch directory for caches and generated configs")
	pflag.StringVar(&distDir, "dist-dir", "dist", "directory the packaged archives are written to")
	pflag.StringVar(&matrixPath, "matrix", "", "JSONC permutation matrix file (default: compiled-in matrix)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		version.Print("gen192")
		return nil
	}

	logger := logging.NewLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matrix := generate.DefaultMatrix()
	if matrixPath != "" {
		var err error
		matrix, err = generate.LoadMatrix(matrixPath)
		if err != nil {
			return err
		}
	}

	cacheDir := filepath.Join(buildDir, "cache")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating build dir: %w", err)
	}

	configDir, err := generate.FetchConfigs(ctx, sourceURL, checkout, cacheDir, logger)
	if err != nil {
		return err
	}

	configs, err := generate.LoadConfigDirectory(configDir, logger)
	if err != nil {
		return err
	}

	// Generated output lives in its own build subtree so archiving
	// never sweeps up the source config cache.
	outputRoot := filepath.Join(buildDir, "out")
	outputDir := filepath.Join(outputRoot, outputSubdir)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	if err := generate.Run(matrix, configs, outputDir, logger); err != nil {
		return err
	}

	if err := generate.ArchiveBuildDirs(outputRoot, distDir, logger); err != nil {
		return err
	}

	logger.Info("generation complete", "dist", distDir)
	return nil
}
