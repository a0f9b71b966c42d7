// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// gen192-publish performs a one-shot publication of an existing
// artifact directory onto the rolling release, using the same config
// file and publication semantics as the delivery daemon. It exists
// for manual recovery: re-attach artifacts after a failed run, or
// push a locally built set without waiting for a webhook.
//
// Usage:
//
//	gen192-publish --config gen192.yaml [--dir .] [--commit SHA]
//
// When --commit is omitted the HEAD of the artifact directory's git
// checkout is used as the release target.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gen192-dev/gen192/delivery"
	"github.com/gen192-dev/gen192/lib/git"
	"github.com/gen192-dev/gen192/lib/github"
	"github.com/gen192-dev/gen192/lib/logging"
	"github.com/gen192-dev/gen192/lib/process"
	"github.com/gen192-dev/gen192/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		dir         string
		commit      string
		verbose     bool
		showVersion bool
	)

	pflag.StringVar(&configPath, "config", "", "path to the YAML config file (or set GEN192_CONFIG)")
	pflag.StringVar(&dir, "dir", ".", "directory the release glob is resolved against")
	pflag.StringVar(&commit, "commit", "", "commit SHA to point the release tag at (default: HEAD of --dir)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		version.Print("gen192-publish")
		return nil
	}

	logger := logging.NewLogger(verbose)

	config, err := delivery.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ghConfig, err := config.GitHubConfig(logger)
	if err != nil {
		return err
	}
	client, err := github.NewClient(ghConfig)
	if err != nil {
		return fmt.Errorf("creating github client: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if commit == "" {
		commit, err = git.NewRepository(dir).Head(ctx)
		if err != nil {
			return fmt.Errorf("resolving HEAD of %s (pass --commit to skip): %w", dir, err)
		}
	}

	publisher := delivery.NewPublisher(&delivery.APIClient{Client: client},
		config.Repository.Owner, config.Repository.Name, logger)

	result, err := publisher.Publish(ctx, delivery.ReleaseSpec{
		Tag:        config.Release.Tag,
		Name:       config.Release.Name,
		Prerelease: config.Release.Prerelease,
		Glob:       config.Release.Glob,
		Dir:        dir,
		Commit:     commit,
	})
	if err != nil {
		return err
	}

	action := "updated"
	if result.Created {
		action = "created"
	}
	fmt.Fprintf(os.Stdout, "release %q %s: %d assets\n", config.Release.Tag, action, len(result.Assets))
	for _, asset := range result.Assets {
		fmt.Fprintf(os.Stdout, "  %s (%d bytes, %s)\n", asset.Name, asset.Size, asset.Digest)
	}
	return nil
}
