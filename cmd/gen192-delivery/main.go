// Copyright 2026 The gen192 Authors
// SPDX-License-Identifier: Apache-2.0

// gen192-delivery is the continuous delivery daemon. It listens for
// GitHub push webhooks and, for each push to the watched branch, runs
// the pipeline: provision a clean workspace at the pushed commit,
// install the project's runtime and dependencies, run the artifact
// generator, and publish the resulting archives onto the rolling
// pre-release.
//
// On startup:
//  1. Loads the YAML config (--config or GEN192_CONFIG).
//  2. Builds the authenticated GitHub client.
//  3. Registers the repository webhook when a public URL is
//     configured.
//  4. Serves the webhook endpoint until SIGINT/SIGTERM.
//
// Runs execute in the background; the webhook endpoint acknowledges
// deliveries immediately. Failed runs are logged, journaled, and
// reported as commit statuses, and the daemon keeps serving.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gen192-dev/gen192/delivery"
	"github.com/gen192-dev/gen192/lib/github"
	"github.com/gen192-dev/gen192/lib/logging"
	"github.com/gen192-dev/gen192/lib/process"
	"github.com/gen192-dev/gen192/lib/service"
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
		verbose     bool
		showVersion bool
	)

	pflag.StringVar(&configPath, "config", "", "path to the YAML config file (or set GEN192_CONFIG)")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		version.Print("gen192-delivery")
		return nil
	}

	logger := logging.NewLogger(verbose)

	config, err := delivery.LoadConfig(configPath)
	if err != nil {
		return err
	}

	secret, err := config.ReadWebhookSecret()
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

	if config.Listener.PublicURL != "" {
		err := delivery.EnsureWebhook(ctx, &delivery.HookClient{Client: client},
			config.Repository.Owner, config.Repository.Name,
			config.Listener.PublicURL, secret, logger)
		if err != nil {
			return fmt.Errorf("registering webhook: %w", err)
		}
	}

	var journal *delivery.Journal
	if config.JournalPath != "" {
		journal, err = delivery.OpenJournal(config.JournalPath)
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	if err := os.MkdirAll(config.WorkspaceRoot, 0o755); err != nil {
		return fmt.Errorf("creating workspace root: %w", err)
	}

	runner := delivery.NewRunner(delivery.RunnerConfig{
		Provisioner: delivery.NewProvisioner(config.Repository.CloneURL, config.Runtime, config.WorkspaceRoot, logger),
		Builder:     delivery.NewBuilder(config.Build, logger),
		Publisher: delivery.NewPublisher(&delivery.APIClient{Client: client},
			config.Repository.Owner, config.Repository.Name, logger),
		Owner:    config.Repository.Owner,
		Repo:     config.Repository.Name,
		Release:  config.Release,
		Statuses: client,
		Journal:  journal,
		Logger:   logger,
	})

	// Deliveries are acknowledged immediately; the run proceeds in
	// the background. Run logs its own failures.
	handler := delivery.NewWebhookHandler(secret, config.Repository.Branch, logger,
		func(event delivery.PushEvent) {
			go runner.Run(ctx, event)
		})

	mux := http.NewServeMux()
	mux.Handle("/webhook", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := service.NewHTTPServer(service.HTTPServerConfig{
		Address: config.Listener.Address,
		Handler: mux,
		Logger:  logger,
	})

	logger.Info("delivery daemon starting",
		"repository", config.Repository.Owner+"/"+config.Repository.Name,
		"branch", config.Repository.Branch,
		"tag", config.Release.Tag,
		"address", config.Listener.Address,
		"version", version.Info(),
	)

	return server.Serve(ctx)
}
